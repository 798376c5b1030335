package http

import (
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/txtshelf/internal/services"
)

// DefaultMaxUploadBytes caps text uploads when no limit is configured.
const DefaultMaxUploadBytes = 64 << 20

// PruneScheduler queues removal of uploads no file references.
type PruneScheduler interface {
	SchedulePruneAssets() (string, error)
}

// FilesController handles text file upload and metadata endpoints.
type FilesController struct {
	chapters  *services.ChapterService
	maxUpload int64
	pruner    PruneScheduler
}

// NewFilesController creates a FilesController. pruner may be nil.
func NewFilesController(chapterService *services.ChapterService, maxUpload int64, pruner PruneScheduler) *FilesController {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	return &FilesController{chapters: chapterService, maxUpload: maxUpload, pruner: pruner}
}

// Upload handles POST /files
// Accepts a multipart "file" plus optional "book_id" and "encoding" fields.
func (fc *FilesController) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, fc.maxUpload+1<<20)

	header, err := c.FormFile("file")
	if err != nil {
		respondBadRequest(c, "file is required")
		return
	}
	if header.Size > fc.maxUpload {
		respondError(c, http.StatusRequestEntityTooLarge, "upload_too_large",
			fmt.Sprintf("file exceeds %d bytes", fc.maxUpload))
		return
	}

	bookID, ok := parseOptionalID(c, "book_id")
	if !ok {
		return
	}

	f, err := header.Open()
	if err != nil {
		respondInternalError(c, err, "open upload")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, fc.maxUpload))
	if err != nil {
		respondInternalError(c, err, "read upload")
		return
	}

	file, err := fc.chapters.Ingest(services.IngestRequest{
		BookID:   bookID,
		UserID:   GetUserID(c),
		Filename: header.Filename,
		Encoding: c.PostForm("encoding"),
		Data:     data,
	})
	if err != nil {
		respondServiceError(c, err, "book")
		return
	}

	respondCreated(c, file)
}

// Get handles GET /files/:fileId
func (fc *FilesController) Get(c *gin.Context) {
	fileID, ok := parseIDParam(c, "fileId")
	if !ok {
		return
	}

	file, err := fc.chapters.File(fileID)
	if err != nil {
		respondServiceError(c, err, "file")
		return
	}

	c.JSON(http.StatusOK, file)
}

// GetBook handles GET /books/:bookId
func (fc *FilesController) GetBook(c *gin.Context) {
	bookID, ok := parseIDParam(c, "bookId")
	if !ok {
		return
	}

	book, err := fc.chapters.Book(bookID)
	if err != nil {
		respondServiceError(c, err, "book")
		return
	}

	c.JSON(http.StatusOK, book)
}

// Delete handles DELETE /files/:fileId
// Annotations on the file are kept. Stored bytes are pruned in the background.
func (fc *FilesController) Delete(c *gin.Context) {
	fileID, ok := parseIDParam(c, "fileId")
	if !ok {
		return
	}

	if err := fc.chapters.DeleteFile(fileID); err != nil {
		respondServiceError(c, err, "file")
		return
	}

	if fc.pruner != nil {
		if _, err := fc.pruner.SchedulePruneAssets(); err != nil {
			log.Printf("Failed to schedule asset prune after deleting file %d: %v", fileID, err)
		}
	}

	respondSuccess(c, "file deleted")
}
