package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/txtshelf/internal/chapters"
	"github.com/mrlokans/txtshelf/internal/services"
)

// ChaptersController handles chapter listing and editing for a text file.
type ChaptersController struct {
	chapters *services.ChapterService
}

func NewChaptersController(chapterService *services.ChapterService) *ChaptersController {
	return &ChaptersController{chapters: chapterService}
}

// ChapterListResponse is a chapter set together with the file it belongs to.
type ChapterListResponse struct {
	FileID    uint               `json:"file_id"`
	BookID    uint               `json:"book_id"`
	Filename  string             `json:"filename"`
	Encoding  string             `json:"encoding"`
	Lossy     bool               `json:"lossy"`
	CharCount int                `json:"char_count"`
	Pattern   string             `json:"pattern"`
	Persisted bool               `json:"persisted"`
	Chapters  []chapters.Chapter `json:"chapters"`
}

// ChapterContentResponse is one chapter with its text.
type ChapterContentResponse struct {
	Index   int     `json:"index"`
	Title   *string `json:"title"`
	Offset  int     `json:"offset"`
	Length  int     `json:"length"`
	Content string  `json:"content"`
}

// CommitChaptersRequest stores either an explicit list or a pattern's output.
type CommitChaptersRequest struct {
	Pattern  string             `json:"pattern"`
	Chapters []chapters.Chapter `json:"chapters"`
	Replace  bool               `json:"replace"`
}

// RenameChapterRequest is the body of a chapter rename. A blank title clears it.
type RenameChapterRequest struct {
	Title *string `json:"title" binding:"required"`
}

func listResponse(res *services.ListResult) ChapterListResponse {
	list := res.Chapters
	if list == nil {
		list = []chapters.Chapter{}
	}
	return ChapterListResponse{
		FileID:    res.File.ID,
		BookID:    res.File.BookID,
		Filename:  res.File.Filename,
		Encoding:  res.File.SourceEncoding,
		Lossy:     res.File.Lossy,
		CharCount: res.File.CharCount,
		Pattern:   res.Pattern,
		Persisted: res.Persisted,
		Chapters:  list,
	}
}

// List handles GET /files/:fileId/chapters?pattern=&dry=
// A custom pattern or dry=true previews without writing.
func (cc *ChaptersController) List(c *gin.Context) {
	fileID, ok := parseIDParam(c, "fileId")
	if !ok {
		return
	}

	dry := false
	if v := c.Query("dry"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			respondBadRequest(c, "invalid dry")
			return
		}
		dry = parsed
	}

	res, err := cc.chapters.List(fileID, services.ListOptions{Pattern: c.Query("pattern"), Dry: dry})
	if err != nil {
		respondServiceError(c, err, "file")
		return
	}

	c.JSON(http.StatusOK, listResponse(res))
}

// Commit handles POST /files/:fileId/chapters
func (cc *ChaptersController) Commit(c *gin.Context) {
	fileID, ok := parseIDParam(c, "fileId")
	if !ok {
		return
	}

	var req CommitChaptersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if req.Chapters != nil && req.Pattern != "" {
		respondBadRequest(c, "pattern and chapters are mutually exclusive")
		return
	}

	res, err := cc.chapters.Commit(fileID, services.CommitRequest{
		Pattern:  req.Pattern,
		Chapters: req.Chapters,
		Replace:  req.Replace,
	})
	if err != nil {
		respondServiceError(c, err, "file")
		return
	}

	c.JSON(http.StatusOK, listResponse(res))
}

// Content handles GET /files/:fileId/chapters/:index
func (cc *ChaptersController) Content(c *gin.Context) {
	fileID, ok := parseIDParam(c, "fileId")
	if !ok {
		return
	}
	index, ok := parseIndexParam(c, "index")
	if !ok {
		return
	}

	ch, content, err := cc.chapters.Content(fileID, index)
	if err != nil {
		respondServiceError(c, err, "file")
		return
	}

	c.JSON(http.StatusOK, ChapterContentResponse{
		Index:   ch.Index,
		Title:   ch.Title,
		Offset:  ch.Offset,
		Length:  ch.Length,
		Content: content,
	})
}

// Rename handles PATCH /files/:fileId/chapters/:index
func (cc *ChaptersController) Rename(c *gin.Context) {
	fileID, ok := parseIDParam(c, "fileId")
	if !ok {
		return
	}
	index, ok := parseIndexParam(c, "index")
	if !ok {
		return
	}

	var req RenameChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "title is required")
		return
	}

	list, err := cc.chapters.Rename(fileID, index, *req.Title)
	if err != nil {
		respondServiceError(c, err, "file")
		return
	}

	c.JSON(http.StatusOK, gin.H{"chapters": list})
}

// Delete handles DELETE /files/:fileId/chapters/:index?merge=prev|next
// The chapter's span is folded into its neighbour; no text is removed.
func (cc *ChaptersController) Delete(c *gin.Context) {
	fileID, ok := parseIDParam(c, "fileId")
	if !ok {
		return
	}
	index, ok := parseIndexParam(c, "index")
	if !ok {
		return
	}

	dir, err := chapters.ParseDirection(c.Query("merge"))
	if err != nil {
		respondServiceError(c, err, "file")
		return
	}

	list, err := cc.chapters.Merge(fileID, index, dir)
	if err != nil {
		respondServiceError(c, err, "file")
		return
	}

	c.JSON(http.StatusOK, gin.H{"chapters": list})
}
