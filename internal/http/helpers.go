package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/txtshelf/internal/assets"
	"github.com/mrlokans/txtshelf/internal/chapters"
	"github.com/mrlokans/txtshelf/internal/database/files"
	"github.com/mrlokans/txtshelf/internal/location"
	"github.com/mrlokans/txtshelf/internal/search"
	"github.com/mrlokans/txtshelf/internal/services"
	"github.com/mrlokans/txtshelf/internal/tasks"
	"github.com/mrlokans/txtshelf/internal/utils"
)

// DefaultUserID owns every book and annotation in single-user mode.
const DefaultUserID = uint(0)

// ContextKeyUserID is the gin context key holding the requesting user.
const ContextKeyUserID = "user_id"

// GetUserID extracts the requesting user's ID from the Gin context.
// Returns DefaultUserID when no middleware set one.
func GetUserID(c *gin.Context) uint {
	if v, ok := c.Get(ContextKeyUserID); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return DefaultUserID
}

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`    // machine-readable error code
	Details any    `json:"details,omitempty"` // additional context (validation errors, etc.)
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found"})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// respondError sends an error response with the given status code and machine-readable code.
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{Error: message, Code: code})
}

// respondServiceError maps domain errors to status codes. Anything it does
// not recognise is logged and reported as a 500.
func respondServiceError(c *gin.Context, err error, context string) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, assets.ErrNotFound):
		respondNotFound(c, context)
	case errors.Is(err, chapters.ErrChapterNotFound):
		respondError(c, http.StatusNotFound, "chapter_not_found", err.Error())
	case errors.Is(err, chapters.ErrInvalidPattern):
		respondError(c, http.StatusUnprocessableEntity, "invalid_pattern", err.Error())
	case errors.Is(err, chapters.ErrNoAdjacentChapter):
		respondError(c, http.StatusConflict, "no_adjacent_chapter", err.Error())
	case errors.Is(err, files.ErrChaptersExist):
		respondError(c, http.StatusConflict, "chapters_exist", err.Error())
	case errors.Is(err, chapters.ErrInvalidChapters):
		respondError(c, http.StatusBadRequest, "invalid_chapters", err.Error())
	case errors.Is(err, chapters.ErrInvalidDirection):
		respondError(c, http.StatusBadRequest, "invalid_direction", err.Error())
	case errors.Is(err, location.ErrUnknownFormat), errors.Is(err, location.ErrInvalidLocation):
		respondError(c, http.StatusUnprocessableEntity, "invalid_location", err.Error())
	case errors.Is(err, services.ErrFileNotInBook):
		respondError(c, http.StatusUnprocessableEntity, "file_not_in_book", err.Error())
	case errors.Is(err, utils.ErrInvalidColor):
		respondError(c, http.StatusBadRequest, "invalid_color", err.Error())
	case errors.Is(err, services.ErrEmptyUpload):
		respondError(c, http.StatusBadRequest, "empty_upload", err.Error())
	case errors.Is(err, tasks.ErrUnknownTaskType), errors.Is(err, tasks.ErrFileIDRequired):
		respondError(c, http.StatusBadRequest, "invalid_task", err.Error())
	case errors.Is(err, search.ErrSuperseded):
		respondError(c, http.StatusConflict, "superseded", err.Error())
	default:
		respondInternalError(c, err, context)
	}
}

// --- Success Response Helpers ---

// respondSuccess sends a 200 OK response with a message.
func respondSuccess(c *gin.Context, message string) {
	c.JSON(http.StatusOK, SuccessResponse{Message: message})
}

// respondCreated sends a 201 Created response with data.
func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// respondAccepted sends a 202 Accepted response (for async operations).
func respondAccepted(c *gin.Context, message string, data any) {
	c.JSON(http.StatusAccepted, SuccessResponse{Message: message, Data: data})
}

// --- Parameter Parsing ---

// parseIDParam extracts and validates an unsigned integer ID from URL parameters.
// Returns the parsed ID or responds with a 400 error and returns 0, false.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	idStr := c.Param(paramName)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

// parseIndexParam extracts a zero-based chapter index from URL parameters.
func parseIndexParam(c *gin.Context, paramName string) (int, bool) {
	idx, err := strconv.Atoi(c.Param(paramName))
	if err != nil || idx < 0 {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return idx, true
}

// parseOptionalID reads an optional unsigned integer from query or form values.
// An absent value yields 0, true.
func parseOptionalID(c *gin.Context, paramName string) (uint, bool) {
	idStr := c.Query(paramName)
	if idStr == "" {
		idStr = c.PostForm(paramName)
	}
	if idStr == "" {
		return 0, true
	}
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}
