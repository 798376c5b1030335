package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/txtshelf/internal/services"
)

// SettingsController exposes runtime settings.
type SettingsController struct {
	chapters *services.ChapterService
}

func NewSettingsController(chapterService *services.ChapterService) *SettingsController {
	return &SettingsController{chapters: chapterService}
}

// ChapterPatternRequest is the body of PUT /settings/chapter-pattern.
type ChapterPatternRequest struct {
	Pattern string `json:"pattern" binding:"required"`
}

// GetChapterPattern handles GET /settings/chapter-pattern
func (sc *SettingsController) GetChapterPattern(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pattern": sc.chapters.DefaultPattern()})
}

// UpdateChapterPattern handles PUT /settings/chapter-pattern
// Invalid patterns are rejected and the previous default stays in place.
func (sc *SettingsController) UpdateChapterPattern(c *gin.Context) {
	var req ChapterPatternRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "pattern is required")
		return
	}

	if err := sc.chapters.SetDefaultPattern(req.Pattern); err != nil {
		respondServiceError(c, err, "setting")
		return
	}

	c.JSON(http.StatusOK, gin.H{"pattern": req.Pattern})
}
