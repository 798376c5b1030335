package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/txtshelf/internal/database/annotations"
	"github.com/mrlokans/txtshelf/internal/services"
)

// AnnotationsController handles annotation CRUD endpoints.
type AnnotationsController struct {
	annotations *services.AnnotationService
}

func NewAnnotationsController(annotationService *services.AnnotationService) *AnnotationsController {
	return &AnnotationsController{annotations: annotationService}
}

// List handles GET /books/:bookId/annotations
// Chapter indices are resolved against the current chapter sets.
func (ac *AnnotationsController) List(c *gin.Context) {
	bookID, ok := parseIDParam(c, "bookId")
	if !ok {
		return
	}

	views, err := ac.annotations.List(bookID, GetUserID(c))
	if err != nil {
		respondServiceError(c, err, "book")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"annotations": views,
		"total":       len(views),
	})
}

// Create handles POST /books/:bookId/annotations
func (ac *AnnotationsController) Create(c *gin.Context) {
	bookID, ok := parseIDParam(c, "bookId")
	if !ok {
		return
	}

	var in services.CreateAnnotationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, "location is required")
		return
	}

	a, err := ac.annotations.Create(bookID, GetUserID(c), in)
	if err != nil {
		respondServiceError(c, err, "file")
		return
	}

	respondCreated(c, a)
}

// Update handles PATCH /annotations/:id
func (ac *AnnotationsController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var patch annotations.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	a, err := ac.annotations.Update(id, GetUserID(c), patch)
	if err != nil {
		respondServiceError(c, err, "annotation")
		return
	}

	c.JSON(http.StatusOK, a)
}

// Delete handles DELETE /annotations/:id
func (ac *AnnotationsController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ac.annotations.Delete(id, GetUserID(c)); err != nil {
		respondServiceError(c, err, "annotation")
		return
	}

	respondSuccess(c, "annotation deleted")
}
