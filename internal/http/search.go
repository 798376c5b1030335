package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/txtshelf/internal/search"
	"github.com/mrlokans/txtshelf/internal/services"
)

// SearchController handles full-text search within one file.
type SearchController struct {
	search *services.SearchService
}

func NewSearchController(searchService *services.SearchService) *SearchController {
	return &SearchController{search: searchService}
}

// Search handles GET /files/:fileId/search?q=
// A newer query on the same file supersedes this one and it answers 409.
func (sc *SearchController) Search(c *gin.Context) {
	fileID, ok := parseIDParam(c, "fileId")
	if !ok {
		return
	}

	query := c.Query("q")
	if strings.TrimSpace(query) == "" {
		respondBadRequest(c, "q is required")
		return
	}

	hits, err := sc.search.Search(c.Request.Context(), fileID, query)
	if err != nil {
		respondServiceError(c, err, "file")
		return
	}
	if hits == nil {
		hits = []search.Hit{}
	}

	c.JSON(http.StatusOK, gin.H{
		"query": query,
		"hits":  hits,
		"total": len(hits),
	})
}
