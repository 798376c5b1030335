package http

import (
	"github.com/mrlokans/txtshelf/internal/database"
	"github.com/mrlokans/txtshelf/internal/services"
	"github.com/mrlokans/txtshelf/internal/tasks"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database          *database.Database
	ChapterService    *services.ChapterService
	AnnotationService *services.AnnotationService
	SearchService     *services.SearchService

	// AssetsRoot is checked by the health endpoint.
	AssetsRoot string

	// MaxUploadBytes caps POST /files bodies. Zero means DefaultMaxUploadBytes.
	MaxUploadBytes int64

	// Application info
	Version string

	// Task queue client (optional)
	TaskClient *tasks.Client
}
