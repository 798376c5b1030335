package http

import (
	"github.com/gin-gonic/gin"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies, improving testability
// and reducing parameter count.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Single-user mode: every request acts as the default user
	router.Use(func(c *gin.Context) {
		c.Set(ContextKeyUserID, DefaultUserID)
		c.Next()
	})

	var queue QueueState
	if cfg.TaskClient != nil {
		queue = cfg.TaskClient
	}
	health := NewHealthController(cfg.Database, cfg.AssetsRoot, queue, cfg.Version)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// Files and chapters
	if cfg.ChapterService != nil {
		var pruner PruneScheduler
		if cfg.TaskClient != nil {
			pruner = cfg.TaskClient
		}
		filesController := NewFilesController(cfg.ChapterService, cfg.MaxUploadBytes, pruner)
		chaptersController := NewChaptersController(cfg.ChapterService)
		settingsController := NewSettingsController(cfg.ChapterService)

		router.POST("/files", filesController.Upload)
		router.GET("/files/:fileId", filesController.Get)
		router.DELETE("/files/:fileId", filesController.Delete)
		router.GET("/books/:bookId", filesController.GetBook)

		router.GET("/files/:fileId/chapters", chaptersController.List)
		router.POST("/files/:fileId/chapters", chaptersController.Commit)
		router.GET("/files/:fileId/chapters/:index", chaptersController.Content)
		router.PATCH("/files/:fileId/chapters/:index", chaptersController.Rename)
		router.DELETE("/files/:fileId/chapters/:index", chaptersController.Delete)

		router.GET("/settings/chapter-pattern", settingsController.GetChapterPattern)
		router.PUT("/settings/chapter-pattern", settingsController.UpdateChapterPattern)
	}

	// Annotations
	if cfg.AnnotationService != nil {
		annotationsController := NewAnnotationsController(cfg.AnnotationService)

		router.GET("/books/:bookId/annotations", annotationsController.List)
		router.POST("/books/:bookId/annotations", annotationsController.Create)
		router.PATCH("/annotations/:id", annotationsController.Update)
		router.DELETE("/annotations/:id", annotationsController.Delete)
	}

	// Search
	if cfg.SearchService != nil {
		searchController := NewSearchController(cfg.SearchService)
		router.GET("/files/:fileId/search", searchController.Search)
	}

	// Task queue (optional)
	if cfg.TaskClient != nil {
		tasksController := NewTasksController(taskQueue{client: cfg.TaskClient})
		router.GET("/tasks/types", tasksController.ListTaskTypes)
		router.GET("/tasks/:id", tasksController.GetTaskStatus)
		router.POST("/tasks/:type/run", tasksController.RunTask)
	}

	return router
}
