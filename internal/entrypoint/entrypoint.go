package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mrlokans/txtshelf/internal/assets"
	"github.com/mrlokans/txtshelf/internal/config"
	"github.com/mrlokans/txtshelf/internal/database"
	"github.com/mrlokans/txtshelf/internal/database/annotations"
	"github.com/mrlokans/txtshelf/internal/database/files"
	"github.com/mrlokans/txtshelf/internal/database/settings"
	"github.com/mrlokans/txtshelf/internal/entities"
	http_controllers "github.com/mrlokans/txtshelf/internal/http"
	"github.com/mrlokans/txtshelf/internal/scheduler"
	"github.com/mrlokans/txtshelf/internal/search"
	"github.com/mrlokans/txtshelf/internal/services"
	"github.com/mrlokans/txtshelf/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// kill (no param) sends SIGTERM, kill -2 is SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background work before the server goes away
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting txtshelf v%s", version)

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	assetStore, err := assets.NewStore(cfg.Storage.AssetsPath)
	if err != nil {
		log.Fatalf("Failed to initialize asset storage: %v", err)
	}
	log.Printf("Asset storage initialized at %s", cfg.Storage.AssetsPath)

	filesRepo := files.NewRepository(db.DB)
	settingsRepo := settings.NewRepository(db.DB)
	annotationsRepo := annotations.NewRepository(db.DB)

	chapterService := services.NewChapterService(filesRepo, assetStore, settingsRepo, cfg.Chapters.DefaultPattern, cfg.Chapters.MatchTimeout)
	annotationService := services.NewAnnotationService(annotationsRepo, filesRepo, chapterService)
	searchService := services.NewSearchService(chapterService, search.Config{
		BatchSize:     cfg.Search.BatchSize,
		MaxHits:       cfg.Search.MaxHits,
		SnippetRadius: cfg.Search.SnippetRadius,
	})

	// Initialize task queue if enabled. Without it chapters are detected
	// lazily on first read.
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	var pruneScheduler *scheduler.PruneScheduler
	if cfg.Tasks.Enabled {
		taskCfg := tasks.Config{
			Workers:         cfg.Tasks.Workers,
			ReleaseAfter:    cfg.Tasks.ReleaseAfter,
			CleanupInterval: cfg.Tasks.CleanupInterval,
		}

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewDetectChaptersQueue(chapterService),
			tasks.NewPruneAssetsQueue(chapterService, settingsRepo, entities.SettingKeyCachePruneLastAt, entities.SettingKeyCachePruneLastCount),
		)
		chapterService.SetScheduler(taskClient)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		pruneScheduler = scheduler.NewPruneScheduler(taskClient, cfg.Tasks.PruneSchedule)
		if err := pruneScheduler.Start(); err != nil {
			log.Printf("WARNING: cache prune not scheduled: %v", err)
		}
	}

	routerCfg := http_controllers.RouterConfig{
		Database:          db,
		ChapterService:    chapterService,
		AnnotationService: annotationService,
		SearchService:     searchService,
		AssetsRoot:        assetStore.Root(),
		MaxUploadBytes:    cfg.Storage.MaxUploadBytes,
		Version:           version,
		TaskClient:        taskClient,
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if pruneScheduler != nil {
			pruneScheduler.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
