package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Storage
		Chapters
		Search
		Tasks
		Offline
		Redis
	}

	HTTP struct {
		Port int32
		Host string
	}

	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Storage struct {
		AssetsPath     string
		MaxUploadBytes int64
	}
	Chapters struct {
		DefaultPattern string        // Empty selects the built-in pattern
		MatchTimeout   time.Duration // Per-pattern regexp timeout
	}
	Search struct {
		BatchSize     int // Chapters scanned between yields
		MaxHits       int
		SnippetRadius int
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
		PruneSchedule   string // Cron format, empty disables periodic pruning
	}
	Offline struct {
		Backend        string // memory, sql or redis
		DatabasePath   string // Used by the sql backend
		ServerURL      string
		RequestTimeout time.Duration
		ReplaySchedule string // Cron format: "* * * * *" = every minute
	}
	Redis struct {
		URL    string
		Prefix string
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)

	// Storage defaults
	v.SetDefault("assets_path", DefaultAssetsPath)
	v.SetDefault("max_upload_bytes", 64<<20)

	// Chapter detection defaults
	v.SetDefault("chapter_pattern", "")
	v.SetDefault("chapter_match_timeout", "2s")

	// Search defaults
	v.SetDefault("search_batch_size", 10)
	v.SetDefault("search_max_hits", 500)
	v.SetDefault("search_snippet_radius", 30)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_prune_schedule", "0 3 * * *") // Daily at 03:00

	// Offline client defaults
	v.SetDefault("offline_backend", OfflineBackendSQL)
	v.SetDefault("offline_database_path", DefaultOfflineDatabasePath)
	v.SetDefault("offline_server_url", "http://localhost:8188")
	v.SetDefault("offline_request_timeout", "30s")
	v.SetDefault("offline_replay_schedule", "* * * * *")

	// Redis defaults
	v.SetDefault("redis_url", "redis://localhost:6379/0")
	v.SetDefault("redis_prefix", "txtshelf:offline:")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Storage: Storage{
			AssetsPath:     v.GetString("ASSETS_PATH"),
			MaxUploadBytes: v.GetInt64("MAX_UPLOAD_BYTES"),
		},
		Chapters: Chapters{
			DefaultPattern: v.GetString("CHAPTER_PATTERN"),
			MatchTimeout:   v.GetDuration("CHAPTER_MATCH_TIMEOUT"),
		},
		Search: Search{
			BatchSize:     v.GetInt("SEARCH_BATCH_SIZE"),
			MaxHits:       v.GetInt("SEARCH_MAX_HITS"),
			SnippetRadius: v.GetInt("SEARCH_SNIPPET_RADIUS"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
			PruneSchedule:   v.GetString("TASK_PRUNE_SCHEDULE"),
		},
		Offline: Offline{
			Backend:        v.GetString("OFFLINE_BACKEND"),
			DatabasePath:   v.GetString("OFFLINE_DATABASE_PATH"),
			ServerURL:      v.GetString("OFFLINE_SERVER_URL"),
			RequestTimeout: v.GetDuration("OFFLINE_REQUEST_TIMEOUT"),
			ReplaySchedule: v.GetString("OFFLINE_REPLAY_SCHEDULE"),
		},
		Redis: Redis{
			URL:    v.GetString("REDIS_URL"),
			Prefix: v.GetString("REDIS_PREFIX"),
		},
	}
}
