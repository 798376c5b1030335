package config

// Default paths
const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./txtshelf.db"

	// DefaultAssetsPath is where uploaded text files are stored by digest
	DefaultAssetsPath = "./assets"

	// DefaultOfflineDatabasePath is the reader-side store used by the sync command
	DefaultOfflineDatabasePath = "./txtshelf-offline.db"
)

// Offline store backends
const (
	OfflineBackendMemory = "memory"
	OfflineBackendSQL    = "sql"
	OfflineBackendRedis  = "redis"
)
