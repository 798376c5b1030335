package database

import (
	"fmt"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/txtshelf/internal/entities"
)

type Database struct {
	DB *gorm.DB
}

// Models lists every table owned by the server database.
var Models = []any{
	&entities.Book{},
	&entities.TextFile{},
	&entities.Chapter{},
	&entities.Annotation{},
	&entities.Setting{},
}

func NewDatabase(dbPath string) (*Database, error) {
	return open(dbPath, logger.Info, Models)
}

// NewQuietDatabase opens the database with SQL logging disabled. Used by the
// CLI and tests.
func NewQuietDatabase(dbPath string) (*Database, error) {
	return open(dbPath, logger.Silent, Models)
}

// NewOfflineDatabase opens a reader-side database. It carries none of the
// server tables; the offline store migrates its own.
func NewOfflineDatabase(dbPath string) (*Database, error) {
	return open(dbPath, logger.Silent, nil)
}

func open(dbPath string, level logger.LogLevel, models []any) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(models...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
