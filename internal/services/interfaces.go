package services

import (
	"time"

	"github.com/mrlokans/txtshelf/internal/chapters"
	"github.com/mrlokans/txtshelf/internal/database/annotations"
	"github.com/mrlokans/txtshelf/internal/entities"
)

// FileStore persists books, files and chapter sets.
type FileStore interface {
	GetOrCreateBook(id, userID uint, title string) (*entities.Book, error)
	GetBook(id uint) (*entities.Book, error)
	CreateFile(file *entities.TextFile) error
	GetFile(id uint) (*entities.TextFile, error)
	FindFileByDigest(bookID uint, digest string) (*entities.TextFile, error)
	ListDigests() ([]string, error)
	SetChapterPattern(fileID uint, pattern string) error
	DeleteFile(id uint) error
	GetChapters(fileID uint) ([]chapters.Chapter, error)
	SaveChapters(fileID uint, list []chapters.Chapter, replace bool) error
	UpdateChapters(fileID uint, list []chapters.Chapter) error
}

// AssetStore holds raw uploads and their canonical text.
type AssetStore interface {
	Put(data []byte) (string, error)
	Canonical(digest, encoding string) (string, error)
	Prune(keep map[string]bool, olderThan time.Time) (int, error)
}

// SettingsStore reads and writes runtime settings.
type SettingsStore interface {
	GetString(key, fallback string) string
	SetSetting(key, value string) error
}

// AnnotationStore persists annotations.
type AnnotationStore interface {
	Create(a *entities.Annotation) error
	Get(id uint) (*entities.Annotation, error)
	ListForBook(bookID, userID uint) ([]entities.Annotation, error)
	Update(id uint, p annotations.Patch) (*entities.Annotation, error)
	Delete(id uint) error
}

// DetectScheduler queues background chapter detection for a new file.
type DetectScheduler interface {
	ScheduleDetectChapters(fileID uint) error
}
