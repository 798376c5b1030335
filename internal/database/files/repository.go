// Package files provides database operations for books, text files and
// their chapter sets.
//
// # Usage
//
//	repo := files.NewRepository(db)
//	file, err := repo.GetFile(7)
//	list, err := repo.GetChapters(7)
package files

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/txtshelf/internal/chapters"
	"github.com/mrlokans/txtshelf/internal/entities"
)

// ErrChaptersExist is returned when a chapter set is committed without
// replace while one is already stored.
var ErrChaptersExist = errors.New("chapters already exist for file")

// Repository handles book, file and chapter database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new files repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetOrCreateBook finds a book by id, or creates an untitled one when id is 0.
func (r *Repository) GetOrCreateBook(id, userID uint, title string) (*entities.Book, error) {
	var book entities.Book
	if id != 0 {
		if err := r.db.First(&book, id).Error; err != nil {
			return nil, err
		}
		return &book, nil
	}
	book = entities.Book{UserID: userID, Title: title}
	if err := r.db.Create(&book).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// GetBook retrieves a book with its files.
func (r *Repository) GetBook(id uint) (*entities.Book, error) {
	var book entities.Book
	if err := r.db.Preload("Files").First(&book, id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// CreateFile stores file metadata.
func (r *Repository) CreateFile(file *entities.TextFile) error {
	return r.db.Create(file).Error
}

// GetFile retrieves a file by its ID.
func (r *Repository) GetFile(id uint) (*entities.TextFile, error) {
	var file entities.TextFile
	if err := r.db.First(&file, id).Error; err != nil {
		return nil, err
	}
	return &file, nil
}

// FindFileByDigest returns the first file of a book with the given content digest.
func (r *Repository) FindFileByDigest(bookID uint, digest string) (*entities.TextFile, error) {
	var file entities.TextFile
	err := r.db.Where("book_id = ? AND digest = ?", bookID, digest).First(&file).Error
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// ListDigests returns the distinct content digests still referenced by a file.
func (r *Repository) ListDigests() ([]string, error) {
	var digests []string
	err := r.db.Model(&entities.TextFile{}).Distinct("digest").Pluck("digest", &digests).Error
	return digests, err
}

// SetChapterPattern records the pattern the stored chapter set was built with.
func (r *Repository) SetChapterPattern(fileID uint, pattern string) error {
	return r.db.Model(&entities.TextFile{}).Where("id = ?", fileID).Update("chapter_pattern", pattern).Error
}

// DeleteFile removes a file with its chapters.
func (r *Repository) DeleteFile(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("file_id = ?", id).Delete(&entities.Chapter{}).Error; err != nil {
			return err
		}
		return tx.Delete(&entities.TextFile{}, id).Error
	})
}

// HasChapters reports whether a chapter set is stored for the file.
func (r *Repository) HasChapters(fileID uint) (bool, error) {
	var count int64
	err := r.db.Model(&entities.Chapter{}).Where("file_id = ?", fileID).Count(&count).Error
	return count > 0, err
}

// GetChapters returns the stored chapter set ordered by index. An empty slice
// means nothing has been stored yet.
func (r *Repository) GetChapters(fileID uint) ([]chapters.Chapter, error) {
	var rows []entities.Chapter
	err := r.db.Where("file_id = ?", fileID).Order("position ASC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]chapters.Chapter, len(rows))
	for i, row := range rows {
		out[i] = chapters.Chapter{Index: row.Position, Title: row.Title, Offset: row.Offset, Length: row.Length}
	}
	return out, nil
}

// SaveChapters stores a complete chapter set. With replace the previous set is
// wiped first; without it ErrChaptersExist is returned when one is present.
func (r *Repository) SaveChapters(fileID uint, list []chapters.Chapter, replace bool) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entities.Chapter{}).Where("file_id = ?", fileID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 && !replace {
			return ErrChaptersExist
		}
		return writeChapters(tx, fileID, list)
	})
}

// UpdateChapters swaps the stored set for list. Used after rename and merge,
// which always produce a full renumbered set.
func (r *Repository) UpdateChapters(fileID uint, list []chapters.Chapter) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return writeChapters(tx, fileID, list)
	})
}

func writeChapters(tx *gorm.DB, fileID uint, list []chapters.Chapter) error {
	if err := tx.Where("file_id = ?", fileID).Delete(&entities.Chapter{}).Error; err != nil {
		return fmt.Errorf("failed to clear chapters: %w", err)
	}
	if len(list) == 0 {
		return nil
	}
	rows := make([]entities.Chapter, len(list))
	for i, c := range list {
		rows[i] = entities.Chapter{FileID: fileID, Position: c.Index, Title: c.Title, Offset: c.Offset, Length: c.Length}
	}
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to insert chapters: %w", err)
	}
	return nil
}
