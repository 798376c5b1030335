// Package annotations provides database operations for bookmarks and
// highlights anchored in text files.
package annotations

import (
	"gorm.io/gorm"

	"github.com/mrlokans/txtshelf/internal/entities"
)

// Repository handles annotation database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new annotations repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Patch holds the mutable annotation fields. Nil fields are left unchanged.
type Patch struct {
	Color *string `json:"color"`
	Note  *string `json:"note"`
}

// Create stores a new annotation.
func (r *Repository) Create(a *entities.Annotation) error {
	return r.db.Create(a).Error
}

// Get retrieves an annotation by its ID.
func (r *Repository) Get(id uint) (*entities.Annotation, error) {
	var a entities.Annotation
	if err := r.db.First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// ListForBook returns a user's annotations of a book in creation order.
func (r *Repository) ListForBook(bookID, userID uint) ([]entities.Annotation, error) {
	var out []entities.Annotation
	err := r.db.Where("book_id = ? AND user_id = ?", bookID, userID).Order("id ASC").Find(&out).Error
	return out, err
}

// Update applies p and returns the stored annotation.
func (r *Repository) Update(id uint, p Patch) (*entities.Annotation, error) {
	a, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	if p.Color != nil {
		a.Color = p.Color
	}
	if p.Note != nil {
		a.Note = p.Note
	}
	if err := r.db.Save(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

// Delete removes an annotation. Deleting a missing id returns
// gorm.ErrRecordNotFound.
func (r *Repository) Delete(id uint) error {
	res := r.db.Delete(&entities.Annotation{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
