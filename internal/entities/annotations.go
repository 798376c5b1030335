package entities

import (
	"time"
)

// Annotation is a bookmark or highlight. Location is the opaque JSON
// payload decoded by package location; whole-book offsets live inside it.
type Annotation struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"index" json:"user_id"`
	BookID        uint      `gorm:"index" json:"book_id"`
	FileID        uint      `gorm:"index" json:"file_id"`
	Location      string    `gorm:"type:text" json:"location"`
	SelectionText string    `gorm:"type:text" json:"selection_text"`
	Color         *string   `gorm:"size:32" json:"color,omitempty"`
	Note          *string   `gorm:"type:text" json:"note,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// OfflineEntry is one key of the reader-side durable store when it is backed
// by sqlite.
type OfflineEntry struct {
	Key       string    `gorm:"primaryKey;size:255" json:"key"`
	Value     []byte    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (OfflineEntry) TableName() string {
	return "offline_entries"
}
