package entities

import (
	"time"

	"gorm.io/gorm"
)

// Book groups the text files and annotations of one title.
type Book struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"index" json:"user_id"`
	Title     string         `gorm:"index;size:512" json:"title"`
	Author    string         `gorm:"index;size:256" json:"author"`
	Files     []TextFile     `gorm:"foreignKey:BookID" json:"files,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TextFile is an ingested plain-text asset. The raw bytes live in the asset
// store under Digest; CharCount is the length of the canonical text in code
// points and bounds every offset stored against this file.
type TextFile struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	BookID         uint      `gorm:"index" json:"book_id"`
	Filename       string    `gorm:"size:512" json:"filename"`
	Digest         string    `gorm:"index;size:64" json:"digest"`
	SourceEncoding string    `gorm:"size:32" json:"source_encoding"`
	Lossy          bool      `json:"lossy"`
	Size           int64     `json:"size"`
	CharCount      int       `json:"char_count"`
	ChapterPattern string    `gorm:"type:text" json:"chapter_pattern,omitempty"`
	Chapters       []Chapter `gorm:"foreignKey:FileID" json:"chapters,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Chapter is one persisted chapter descriptor. Position mirrors the chapter
// index and is rewritten on every structural edit.
type Chapter struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	FileID    uint      `gorm:"uniqueIndex:idx_file_position" json:"file_id"`
	Position  int       `gorm:"uniqueIndex:idx_file_position" json:"index"`
	Title     *string   `gorm:"size:512" json:"title"`
	Offset    int       `json:"offset"`
	Length    int       `json:"length"`
	CreatedAt time.Time `json:"created_at"`
}

func (Chapter) TableName() string {
	return "chapters"
}
