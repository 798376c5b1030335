package offline

import (
	"context"
	"errors"
	"time"

	"github.com/mrlokans/txtshelf/internal/chapters"
)

var (
	// ErrUnavailable marks a Remote failure caused by connectivity or a
	// server-side outage. Such failures are queued and retried.
	ErrUnavailable = errors.New("server unavailable")
	// ErrGone marks a Remote answer that the target no longer exists.
	ErrGone = errors.New("resource gone")
)

// Annotation is the reader-side copy of an annotation. Pending is set while
// its create has not reached the server; ID is then negative.
type Annotation struct {
	ID            int64     `json:"id"`
	BookID        uint      `json:"book_id"`
	FileID        uint      `json:"file_id"`
	Location      string    `json:"location"`
	SelectionText string    `json:"selection_text"`
	Color         *string   `json:"color,omitempty"`
	Note          *string   `json:"note,omitempty"`
	Pending       bool      `json:"pending"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Remote is the server API the offline client talks to. Implementations
// wrap connectivity failures with ErrUnavailable and missing targets with
// ErrGone.
type Remote interface {
	Ping(ctx context.Context) error
	CreateAnnotation(ctx context.Context, bookID uint, req CreateRequest) (int64, error)
	UpdateAnnotation(ctx context.Context, id int64, p Patch) error
	DeleteAnnotation(ctx context.Context, id int64) error
	ListAnnotations(ctx context.Context, bookID uint) ([]Annotation, error)
	Chapters(ctx context.Context, fileID uint) ([]chapters.Chapter, error)
	ChapterContent(ctx context.Context, fileID uint, index int) (string, error)
}
