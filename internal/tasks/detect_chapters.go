package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// ChapterDetector stores the default chapter set of a file if it has none.
type ChapterDetector interface {
	EnsureChapters(fileID uint) (int, error)
}

// DetectChaptersTask segments a newly ingested file in the background so the
// first reader request finds its chapters already stored.
type DetectChaptersTask struct {
	FileID uint `json:"file_id"`
}

// Config returns the queue configuration for chapter detection tasks.
func (t DetectChaptersTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "detect_chapters",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   taskRetention,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// DetectChaptersProcessor creates a processor function for DetectChaptersTask.
func DetectChaptersProcessor(detector ChapterDetector) backlite.QueueProcessor[DetectChaptersTask] {
	return func(ctx context.Context, task DetectChaptersTask) error {
		if detector == nil {
			return fmt.Errorf("chapter detector not configured")
		}

		count, err := detector.EnsureChapters(task.FileID)
		if err != nil {
			return fmt.Errorf("detect chapters for file %d: %w", task.FileID, err)
		}

		log.Printf("[TASK] File %d has %d chapters", task.FileID, count)
		return nil
	}
}

// NewDetectChaptersQueue creates a backlite queue for chapter detection tasks.
func NewDetectChaptersQueue(detector ChapterDetector) backlite.Queue {
	return backlite.NewQueue(DetectChaptersProcessor(detector))
}
