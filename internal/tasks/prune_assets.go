package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// AssetPruner removes uploads no file references any more.
type AssetPruner interface {
	PruneAssets() (int, error)
}

// PruneRecorder keeps bookkeeping about the last prune run.
type PruneRecorder interface {
	SetTime(key string, t time.Time) error
	SetInt(key string, n int) error
}

// PruneAssetsTask deletes raw uploads and canonical text caches whose file
// was removed.
type PruneAssetsTask struct{}

// Config returns the queue configuration for prune tasks.
func (t PruneAssetsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "prune_assets",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   taskRetention,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// PruneAssetsProcessor creates a processor function for PruneAssetsTask.
// recorder may be nil.
func PruneAssetsProcessor(pruner AssetPruner, recorder PruneRecorder, lastAtKey, countKey string) backlite.QueueProcessor[PruneAssetsTask] {
	return func(ctx context.Context, task PruneAssetsTask) error {
		if pruner == nil {
			return fmt.Errorf("asset pruner not configured")
		}

		removed, err := pruner.PruneAssets()
		if err != nil {
			return fmt.Errorf("prune assets: %w", err)
		}

		if recorder != nil {
			if err := recorder.SetTime(lastAtKey, time.Now()); err != nil {
				log.Printf("[TASK ERROR] Failed to record prune time: %v", err)
			}
			if err := recorder.SetInt(countKey, removed); err != nil {
				log.Printf("[TASK ERROR] Failed to record prune count: %v", err)
			}
		}

		log.Printf("[TASK] Pruned %d unreferenced assets", removed)
		return nil
	}
}

// NewPruneAssetsQueue creates a backlite queue for prune tasks.
func NewPruneAssetsQueue(pruner AssetPruner, recorder PruneRecorder, lastAtKey, countKey string) backlite.Queue {
	return backlite.NewQueue(PruneAssetsProcessor(pruner, recorder, lastAtKey, countKey))
}
