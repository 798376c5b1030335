package scheduler

import (
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"
)

// PruneEnqueuer queues a cache prune task.
type PruneEnqueuer interface {
	SchedulePruneAssets() (string, error)
}

// PruneScheduler periodically queues a prune of the canonical-text cache.
// The prune itself runs on the task queue.
type PruneScheduler struct {
	enqueuer PruneEnqueuer
	schedule string

	cron      *cron.Cron
	mu        sync.Mutex
	isRunning bool
}

// NewPruneScheduler creates a scheduler. An empty schedule disables it.
func NewPruneScheduler(enqueuer PruneEnqueuer, schedule string) *PruneScheduler {
	return &PruneScheduler{
		enqueuer: enqueuer,
		schedule: schedule,
		cron:     cron.New(cron.WithParser(parser)),
	}
}

func (s *PruneScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning || s.schedule == "" {
		return nil
	}
	if _, err := s.cron.AddFunc(s.schedule, s.enqueue); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	s.cron.Start()
	s.isRunning = true
	log.Printf("[TASK] Cache prune scheduled '%s' (%s)", s.schedule, Describe(s.schedule))
	return nil
}

func (s *PruneScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}
	<-s.cron.Stop().Done()
	s.isRunning = false
}

func (s *PruneScheduler) enqueue() {
	if _, err := s.enqueuer.SchedulePruneAssets(); err != nil {
		log.Printf("[TASK ERROR] Failed to queue cache prune: %v", err)
	}
}
