// Package scheduler runs the offline mutation replay on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/txtshelf/internal/offline"
)

// DefaultSchedule checks for connectivity every minute.
const DefaultSchedule = "* * * * *"

// Replayer drains a mutation queue once the server is reachable.
type Replayer interface {
	ReplayIfOnline(ctx context.Context) (offline.ReplayReport, error)
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSchedule checks a five-field cron expression or an @descriptor.
func ValidateSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// Describe returns a human-readable description of a schedule.
func Describe(schedule string) string {
	switch schedule {
	case "* * * * *":
		return "Every minute"
	case "*/5 * * * *":
		return "Every 5 minutes"
	case "*/15 * * * *":
		return "Every 15 minutes"
	case "0 * * * *":
		return "Every hour at :00"
	default:
		return "Custom schedule: " + schedule
	}
}

// ReplayScheduler periodically replays pending offline mutations. A pass
// that is still running when the next tick fires is skipped.
type ReplayScheduler struct {
	replayer Replayer
	schedule string

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc

	statsMu    sync.Mutex
	lastReport offline.ReplayReport
	lastRunAt  time.Time
}

// NewReplayScheduler creates a scheduler. An empty schedule disables it.
func NewReplayScheduler(replayer Replayer, schedule string) *ReplayScheduler {
	logger := cron.PrintfLogger(log.Default())
	return &ReplayScheduler{
		replayer: replayer,
		schedule: schedule,
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithChain(cron.SkipIfStillRunning(logger)),
		),
	}
}

// Start begins the scheduler. It stops when ctx is cancelled.
func (s *ReplayScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if s.schedule == "" {
		log.Printf("[REPLAY] Scheduler disabled")
		return nil
	}

	if err := ValidateSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	var runCtx context.Context
	runCtx, s.cancelFunc = context.WithCancel(ctx)

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		s.run(runCtx)
	})
	if err != nil {
		s.cancelFunc()
		return fmt.Errorf("failed to schedule replay job: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.isRunning = true

	log.Printf("[REPLAY] Scheduler started with schedule '%s' (%s)", s.schedule, Describe(s.schedule))

	go func() {
		<-runCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop waits for a running pass and stops the scheduler.
func (s *ReplayScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	s.cancelFunc()
	done := s.cron.Stop()
	<-done.Done()

	s.cron.Remove(s.entryID)
	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("[REPLAY] Scheduler stopped")
}

// RunNow replays synchronously, outside the schedule.
func (s *ReplayScheduler) RunNow(ctx context.Context) (offline.ReplayReport, error) {
	return s.run(ctx)
}

// IsRunning returns whether the scheduler is active.
func (s *ReplayScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRunTime returns when the next pass will occur.
func (s *ReplayScheduler) NextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

// LastRun returns the report of the most recent pass and when it ran.
func (s *ReplayScheduler) LastRun() (offline.ReplayReport, time.Time) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.lastReport, s.lastRunAt
}

func (s *ReplayScheduler) run(ctx context.Context) (offline.ReplayReport, error) {
	report, err := s.replayer.ReplayIfOnline(ctx)

	s.statsMu.Lock()
	s.lastReport = report
	s.lastRunAt = time.Now()
	s.statsMu.Unlock()

	if err != nil {
		log.Printf("[REPLAY] Pass failed: %v", err)
	}
	return report, err
}
