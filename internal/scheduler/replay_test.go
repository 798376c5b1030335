package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/txtshelf/internal/offline"
)

type fakeReplayer struct {
	calls  atomic.Int32
	report offline.ReplayReport
	err    error
}

func (f *fakeReplayer) ReplayIfOnline(ctx context.Context) (offline.ReplayReport, error) {
	f.calls.Add(1)
	return f.report, f.err
}

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		schedule string
		wantErr  bool
	}{
		{"* * * * *", false},
		{"*/15 * * * *", false},
		{"@every 30s", false},
		{"@hourly", false},
		{"not a schedule", true},
		{"* * * *", true},
	}

	for _, tt := range tests {
		t.Run(tt.schedule, func(t *testing.T) {
			err := ValidateSchedule(tt.schedule)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Every minute", Describe(DefaultSchedule))
	assert.Equal(t, "Custom schedule: 0 3 * * *", Describe("0 3 * * *"))
}

func TestReplayScheduler_StartStop(t *testing.T) {
	s := NewReplayScheduler(&fakeReplayer{}, DefaultSchedule)

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	require.NotNil(t, s.NextRunTime())

	// second start is a no-op
	require.NoError(t, s.Start(context.Background()))

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.NextRunTime())
}

func TestReplayScheduler_Disabled(t *testing.T) {
	s := NewReplayScheduler(&fakeReplayer{}, "")

	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}

func TestReplayScheduler_InvalidSchedule(t *testing.T) {
	s := NewReplayScheduler(&fakeReplayer{}, "every now and then")

	err := s.Start(context.Background())
	assert.Error(t, err)
	assert.False(t, s.IsRunning())
}

func TestReplayScheduler_RunNowRecordsReport(t *testing.T) {
	replayer := &fakeReplayer{report: offline.ReplayReport{Applied: 3}}
	s := NewReplayScheduler(replayer, DefaultSchedule)

	report, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Applied)
	assert.Equal(t, int32(1), replayer.calls.Load())

	last, at := s.LastRun()
	assert.Equal(t, 3, last.Applied)
	assert.False(t, at.IsZero())
}

func TestReplayScheduler_RunNowPropagatesError(t *testing.T) {
	replayer := &fakeReplayer{err: errors.New("store closed")}
	s := NewReplayScheduler(replayer, DefaultSchedule)

	_, err := s.RunNow(context.Background())
	assert.EqualError(t, err, "store closed")
}

func TestReplayScheduler_StopsWithContext(t *testing.T) {
	s := NewReplayScheduler(&fakeReplayer{}, DefaultSchedule)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool { return !s.IsRunning() }, time.Second, 10*time.Millisecond)
}

type fakeEnqueuer struct {
	calls atomic.Int32
}

func (f *fakeEnqueuer) SchedulePruneAssets() (string, error) {
	f.calls.Add(1)
	return "task-1", nil
}

func TestPruneScheduler(t *testing.T) {
	enqueuer := &fakeEnqueuer{}

	s := NewPruneScheduler(enqueuer, "@every 1s")
	require.NoError(t, s.Start())
	assert.Eventually(t, func() bool { return enqueuer.calls.Load() > 0 }, 3*time.Second, 5*time.Millisecond)
	s.Stop()

	disabled := NewPruneScheduler(enqueuer, "")
	require.NoError(t, disabled.Start())
	disabled.Stop()

	assert.Error(t, NewPruneScheduler(enqueuer, "bogus").Start())
}
