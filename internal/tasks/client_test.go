package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(filepath.Join(t.TempDir(), "shelf.db"), Config{Workers: 1})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestNewClient_CreatesQueueDatabase(t *testing.T) {
	dir := t.TempDir()

	client, err := NewClient(filepath.Join(dir, "shelf.db"), Config{Workers: 1})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "shelf-tasks.db"))
	assert.NoError(t, err)
	assert.NoError(t, client.Close())
}

func TestClient_StartStop(t *testing.T) {
	client := newTestClient(t)
	assert.False(t, client.Running())
	assert.True(t, client.Stop(context.Background()), "stopping an idle client is a no-op")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client.Start(ctx)
	client.Start(ctx)
	assert.True(t, client.Running())

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	assert.True(t, client.Stop(stopCtx))
	assert.False(t, client.Running())
}

func TestClient_EnqueueValidation(t *testing.T) {
	client := newTestClient(t)
	client.Register(
		NewDetectChaptersQueue(&fakeDetector{calls: make(chan uint, 1)}),
		NewPruneAssetsQueue(fakePruner{}, nil, "last", "count"),
	)

	tests := []struct {
		name    string
		task    string
		fileID  uint
		wantErr error
	}{
		{"unknown type", "rebuild_index", 0, ErrUnknownTaskType},
		{"detect needs a file", "detect_chapters", 0, ErrFileIDRequired},
		{"detect with file", "detect_chapters", 3, nil},
		{"prune ignores file", "prune_assets", 9, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := client.Enqueue(tt.task, tt.fileID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, id)

			status, err := client.Status(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, "pending", StatusName(status))
		})
	}
}

func TestTaskTypes_MatchQueues(t *testing.T) {
	types := TaskTypes()
	require.Len(t, types, 2)
	assert.Equal(t, DetectChaptersTask{}.Config().Name, types[0].Queue)
	assert.True(t, types[0].NeedsFile)
	assert.Equal(t, PruneAssetsTask{}.Config().Name, types[1].Queue)
	assert.False(t, types[1].NeedsFile)
}

func TestStatusName(t *testing.T) {
	assert.Equal(t, "success", StatusName(backlite.TaskStatusSuccess))
	assert.Equal(t, "not_found", StatusName(backlite.TaskStatusNotFound))
	assert.Equal(t, "unknown", StatusName(backlite.TaskStatus(99)))
}

// TestTask is a simple task for testing
type TestTask struct {
	Value string `json:"value"`
}

func (t TestTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "test_task",
		MaxAttempts: 1,
		Backoff:     time.Second,
		Timeout:     5 * time.Second,
	}
}

func TestTaskEnqueue(t *testing.T) {
	client := newTestClient(t)

	executed := make(chan string, 1)
	queue := backlite.NewQueue(func(ctx context.Context, task TestTask) error {
		executed <- task.Value
		return nil
	})
	client.Register(queue)

	// Start client
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	// Enqueue a task
	ids, err := client.Add(TestTask{Value: "hello"}).Save()
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	// Wait for task to be executed
	select {
	case val := <-executed:
		assert.Equal(t, "hello", val)
	case <-time.After(5 * time.Second):
		t.Fatal("task was not executed within timeout")
	}
}

func TestTasksDBPath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "txtshelf-tasks.db"), TasksDBPath(filepath.Join("data", "txtshelf.db")))
	assert.Equal(t, "shelf-tasks", TasksDBPath("shelf"))
}

func TestDetectChaptersTaskConfig(t *testing.T) {
	task := DetectChaptersTask{FileID: 123}
	cfg := task.Config()

	assert.Equal(t, "detect_chapters", cfg.Name)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Backoff)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
	assert.NotNil(t, cfg.Retention)
}

func TestPruneAssetsTaskConfig(t *testing.T) {
	cfg := PruneAssetsTask{}.Config()

	assert.Equal(t, "prune_assets", cfg.Name)
	assert.Equal(t, 1, cfg.MaxAttempts)
	assert.Equal(t, 5*time.Minute, cfg.Timeout)
}

type fakeDetector struct {
	calls chan uint
	err   error
}

func (f *fakeDetector) EnsureChapters(fileID uint) (int, error) {
	f.calls <- fileID
	return 2, f.err
}

func TestDetectChaptersProcessor(t *testing.T) {
	detector := &fakeDetector{calls: make(chan uint, 1)}

	err := DetectChaptersProcessor(detector)(context.Background(), DetectChaptersTask{FileID: 7})

	require.NoError(t, err)
	assert.Equal(t, uint(7), <-detector.calls)

	detector.err = errors.New("boom")
	err = DetectChaptersProcessor(detector)(context.Background(), DetectChaptersTask{FileID: 8})
	assert.ErrorContains(t, err, "file 8")

	err = DetectChaptersProcessor(nil)(context.Background(), DetectChaptersTask{FileID: 1})
	assert.Error(t, err)
}

type fakePruner struct{ removed int }

func (f fakePruner) PruneAssets() (int, error) { return f.removed, nil }

type fakeRecorder struct {
	times map[string]time.Time
	ints  map[string]int
}

func (f *fakeRecorder) SetTime(key string, t time.Time) error {
	f.times[key] = t
	return nil
}

func (f *fakeRecorder) SetInt(key string, n int) error {
	f.ints[key] = n
	return nil
}

func TestPruneAssetsProcessor(t *testing.T) {
	recorder := &fakeRecorder{times: map[string]time.Time{}, ints: map[string]int{}}

	err := PruneAssetsProcessor(fakePruner{removed: 4}, recorder, "last", "count")(context.Background(), PruneAssetsTask{})

	require.NoError(t, err)
	assert.Equal(t, 4, recorder.ints["count"])
	assert.False(t, recorder.times["last"].IsZero())

	require.NoError(t, PruneAssetsProcessor(fakePruner{}, nil, "last", "count")(context.Background(), PruneAssetsTask{}))
}

func TestScheduleDetectChapters(t *testing.T) {
	client := newTestClient(t)

	detector := &fakeDetector{calls: make(chan uint, 1)}
	client.Register(NewDetectChaptersQueue(detector), NewPruneAssetsQueue(fakePruner{}, nil, "last", "count"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	require.NoError(t, client.ScheduleDetectChapters(42))

	select {
	case id := <-detector.calls:
		assert.Equal(t, uint(42), id)
	case <-time.After(5 * time.Second):
		t.Fatal("detection task was not executed within timeout")
	}

	id, err := client.SchedulePruneAssets()
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 15*time.Minute, cfg.ReleaseAfter)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{Workers: 4}.withDefaults()

	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 15*time.Minute, cfg.ReleaseAfter)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)

	cfg = Config{Workers: -1, ReleaseAfter: time.Minute}.withDefaults()
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, time.Minute, cfg.ReleaseAfter)
}
