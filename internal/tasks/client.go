package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikestefanello/backlite"
)

var (
	ErrUnknownTaskType = errors.New("unknown task type")
	ErrFileIDRequired  = errors.New("file_id is required")
)

// TaskType describes a task that can be queued by name.
type TaskType struct {
	Name        string `json:"type"`
	Description string `json:"description"`
	Queue       string `json:"queue"`
	NeedsFile   bool   `json:"needs_file"`
}

// TaskTypes lists the tasks that can be triggered manually.
func TaskTypes() []TaskType {
	return []TaskType{
		{
			Name:        "detect_chapters",
			Description: "Detect and store the default chapter set of a file",
			Queue:       DetectChaptersTask{}.Config().Name,
			NeedsFile:   true,
		},
		{
			Name:        "prune_assets",
			Description: "Remove uploads and cached text no file references",
			Queue:       PruneAssetsTask{}.Config().Name,
		},
	}
}

// Client runs the background queues on a SQLite database of its own.
type Client struct {
	backlite *backlite.Client
	db       *sql.DB
	workers  int

	mu      sync.RWMutex
	running bool
}

// TasksDBPath returns the queue database path for a main database path:
// "./txtshelf.db" becomes "./txtshelf-tasks.db".
func TasksDBPath(mainDBPath string) string {
	ext := filepath.Ext(mainDBPath)
	return strings.TrimSuffix(mainDBPath, ext) + "-tasks" + ext
}

// NewClient opens the queue database next to mainDBPath and installs the
// backlite schema.
func NewClient(mainDBPath string, cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()

	dsn := TasksDBPath(mainDBPath) + "?_journal=WAL&_timeout=5000&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open tasks database: %w", err)
	}
	// Workers each hold a connection while a task runs
	db.SetMaxOpenConns(cfg.Workers + 5)
	db.SetMaxIdleConns(cfg.Workers + 2)
	db.SetConnMaxLifetime(time.Hour)

	bl, err := backlite.NewClient(backlite.ClientConfig{
		DB:              db,
		NumWorkers:      cfg.Workers,
		ReleaseAfter:    cfg.ReleaseAfter,
		CleanupInterval: cfg.CleanupInterval,
		Logger:          queueLogger{},
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create task client: %w", err)
	}
	if err := bl.Install(); err != nil {
		db.Close()
		return nil, fmt.Errorf("install task schema: %w", err)
	}

	return &Client{backlite: bl, db: db, workers: cfg.Workers}, nil
}

// Register adds queues. Call before Start.
func (c *Client) Register(queues ...backlite.Queue) {
	for _, q := range queues {
		c.backlite.Register(q)
	}
}

// Start processes tasks until ctx is cancelled or Stop is called. It does
// not block.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.running = true
	log.Printf("[TASK] Queue started with %d workers", c.workers)
	c.backlite.Start(ctx)
}

// Running reports whether the workers have been started and not stopped.
func (c *Client) Running() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// Stop waits for in-flight tasks. It returns false if ctx expired first.
func (c *Client) Stop(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return true
	}
	c.running = false

	if !c.backlite.Stop(ctx) {
		log.Println("[TASK] Queue stop timed out, some tasks may be released later")
		return false
	}
	log.Println("[TASK] Queue stopped")
	return true
}

// Close releases the queue database. Call after Stop.
func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Add starts an operation to enqueue one or more tasks.
func (c *Client) Add(tasks ...backlite.Task) *backlite.TaskAddOp {
	return c.backlite.Add(tasks...)
}

// Enqueue queues a task by its TaskTypes name. fileID is only read by tasks
// that need a file.
func (c *Client) Enqueue(name string, fileID uint) (string, error) {
	var task backlite.Task
	switch name {
	case "detect_chapters":
		if fileID == 0 {
			return "", ErrFileIDRequired
		}
		task = DetectChaptersTask{FileID: fileID}
	case "prune_assets":
		task = PruneAssetsTask{}
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownTaskType, name)
	}

	ids, err := c.backlite.Add(task).Save()
	if err != nil {
		return "", fmt.Errorf("queue %s: %w", name, err)
	}
	return ids[0], nil
}

// ScheduleDetectChapters queues chapter detection for a newly ingested file.
func (c *Client) ScheduleDetectChapters(fileID uint) error {
	id, err := c.Enqueue("detect_chapters", fileID)
	if err != nil {
		return err
	}
	log.Printf("[TASK] Queued chapter detection for file %d (%s)", fileID, id)
	return nil
}

// SchedulePruneAssets queues removal of unreferenced uploads.
func (c *Client) SchedulePruneAssets() (string, error) {
	return c.Enqueue("prune_assets", 0)
}

// Status returns the status of a task by ID.
func (c *Client) Status(ctx context.Context, taskID string) (backlite.TaskStatus, error) {
	return c.backlite.Status(ctx, taskID)
}

// StatusName renders a backlite status for API responses.
func StatusName(status backlite.TaskStatus) string {
	switch status {
	case backlite.TaskStatusPending:
		return "pending"
	case backlite.TaskStatusRunning:
		return "running"
	case backlite.TaskStatusSuccess:
		return "success"
	case backlite.TaskStatusFailure:
		return "failure"
	case backlite.TaskStatusNotFound:
		return "not_found"
	}
	return "unknown"
}

// queueLogger routes backlite output through the standard logger.
type queueLogger struct{}

func (queueLogger) Info(message string, params ...any) {
	log.Printf("[TASK] "+message, params...)
}

func (queueLogger) Error(message string, params ...any) {
	log.Printf("[TASK ERROR] "+message, params...)
}
