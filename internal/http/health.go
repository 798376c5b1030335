package http

import (
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/txtshelf/internal/database"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

// healthCheck verifies one dependency. A nil run func means the dependency is
// not configured and does not affect the overall status.
type healthCheck struct {
	name string
	run  func() error
}

// QueueState reports whether background workers are running.
type QueueState interface {
	Running() bool
}

type HealthController struct {
	checks  []healthCheck
	version string
}

// NewHealthController checks the database, the assets directory and,
// when queue is non-nil, the task workers.
func NewHealthController(db *database.Database, assetsRoot string, queue QueueState, version string) *HealthController {
	h := &HealthController{version: version}
	h.checks = append(h.checks,
		healthCheck{name: "database", run: databaseCheck(db)},
		healthCheck{name: "storage", run: directoryCheck(assetsRoot)},
	)
	if queue != nil {
		h.checks = append(h.checks, healthCheck{name: "tasks", run: func() error {
			if !queue.Running() {
				return errors.New("workers stopped")
			}
			return nil
		}})
	}
	return h
}

func databaseCheck(db *database.Database) func() error {
	if db == nil {
		return nil
	}
	return func() error {
		sqlDB, err := db.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Ping()
	}
}

// directoryCheck covers uploads and canonical text, both stored on disk.
func directoryCheck(root string) func() error {
	if root == "" {
		return nil
	}
	return func() error {
		info, err := os.Stat(root)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return errors.New("not a directory")
		}
		return nil
	}
}

// Status handles GET /health. Any failing check turns the response into a 503.
func (h *HealthController) Status(c *gin.Context) {
	res := HealthResponse{
		Status:  "healthy",
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  make(map[string]string, len(h.checks)),
	}

	for _, check := range h.checks {
		if check.run == nil {
			res.Checks[check.name] = "not configured"
			continue
		}
		if err := check.run(); err != nil {
			res.Checks[check.name] = "error: " + err.Error()
			res.Status = "unhealthy"
			continue
		}
		res.Checks[check.name] = "ok"
	}

	code := http.StatusOK
	if res.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.IndentedJSON(code, res)
}
