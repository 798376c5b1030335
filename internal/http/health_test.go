package http

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/txtshelf/internal/database"
)

func setupHealthTestDB(t *testing.T) *database.Database {
	t.Helper()
	dbPath := "./test_health_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.NewQuietDatabase(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
		os.Remove(dbPath)
	})
	return db
}

type queueFlag bool

func (q queueFlag) Running() bool { return bool(q) }

func getHealth(t *testing.T, controller *HealthController) (int, HealthResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health", controller.Status)

	w := doJSON(router, http.MethodGet, "/health", nil)

	var res HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return w.Code, res
}

func TestHealthController_Status(t *testing.T) {
	closedDB := func(t *testing.T) *database.Database {
		db := setupHealthTestDB(t)
		db.Close()
		return db
	}
	notADir := func(t *testing.T) string {
		path := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		return path
	}

	tests := []struct {
		name       string
		db         func(t *testing.T) *database.Database
		assetsRoot func(t *testing.T) string
		queue      QueueState
		wantCode   int
		wantChecks map[string]string
	}{
		{
			name:       "everything configured and up",
			db:         setupHealthTestDB,
			assetsRoot: func(t *testing.T) string { return t.TempDir() },
			queue:      queueFlag(true),
			wantCode:   http.StatusOK,
			wantChecks: map[string]string{"database": "ok", "storage": "ok", "tasks": "ok"},
		},
		{
			name:       "nothing configured",
			wantCode:   http.StatusOK,
			wantChecks: map[string]string{"database": "not configured", "storage": "not configured"},
		},
		{
			name:       "closed database",
			db:         closedDB,
			wantCode:   http.StatusServiceUnavailable,
			wantChecks: map[string]string{"storage": "not configured"},
		},
		{
			name:       "missing assets directory",
			db:         setupHealthTestDB,
			assetsRoot: func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing") },
			wantCode:   http.StatusServiceUnavailable,
			wantChecks: map[string]string{"database": "ok"},
		},
		{
			name:       "assets path is a file",
			assetsRoot: notADir,
			wantCode:   http.StatusServiceUnavailable,
			wantChecks: map[string]string{"storage": "error: not a directory"},
		},
		{
			name:       "stopped workers",
			queue:      queueFlag(false),
			wantCode:   http.StatusServiceUnavailable,
			wantChecks: map[string]string{"tasks": "error: workers stopped"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var db *database.Database
			if tt.db != nil {
				db = tt.db(t)
			}
			var root string
			if tt.assetsRoot != nil {
				root = tt.assetsRoot(t)
			}

			code, res := getHealth(t, NewHealthController(db, root, tt.queue, "1.0.0"))

			assert.Equal(t, tt.wantCode, code)
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, "healthy", res.Status)
			} else {
				assert.Equal(t, "unhealthy", res.Status)
			}
			for name, want := range tt.wantChecks {
				assert.Equal(t, want, res.Checks[name], name)
			}
		})
	}
}

func TestHealthController_TasksCheckOnlyWithQueue(t *testing.T) {
	_, res := getHealth(t, NewHealthController(nil, "", nil, "1.0.0"))

	_, ok := res.Checks["tasks"]
	assert.False(t, ok)
}

func TestHealthResponse_Metadata(t *testing.T) {
	_, res := getHealth(t, NewHealthController(nil, "", nil, "2.5.3"))

	assert.Equal(t, "2.5.3", res.Version)
	_, err := time.Parse(time.RFC3339, res.Time)
	assert.NoError(t, err)

	data, err := json.Marshal(HealthResponse{Status: "healthy", Checks: map[string]string{}})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "version")
}
