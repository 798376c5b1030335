package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/txtshelf/internal/apiclient"
	"github.com/mrlokans/txtshelf/internal/chapters"
	"github.com/mrlokans/txtshelf/internal/config"
	"github.com/mrlokans/txtshelf/internal/location"
	"github.com/mrlokans/txtshelf/internal/offline"
)

const sampleBook = "序\n第一章 开始\n内容A\n第二章 继续\n内容B"

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.txt")
	require.NoError(t, os.WriteFile(path, []byte(sampleBook), 0o644))
	return path
}

func TestDetectChaptersCommand_ParseFlags(t *testing.T) {
	cmd := NewDetectChaptersCommand()
	assert.Error(t, cmd.ParseFlags(nil))

	require.NoError(t, cmd.ParseFlags([]string{"-file", "a.txt", "-pattern", "^Part", "-json"}))
	assert.Equal(t, "a.txt", cmd.FilePath)
	assert.Equal(t, "^Part", cmd.Pattern)
	assert.True(t, cmd.JSON)
	assert.Equal(t, chapters.DefaultMatchTimeout, cmd.MatchTimeout)
}

func TestDetectChaptersCommand_JSON(t *testing.T) {
	var out bytes.Buffer
	cmd := &DetectChaptersCommand{FilePath: writeSample(t), JSON: true, Out: &out}

	require.NoError(t, cmd.Run())

	var list []chapters.Chapter
	require.NoError(t, json.Unmarshal(out.Bytes(), &list))
	require.Len(t, list, 3)
	assert.Nil(t, list[0].Title)
	assert.Equal(t, 2, list[1].Offset)
	require.NotNil(t, list[2].Title)
	assert.Equal(t, "第二章 继续", *list[2].Title)
}

func TestDetectChaptersCommand_Table(t *testing.T) {
	var out bytes.Buffer
	cmd := &DetectChaptersCommand{FilePath: writeSample(t), Out: &out}

	require.NoError(t, cmd.Run())
	assert.Contains(t, out.String(), "Encoding: utf-8")
	assert.Contains(t, out.String(), "Chapters: 3")
	assert.Contains(t, out.String(), "(untitled)")
}

func TestDetectChaptersCommand_InvalidPattern(t *testing.T) {
	cmd := &DetectChaptersCommand{FilePath: writeSample(t), Pattern: "(", Out: &bytes.Buffer{}}
	assert.ErrorIs(t, cmd.Run(), chapters.ErrInvalidPattern)
}

func newSyncCommand(t *testing.T, serverURL string) (*SyncCommand, *bytes.Buffer) {
	t.Helper()
	cfg := config.NewConfig()
	cmd := NewSyncCommand(cfg)
	cmd.ServerURL = serverURL
	cmd.Timeout = time.Second
	cmd.store = offline.NewMemoryStore()
	out := &bytes.Buffer{}
	cmd.Out = out
	return cmd, out
}

func TestSyncCommand_ParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{name: "no action", args: nil, wantErr: true},
		{name: "unknown action", args: []string{"explode"}, wantErr: true},
		{name: "status", args: []string{"status", "-json"}},
		{name: "abandon needs id", args: []string{"abandon"}, wantErr: true},
		{name: "abandon", args: []string{"abandon", "-id", "abc"}},
		{name: "prefetch needs file", args: []string{"prefetch"}, wantErr: true},
		{name: "annotate", args: []string{"annotate", "-book", "1", "-file", "2", "-start", "0", "-end", "3", "-text", "abc"}},
		{name: "annotate needs book", args: []string{"annotate", "-file", "2"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewSyncCommand(config.NewConfig())
			err := cmd.ParseFlags(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSyncCommand_QueueWhileOffline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cmd, out := newSyncCommand(t, server.URL)
	require.NoError(t, cmd.ParseFlags([]string{"annotate", "-book", "1", "-file", "2", "-start", "4", "-end", "7", "-text", "内容A"}))
	require.NoError(t, cmd.Run())
	assert.Contains(t, out.String(), "Queued annotation -1")

	out.Reset()
	cmd.Action = SyncActionStatus
	cmd.JSON = true
	require.NoError(t, cmd.Run())

	var list []offline.Mutation
	require.NoError(t, json.Unmarshal(out.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, offline.OpCreate, list[0].Op)
	assert.Equal(t, offline.StatusPending, list[0].Status)

	out.Reset()
	cmd.Action = SyncActionReplay
	cmd.JSON = false
	require.NoError(t, cmd.Run())
	assert.Contains(t, out.String(), "Server unreachable")

	out.Reset()
	cmd.Action = SyncActionAbandon
	cmd.MutationID = list[0].ID
	require.NoError(t, cmd.Run())
	assert.True(t, strings.HasPrefix(out.String(), "Abandoned mutation"))

	out.Reset()
	cmd.Action = SyncActionStatus
	cmd.JSON = true
	require.NoError(t, cmd.Run())
	require.NoError(t, json.Unmarshal(out.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, offline.StatusAbandoned, list[0].Status)
}

func TestSyncCommand_WatchReportsLastPass(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cmd, out := newSyncCommand(t, server.URL)
	cmd.Schedule = "@every 1h"
	client := offline.NewClient(cmd.store, apiclient.NewClient(server.URL, time.Second))
	client.AutoFlush = false
	raw, err := location.EncodeTXT(location.TXT{FileID: 2, AbsStart: 4, AbsEnd: 7, SelectionText: "内容A"})
	require.NoError(t, err)
	queued, err := client.Create(context.Background(), 1, offline.CreateRequest{Location: raw})
	require.NoError(t, err)
	require.True(t, queued.Pending)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, cmd.watchUntil(ctx, client))

	assert.Contains(t, out.String(), "Last replay at")
	assert.Contains(t, out.String(), "Server unreachable")
}

func TestSyncCommand_UnsupportedBackend(t *testing.T) {
	cmd := NewSyncCommand(config.NewConfig())
	cmd.Backend = config.OfflineBackendMemory
	cmd.Action = SyncActionStatus

	assert.Error(t, cmd.Run())
}

func TestImportTextCommand(t *testing.T) {
	dbPath := "./test_cli_" + t.Name() + ".db"
	defer os.Remove(dbPath)

	var out bytes.Buffer
	cmd := NewImportTextCommand()
	cmd.Out = &out
	require.NoError(t, cmd.ParseFlags([]string{"-file", writeSample(t), "-db", dbPath, "-assets", t.TempDir()}))

	require.NoError(t, cmd.Run())
	assert.Contains(t, out.String(), "3 chapters")
}
