package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/txtshelf/internal/offline"
)

func newTestClient(server *httptest.Server) *Client {
	c := NewClient(server.URL+"/", time.Second)
	c.httpClient = server.Client()
	c.retryDelay = time.Millisecond
	return c
}

func TestClient_StatusClassification(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantErr    error
		wantCode   string
	}{
		{name: "not found is gone", statusCode: http.StatusNotFound, body: `{"error":"annotation not found"}`, wantErr: offline.ErrGone},
		{name: "server error is unavailable", statusCode: http.StatusBadGateway, body: "bad gateway", wantErr: offline.ErrUnavailable},
		{name: "validation error is permanent", statusCode: http.StatusUnprocessableEntity, body: `{"error":"bad","code":"invalid_location"}`, wantCode: "invalid_location"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			err := newTestClient(server).DeleteAnnotation(context.Background(), 7)
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.statusCode, apiErr.StatusCode)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.False(t, errors.Is(err, offline.ErrUnavailable))
				assert.False(t, errors.Is(err, offline.ErrGone))
				assert.Equal(t, tt.wantCode, apiErr.Code)
			}
		})
	}
}

func TestClient_TransportFailureIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := newTestClient(server)
	server.Close()

	err := client.Ping(context.Background())
	assert.ErrorIs(t, err, offline.ErrUnavailable)
}

func TestClient_CreateAnnotation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/books/3/annotations", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req offline.CreateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, `{"format":"txt"}`, req.Location)
		require.NotNil(t, req.Color)
		assert.Equal(t, "yellow", *req.Color)

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":42,"book_id":3}`))
	}))
	defer server.Close()

	color := "yellow"
	id, err := newTestClient(server).CreateAnnotation(context.Background(), 3, offline.CreateRequest{
		Location: `{"format":"txt"}`,
		Color:    &color,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestClient_ReadsRetryServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "/files/5/chapters/1", r.URL.Path)
		w.Write([]byte(`{"index":1,"content":"内容B"}`))
	}))
	defer server.Close()

	content, err := newTestClient(server).ChapterContent(context.Background(), 5, 1)
	require.NoError(t, err)
	assert.Equal(t, "内容B", content)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_ReadsGiveUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(server).Chapters(context.Background(), 5)

	assert.ErrorIs(t, err, offline.ErrUnavailable)
	assert.Equal(t, int32(1+maxRetries), calls.Load(), "one attempt plus every retry")
}

func TestClient_WritesDoNotRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	color := "red"
	err := newTestClient(server).UpdateAnnotation(context.Background(), 1, offline.Patch{Color: &color})
	assert.ErrorIs(t, err, offline.ErrUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_ListsDecode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/books/1/annotations":
			w.Write([]byte(`{"annotations":[{"id":9,"book_id":1,"file_id":2,"location":"{}","chapter_index":null,"renderable":false}],"total":1}`))
		case "/files/2/chapters":
			w.Write([]byte(`{"file_id":2,"chapters":[{"index":0,"title":null,"offset":0,"length":4},{"index":1,"title":"第二章","offset":4,"length":6}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := newTestClient(server)
	ctx := context.Background()

	anns, err := client.ListAnnotations(ctx, 1)
	require.NoError(t, err)
	require.Len(t, anns, 1)
	assert.Equal(t, int64(9), anns[0].ID)
	assert.Equal(t, uint(2), anns[0].FileID)
	assert.False(t, anns[0].Pending)

	list, err := client.Chapters(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Nil(t, list[0].Title)
	require.NotNil(t, list[1].Title)
	assert.Equal(t, "第二章", *list[1].Title)
	assert.Equal(t, 4, list[1].Offset)

	_, err = client.Chapters(ctx, 3)
	assert.ErrorIs(t, err, offline.ErrGone)
}

func TestCalculateRetryDelay(t *testing.T) {
	c := &Client{retryDelay: time.Second}
	assert.Equal(t, time.Second, c.calculateRetryDelay(0))
	assert.Equal(t, 4*time.Second, c.calculateRetryDelay(2))
	assert.Equal(t, maxRetryDelay, c.calculateRetryDelay(10))
}
