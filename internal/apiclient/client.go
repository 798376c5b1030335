// Package apiclient is the HTTP implementation of offline.Remote.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mrlokans/txtshelf/internal/chapters"
	"github.com/mrlokans/txtshelf/internal/offline"
)

const (
	defaultTimeout     = 30 * time.Second
	maxRetries         = 3
	initialRetryDelay  = 1 * time.Second
	maxRetryDelay      = 30 * time.Second
	retryBackoffFactor = 2
)

// Client talks to a txtshelf server. Reads are retried with backoff on
// server errors; writes are not, the offline queue retries them.
type Client struct {
	httpClient *http.Client
	baseURL    string
	retryDelay time.Duration
}

// NewClient creates a client for the server at baseURL. A zero timeout uses
// the default.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		retryDelay: initialRetryDelay,
	}
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type createResponse struct {
	ID int64 `json:"id"`
}

type listResponse struct {
	Annotations []offline.Annotation `json:"annotations"`
}

type chaptersResponse struct {
	Chapters []chapters.Chapter `json:"chapters"`
}

type contentResponse struct {
	Content string `json:"content"`
}

// Ping checks that the server answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/ping", nil, nil)
}

// CreateAnnotation posts a new annotation and returns its server id.
func (c *Client) CreateAnnotation(ctx context.Context, bookID uint, req offline.CreateRequest) (int64, error) {
	var resp createResponse
	path := fmt.Sprintf("/books/%d/annotations", bookID)
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return 0, err
	}
	if resp.ID <= 0 {
		return 0, fmt.Errorf("server returned invalid annotation id %d", resp.ID)
	}
	return resp.ID, nil
}

func (c *Client) UpdateAnnotation(ctx context.Context, id int64, p offline.Patch) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/annotations/%d", id), p, nil)
}

func (c *Client) DeleteAnnotation(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/annotations/%d", id), nil, nil)
}

// ListAnnotations fetches every annotation of a book.
func (c *Client) ListAnnotations(ctx context.Context, bookID uint) ([]offline.Annotation, error) {
	var resp listResponse
	if err := c.get(ctx, fmt.Sprintf("/books/%d/annotations", bookID), &resp); err != nil {
		return nil, err
	}
	return resp.Annotations, nil
}

// Chapters fetches the chapter set of a file.
func (c *Client) Chapters(ctx context.Context, fileID uint) ([]chapters.Chapter, error) {
	var resp chaptersResponse
	if err := c.get(ctx, fmt.Sprintf("/files/%d/chapters", fileID), &resp); err != nil {
		return nil, err
	}
	return resp.Chapters, nil
}

// ChapterContent fetches the text of one chapter.
func (c *Client) ChapterContent(ctx context.Context, fileID uint, index int) (string, error) {
	var resp contentResponse
	if err := c.get(ctx, fmt.Sprintf("/files/%d/chapters/%d", fileID, index), &resp); err != nil {
		return "", err
	}
	return resp.Content, nil
}

// get retries idempotent reads on server errors: one attempt plus up to
// maxRetries retries.
func (c *Client) get(ctx context.Context, path string, out any) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.calculateRetryDelay(attempt - 1)
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", offline.ErrUnavailable, ctx.Err())
			case <-time.After(delay):
			}
		}

		lastErr = c.do(ctx, http.MethodGet, path, nil, out)
		if lastErr == nil {
			return nil
		}
		if !isRetryableError(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request failed: %v", offline.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := readAPIError(resp)
		switch {
		case resp.StatusCode == http.StatusNotFound:
			return fmt.Errorf("%w: %w", offline.ErrGone, apiErr)
		case resp.StatusCode >= 500:
			return fmt.Errorf("%w: %w", offline.ErrUnavailable, apiErr)
		default:
			return apiErr
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func readAPIError(resp *http.Response) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	var eb errorBody
	if json.Unmarshal(raw, &eb) == nil && eb.Error != "" {
		apiErr.Message = eb.Error
		apiErr.Code = eb.Code
	}
	return apiErr
}

func (c *Client) calculateRetryDelay(attempt int) time.Duration {
	delay := c.retryDelay
	for i := 0; i < attempt; i++ {
		delay *= time.Duration(retryBackoffFactor)
	}
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}

func isRetryableError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode >= 500
}
