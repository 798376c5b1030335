package offline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mrlokans/txtshelf/internal/chapters"
)

// ErrNotCached is returned offline for chapters or text never fetched.
var ErrNotCached = errors.New("not available offline")

// Chapters returns the chapter list of a file, fetching it when online and
// falling back to the cached copy otherwise.
func (c *Client) Chapters(ctx context.Context, fileID uint) ([]chapters.Chapter, error) {
	if c.remote != nil {
		list, err := c.remote.Chapters(ctx, fileID)
		if err == nil {
			if err := putJSON(ctx, c.store, chaptersKey(fileID), list); err != nil {
				return nil, err
			}
			return list, nil
		}
		if !errors.Is(err, ErrUnavailable) {
			return nil, err
		}
	}
	return c.cachedChapters(ctx, fileID)
}

// ChapterContent returns the text of one chapter, fetching it when online and
// falling back to the cached copy otherwise.
func (c *Client) ChapterContent(ctx context.Context, fileID uint, index int) (string, error) {
	if c.remote != nil {
		text, err := c.remote.ChapterContent(ctx, fileID, index)
		if err == nil {
			if err := c.store.Put(ctx, contentKey(fileID, index), []byte(text)); err != nil {
				return "", err
			}
			return text, nil
		}
		if !errors.Is(err, ErrUnavailable) {
			return "", err
		}
	}
	return c.cachedContent(ctx, fileID, index)
}

// Prefetch caches the chapter list and every chapter's text of a file.
func (c *Client) Prefetch(ctx context.Context, fileID uint) (int, error) {
	list, err := c.Chapters(ctx, fileID)
	if err != nil {
		return 0, err
	}
	for _, ch := range list {
		if _, err := c.ChapterContent(ctx, fileID, ch.Index); err != nil {
			return 0, fmt.Errorf("prefetch chapter %d: %w", ch.Index, err)
		}
	}
	return len(list), nil
}

func (c *Client) cachedChapters(ctx context.Context, fileID uint) ([]chapters.Chapter, error) {
	var list []chapters.Chapter
	err := getJSON(ctx, c.store, chaptersKey(fileID), &list)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: chapters of file %d", ErrNotCached, fileID)
	}
	return list, err
}

func (c *Client) cachedContent(ctx context.Context, fileID uint, index int) (string, error) {
	raw, err := c.store.Get(ctx, contentKey(fileID, index))
	if errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("%w: chapter %d of file %d", ErrNotCached, index, fileID)
	}
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// CachedCorpus is the searchable part of a file held in the offline store:
// only chapters whose text has been cached take part.
type CachedCorpus struct {
	client *Client
	fileID uint
}

// Corpus returns a search corpus over the cached chapters of a file.
func (c *Client) Corpus(fileID uint) *CachedCorpus {
	return &CachedCorpus{client: c, fileID: fileID}
}

func (cc *CachedCorpus) Chapters(ctx context.Context) ([]chapters.Chapter, error) {
	list, err := cc.client.cachedChapters(ctx, cc.fileID)
	if err != nil {
		return nil, err
	}

	prefix := contentFilePrefix(cc.fileID)
	keys, err := cc.client.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	cached := make(map[int]bool, len(keys))
	for _, k := range keys {
		if idx, err := strconv.Atoi(strings.TrimPrefix(k, prefix)); err == nil {
			cached[idx] = true
		}
	}

	out := make([]chapters.Chapter, 0, len(list))
	for _, ch := range list {
		if cached[ch.Index] {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (cc *CachedCorpus) Content(ctx context.Context, index int) (string, error) {
	return cc.client.cachedContent(ctx, cc.fileID, index)
}
