// Package search runs full-text search over the chapters of one file in
// small batches, yielding between batches and stopping as soon as a newer
// search supersedes the running one.
package search

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/mrlokans/txtshelf/internal/anchor"
	"github.com/mrlokans/txtshelf/internal/chapters"
	"github.com/mrlokans/txtshelf/internal/offsets"
)

// ErrSuperseded is returned by a search that was replaced by a newer one.
var ErrSuperseded = errors.New("search superseded by a newer request")

// Corpus provides chapter descriptors and chapter text, typically from a
// cache.
type Corpus interface {
	Chapters(ctx context.Context) ([]chapters.Chapter, error)
	Content(ctx context.Context, index int) (string, error)
}

// Hit is one match. Local offsets are relative to the chapter, absolute
// offsets to the whole file.
type Hit struct {
	ChapterIndex int    `json:"chapter_index"`
	ChapterTitle string `json:"chapter_title,omitempty"`
	LocalStart   int    `json:"local_start"`
	LocalEnd     int    `json:"local_end"`
	AbsStart     int    `json:"abs_start"`
	AbsEnd       int    `json:"abs_end"`
	Snippet      string `json:"snippet"`
}

type Config struct {
	BatchSize     int // chapters scanned between yields
	MaxHits       int // 0 means unlimited
	SnippetRadius int // code points of context on each side of a hit
}

func DefaultConfig() Config {
	return Config{
		BatchSize:     10,
		MaxHits:       500,
		SnippetRadius: 30,
	}
}

// Engine serializes searches: starting a search cancels the one in flight.
type Engine struct {
	cfg Config

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc

	// yield runs between batches.
	yield func()
}

func NewEngine(cfg Config) *Engine {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	return &Engine{cfg: cfg, yield: runtime.Gosched}
}

func (e *Engine) begin(ctx context.Context) (context.Context, uint64, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancel != nil {
		e.cancel()
	}
	e.gen++
	gen := e.gen
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	return runCtx, gen, func() {
		e.mu.Lock()
		if e.gen == gen {
			e.cancel = nil
		}
		e.mu.Unlock()
		cancel()
	}
}

func (e *Engine) current(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gen == gen
}

// Search scans every chapter of corpus for query (case-insensitive, tolerant
// of line-ending and zero-width differences). It returns ErrSuperseded when
// another Search started on this engine before it finished.
func (e *Engine) Search(ctx context.Context, corpus Corpus, query string) ([]Hit, error) {
	runCtx, gen, done := e.begin(ctx)
	defer done()

	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	list, err := corpus.Chapters(runCtx)
	if err != nil {
		return nil, e.stopped(runCtx, gen, fmt.Errorf("load chapters: %w", err))
	}

	var hits []Hit
	for i, c := range list {
		if i > 0 && i%e.cfg.BatchSize == 0 {
			e.yield()
		}
		if runCtx.Err() != nil {
			return nil, e.stopped(runCtx, gen, runCtx.Err())
		}

		content, err := corpus.Content(runCtx, c.Index)
		if err != nil {
			return nil, e.stopped(runCtx, gen, fmt.Errorf("load chapter %d: %w", c.Index, err))
		}
		for _, occ := range anchor.FindAllOccurrencesFold(content, query) {
			hits = append(hits, Hit{
				ChapterIndex: c.Index,
				ChapterTitle: c.TitleOrEmpty(),
				LocalStart:   occ.Start,
				LocalEnd:     occ.End,
				AbsStart:     offsets.ToAbsolute(c, occ.Start),
				AbsEnd:       offsets.ToAbsolute(c, occ.End),
				Snippet:      snippet(content, occ, e.cfg.SnippetRadius),
			})
			if e.cfg.MaxHits > 0 && len(hits) >= e.cfg.MaxHits {
				return hits, nil
			}
		}
	}
	return hits, nil
}

// stopped reports ErrSuperseded instead of err when a newer search caused
// the cancellation.
func (e *Engine) stopped(ctx context.Context, gen uint64, err error) error {
	if ctx.Err() != nil && !e.current(gen) {
		return ErrSuperseded
	}
	return err
}

func snippet(content string, occ anchor.Occurrence, radius int) string {
	runes := []rune(content)
	from := max(0, occ.Start-radius)
	to := min(len(runes), occ.End+radius)
	s := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return ' '
		}
		return r
	}, string(runes[from:to]))
	return strings.TrimSpace(s)
}
