package services

import (
	"context"
	"sync"

	"github.com/mrlokans/txtshelf/internal/search"
)

// SearchService runs chunked full-text search over a file's chapters. A
// file has one engine while searches on it are running, so a new query
// supersedes the previous one still in flight. Idle engines are dropped.
type SearchService struct {
	chapters *ChapterService
	cfg      search.Config

	mu      sync.Mutex
	engines map[uint]*activeEngine
}

type activeEngine struct {
	engine   *search.Engine
	searches int
}

func NewSearchService(chapterService *ChapterService, cfg search.Config) *SearchService {
	return &SearchService{
		chapters: chapterService,
		cfg:      cfg,
		engines:  make(map[uint]*activeEngine),
	}
}

// acquire returns the engine of fileID and a func releasing it.
func (s *SearchService) acquire(fileID uint) (*search.Engine, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.engines[fileID]
	if !ok {
		a = &activeEngine{engine: search.NewEngine(s.cfg)}
		s.engines[fileID] = a
	}
	a.searches++

	return a.engine, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		a.searches--
		if a.searches == 0 {
			delete(s.engines, fileID)
		}
	}
}

func (s *SearchService) activeEngines() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.engines)
}

// Search returns the hits for query in fileID. It reads the stored chapter
// set, or segments in memory when none is stored.
func (s *SearchService) Search(ctx context.Context, fileID uint, query string) ([]search.Hit, error) {
	list, err := s.chapters.Current(fileID)
	if err != nil {
		return nil, err
	}
	_, text, err := s.chapters.Text(fileID)
	if err != nil {
		return nil, err
	}

	engine, release := s.acquire(fileID)
	defer release()
	return engine.Search(ctx, search.NewTextCorpus(list, text), query)
}
