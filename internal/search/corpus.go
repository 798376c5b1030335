package search

import (
	"context"

	"github.com/mrlokans/txtshelf/internal/chapters"
)

// TextCorpus serves chapters sliced from one canonical text held in memory.
type TextCorpus struct {
	List []chapters.Chapter
	Text []rune
}

// NewTextCorpus builds a corpus over text.
func NewTextCorpus(list []chapters.Chapter, text string) *TextCorpus {
	return &TextCorpus{List: list, Text: []rune(text)}
}

func (c *TextCorpus) Chapters(context.Context) ([]chapters.Chapter, error) {
	return c.List, nil
}

func (c *TextCorpus) Content(_ context.Context, index int) (string, error) {
	for _, ch := range c.List {
		if ch.Index == index {
			return chapters.Slice(c.Text, ch), nil
		}
	}
	return "", chapters.ErrChapterNotFound
}
