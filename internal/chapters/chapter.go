// Package chapters splits canonical text into contiguous chapters and applies
// structural edits (rename, delete-with-merge) that keep the chapter set
// gap-free and renumbered.
//
// All offsets and lengths are measured in Unicode code points of the
// canonical text produced by package textenc.
package chapters

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxTitleRunes caps chapter titles, measured in code points.
const MaxTitleRunes = 120

var (
	// ErrInvalidPattern is returned when a boundary pattern fails to compile or execute.
	ErrInvalidPattern = errors.New("invalid chapter pattern")
	// ErrInvalidChapters is returned when a chapter set violates the segmentation invariants.
	ErrInvalidChapters = errors.New("invalid chapter set")
	// ErrChapterNotFound is returned when no chapter has the requested index.
	ErrChapterNotFound = errors.New("chapter not found")
	// ErrNoAdjacentChapter is returned when a merge has no neighbour in the requested direction.
	ErrNoAdjacentChapter = errors.New("no adjacent chapter in merge direction")
	// ErrInvalidDirection is returned for merge directions other than prev or next.
	ErrInvalidDirection = errors.New("merge direction must be prev or next")
)

// Chapter describes one contiguous span of the canonical text.
type Chapter struct {
	Index  int     `json:"index"`
	Title  *string `json:"title"`
	Offset int     `json:"offset"`
	Length int     `json:"length"`
}

// End returns the exclusive end offset of the chapter.
func (c Chapter) End() int {
	return c.Offset + c.Length
}

// Contains reports whether the absolute offset lies inside [Offset, End).
func (c Chapter) Contains(abs int) bool {
	return abs >= c.Offset && abs < c.End()
}

// TitleOrEmpty returns the title or "" for untitled chapters.
func (c Chapter) TitleOrEmpty() string {
	if c.Title == nil {
		return ""
	}
	return *c.Title
}

// Validate checks that chapters are sorted, start at 0, have no gaps or
// overlaps, carry indices 0..n-1 and end exactly at textLen.
func Validate(list []Chapter, textLen int) error {
	if err := validateContiguous(list); err != nil {
		return err
	}
	last := list[len(list)-1]
	if last.End() != textLen {
		return fmt.Errorf("%w: chapters end at %d but text has %d characters", ErrInvalidChapters, last.End(), textLen)
	}
	return nil
}

func validateContiguous(list []Chapter) error {
	if len(list) == 0 {
		return fmt.Errorf("%w: no chapters", ErrInvalidChapters)
	}
	if list[0].Offset != 0 {
		return fmt.Errorf("%w: first chapter starts at %d", ErrInvalidChapters, list[0].Offset)
	}
	for i, c := range list {
		if c.Index != i {
			return fmt.Errorf("%w: chapter at position %d has index %d", ErrInvalidChapters, i, c.Index)
		}
		if c.Length < 0 {
			return fmt.Errorf("%w: chapter %d has negative length", ErrInvalidChapters, i)
		}
		if i > 0 && list[i-1].End() != c.Offset {
			return fmt.Errorf("%w: chapter %d starts at %d, previous ends at %d", ErrInvalidChapters, i, c.Offset, list[i-1].End())
		}
	}
	return nil
}

// Slice returns the content of chapter c from the canonical text runes.
func Slice(text []rune, c Chapter) string {
	start := clamp(c.Offset, 0, len(text))
	end := clamp(c.End(), start, len(text))
	return string(text[start:end])
}

// CleanTitle trims a title and caps it at MaxTitleRunes. Blank titles become nil.
func CleanTitle(raw string) *string {
	title := strings.TrimSpace(raw)
	if title == "" {
		return nil
	}
	if utf8.RuneCountInString(title) > MaxTitleRunes {
		title = strings.TrimSpace(string([]rune(title)[:MaxTitleRunes]))
	}
	return &title
}

func clone(list []Chapter) []Chapter {
	out := make([]Chapter, len(list))
	copy(out, list)
	for i := range out {
		if out[i].Title != nil {
			t := *out[i].Title
			out[i].Title = &t
		}
	}
	return out
}

func renumber(list []Chapter) {
	for i := range list {
		list[i].Index = i
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
