// Package offsets converts whole-book offsets into chapter-local and
// bucket-local coordinates.
package offsets

import (
	"sort"

	"github.com/mrlokans/txtshelf/internal/chapters"
)

// Local is an interval expressed relative to the start of one chapter.
type Local struct {
	ChapterIndex int `json:"chapter_index"`
	LocalStart   int `json:"local_start"`
	LocalEnd     int `json:"local_end"`
}

// MapAbsoluteToChapter locates the chapter whose [offset, offset+length)
// contains absStart and returns the interval in that chapter's coordinates,
// clamped to [0, length]. An empty interval at the very end of the last
// chapter is accepted. ok is false when no chapter contains absStart; callers
// treat that as "not renderable here".
func MapAbsoluteToChapter(absStart, absEnd int, list []chapters.Chapter) (Local, bool) {
	if len(list) == 0 || absStart < 0 {
		return Local{}, false
	}

	i := sort.Search(len(list), func(i int) bool {
		return list[i].Offset > absStart
	}) - 1
	if i < 0 {
		return Local{}, false
	}

	c := list[i]
	last := i == len(list)-1
	if !c.Contains(absStart) && !(last && absStart == c.End()) {
		return Local{}, false
	}

	start := absStart - c.Offset
	end := clamp(absEnd-c.Offset, start, c.Length)
	return Local{ChapterIndex: c.Index, LocalStart: start, LocalEnd: end}, true
}

// ToAbsolute converts a chapter-local offset back to the whole-book space.
func ToAbsolute(c chapters.Chapter, local int) int {
	return c.Offset + clamp(local, 0, c.Length)
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
