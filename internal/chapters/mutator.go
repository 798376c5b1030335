package chapters

import (
	"fmt"
	"strings"
)

// Direction selects the neighbour that absorbs a deleted chapter.
type Direction string

const (
	MergePrev Direction = "prev"
	MergeNext Direction = "next"
)

// ParseDirection parses "prev" or "next" (case-insensitive).
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case MergePrev:
		return MergePrev, nil
	case MergeNext:
		return MergeNext, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// Rename returns a copy of list with the title of chapter index replaced.
// Offsets and lengths are untouched; a blank title clears it.
func Rename(list []Chapter, index int, title string) ([]Chapter, error) {
	if err := validateContiguous(list); err != nil {
		return nil, err
	}
	pos := position(list, index)
	if pos < 0 {
		return nil, fmt.Errorf("%w: %d", ErrChapterNotFound, index)
	}
	out := clone(list)
	out[pos].Title = CleanTitle(title)
	return out, nil
}

// DeleteWithMerge removes chapter index and folds its span into the
// neighbour in direction dir, then renumbers the set 0..n-1. The input is
// never modified; on error no partial result is produced.
func DeleteWithMerge(list []Chapter, index int, dir Direction) ([]Chapter, error) {
	if dir != MergePrev && dir != MergeNext {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDirection, dir)
	}
	if err := validateContiguous(list); err != nil {
		return nil, err
	}
	pos := position(list, index)
	if pos < 0 {
		return nil, fmt.Errorf("%w: %d", ErrChapterNotFound, index)
	}

	out := clone(list)
	target := out[pos]

	switch dir {
	case MergePrev:
		if pos == 0 {
			return nil, fmt.Errorf("%w: chapter %d is the first chapter", ErrNoAdjacentChapter, index)
		}
		prev := &out[pos-1]
		prev.Length = target.End() - prev.Offset
	case MergeNext:
		if pos == len(out)-1 {
			return nil, fmt.Errorf("%w: chapter %d is the last chapter", ErrNoAdjacentChapter, index)
		}
		next := &out[pos+1]
		nextEnd := next.End()
		next.Offset = target.Offset
		next.Length = nextEnd - target.Offset
	}

	out = append(out[:pos], out[pos+1:]...)
	renumber(out)

	if err := validateContiguous(out); err != nil {
		return nil, err
	}
	return out, nil
}

func position(list []Chapter, index int) int {
	for i, c := range list {
		if c.Index == index {
			return i
		}
	}
	return -1
}
