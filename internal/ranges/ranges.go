// Package ranges implements the highlight range algebra used when painting a
// chapter: merging equal-metadata ranges and resolving overlaps between
// bookmarks and search hits into non-overlapping segments.
//
// Ranges are always chapter-local (or bucket-local once split for painting).
// Nothing here keeps state; every result is recomputed from its inputs.
package ranges

import (
	"sort"
)

// Range is a half-open [Start, End) interval with paint metadata.
type Range struct {
	Start      int     `json:"start"`
	End        int     `json:"end"`
	BookmarkID *int64  `json:"bookmark_id,omitempty"`
	Color      *string `json:"color,omitempty"`
	IsSearch   bool    `json:"is_search,omitempty"`
}

// Len returns the number of positions covered by r.
func (r Range) Len() int {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

// SameMeta reports whether two ranges carry identical paint metadata.
func (r Range) SameMeta(o Range) bool {
	return r.IsSearch == o.IsSearch && eqInt64(r.BookmarkID, o.BookmarkID) && eqString(r.Color, o.Color)
}

type metaKey struct {
	hasBookmark bool
	bookmark    int64
	hasColor    bool
	color       string
	search      bool
}

func keyOf(r Range) metaKey {
	k := metaKey{search: r.IsSearch}
	if r.BookmarkID != nil {
		k.hasBookmark, k.bookmark = true, *r.BookmarkID
	}
	if r.Color != nil {
		k.hasColor, k.color = true, *r.Color
	}
	return k
}

// MergeRanges coalesces ranges that overlap or touch and share the same
// (bookmark, color, search) metadata. Ranges with different metadata stay
// separate even when adjacent. Empty ranges are dropped. The result is sorted
// by start, then end, and MergeRanges(MergeRanges(r)) equals MergeRanges(r).
func MergeRanges(in []Range) []Range {
	groups := make(map[metaKey][]Range)
	var order []metaKey
	for _, r := range in {
		if r.Len() == 0 {
			continue
		}
		k := keyOf(r)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}

	var out []Range
	for _, k := range order {
		g := groups[k]
		sort.SliceStable(g, func(i, j int) bool { return g[i].Start < g[j].Start })
		cur := g[0]
		for _, r := range g[1:] {
			if r.Start <= cur.End {
				cur.End = max(cur.End, r.End)
				continue
			}
			out = append(out, cur)
			cur = r
		}
		out = append(out, cur)
	}

	sortRanges(out)
	return out
}

type event struct {
	pos   int
	start bool
	idx   int
}

// SplitOverlappingRanges repartitions possibly overlapping ranges into
// non-overlapping segments. Between consecutive boundaries exactly one active
// range paints: a search range beats a bookmark, and among ranges of the same
// kind the one that started last wins (later input position breaks ties).
// Neighbouring segments painted with identical metadata are joined.
func SplitOverlappingRanges(in []Range) []Range {
	events := make([]event, 0, len(in)*2)
	for i, r := range in {
		if r.Len() == 0 {
			continue
		}
		events = append(events, event{pos: r.Start, start: true, idx: i}, event{pos: r.End, idx: i})
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].pos != events[j].pos {
			return events[i].pos < events[j].pos
		}
		return events[i].start && !events[j].start
	})

	var out []Range
	active := make(map[int]struct{})
	prev := 0
	for _, ev := range events {
		if ev.pos > prev && len(active) > 0 {
			w := in[winner(in, active)]
			seg := w
			seg.Start, seg.End = prev, ev.pos
			out = appendJoined(out, seg)
		}
		if ev.start {
			active[ev.idx] = struct{}{}
		} else {
			delete(active, ev.idx)
		}
		prev = ev.pos
	}
	return out
}

func winner(in []Range, active map[int]struct{}) int {
	best := -1
	for i := range active {
		if best < 0 || outranks(in[i], i, in[best], best) {
			best = i
		}
	}
	return best
}

func outranks(a Range, ai int, b Range, bi int) bool {
	if a.IsSearch != b.IsSearch {
		return a.IsSearch
	}
	if a.Start != b.Start {
		return a.Start > b.Start
	}
	return ai > bi
}

func appendJoined(out []Range, seg Range) []Range {
	if n := len(out); n > 0 && out[n-1].End == seg.Start && out[n-1].SameMeta(seg) {
		out[n-1].End = seg.End
		return out
	}
	return append(out, seg)
}

func sortRanges(rs []Range) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].Start != rs[j].Start {
			return rs[i].Start < rs[j].Start
		}
		if rs[i].End != rs[j].End {
			return rs[i].End < rs[j].End
		}
		return lessMeta(keyOf(rs[i]), keyOf(rs[j]))
	})
}

func lessMeta(a, b metaKey) bool {
	if a.search != b.search {
		return !a.search
	}
	if a.hasBookmark != b.hasBookmark {
		return !a.hasBookmark
	}
	if a.bookmark != b.bookmark {
		return a.bookmark < b.bookmark
	}
	if a.hasColor != b.hasColor {
		return !a.hasColor
	}
	return a.color < b.color
}

func eqInt64(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
