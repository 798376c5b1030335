package anchor

import (
	"github.com/mrlokans/txtshelf/internal/chapters"
	"github.com/mrlokans/txtshelf/internal/offsets"
	"github.com/mrlokans/txtshelf/internal/ranges"
)

// Status describes how an annotation was placed in the open chapter.
type Status string

const (
	// StatusExact means the stored offsets still cover the selection text.
	StatusExact Status = "exact"
	// StatusReanchored means the selection text was found at a different position.
	StatusReanchored Status = "reanchored"
	// StatusElsewhere means the annotation belongs to another chapter.
	StatusElsewhere Status = "elsewhere"
	// StatusOrphaned means the annotation could not be placed. It is kept, not deleted.
	StatusOrphaned Status = "orphaned"
)

// Target is the anchor stored with an annotation.
type Target struct {
	AbsStart      int
	AbsEnd        int
	SelectionText string
}

// Resolution is where an annotation paints inside the open chapter.
type Resolution struct {
	Status Status
	Local  offsets.Local
}

// Paintable reports whether the resolution has a span in the open chapter.
func (r Resolution) Paintable() bool {
	return r.Status == StatusExact || r.Status == StatusReanchored
}

// Resolve places target inside the open chapter (list[open]) whose text is
// content. The offset mapper is authoritative; the selection text is only
// used to confirm the span or to re-anchor it when the stored offsets no
// longer point at it.
func Resolve(target Target, list []chapters.Chapter, open int, content string) Resolution {
	if open < 0 || open >= len(list) {
		return Resolution{Status: StatusOrphaned}
	}
	c := list[open]

	local, ok := offsets.MapAbsoluteToChapter(target.AbsStart, target.AbsEnd, list)
	if ok && local.ChapterIndex != c.Index {
		return Resolution{Status: StatusElsewhere, Local: local}
	}

	if ok && (target.SelectionText == "" || matchesAt(content, local, target.SelectionText)) {
		return Resolution{Status: StatusExact, Local: local}
	}
	if target.SelectionText == "" {
		return Resolution{Status: StatusOrphaned}
	}

	var hint *Occurrence
	if ok {
		hint = &Occurrence{Start: local.LocalStart, End: local.LocalEnd}
	}
	occ, found := Pick(FindAllOccurrences(content, target.SelectionText), hint)
	if !found {
		return Resolution{Status: StatusOrphaned}
	}
	return Resolution{
		Status: StatusReanchored,
		Local:  offsets.Local{ChapterIndex: c.Index, LocalStart: occ.Start, LocalEnd: occ.End},
	}
}

func matchesAt(content string, local offsets.Local, selection string) bool {
	runes := []rune(content)
	if local.LocalEnd > len(runes) {
		return false
	}
	return Normalize(string(runes[local.LocalStart:local.LocalEnd])) == Normalize(selection)
}

// Annotation is the reader-side view of a stored annotation.
type Annotation struct {
	ID     int64
	Target Target
	Color  *string
}

// Highlights resolves every annotation against the open chapter and returns
// the paintable ones as chapter-local ranges, together with each resolution
// keyed by annotation id.
func Highlights(list []chapters.Chapter, open int, content string, anns []Annotation) ([]ranges.Range, map[int64]Resolution) {
	var out []ranges.Range
	res := make(map[int64]Resolution, len(anns))
	for _, a := range anns {
		r := Resolve(a.Target, list, open, content)
		res[a.ID] = r
		if !r.Paintable() {
			continue
		}
		id := a.ID
		out = append(out, ranges.Range{
			Start:      r.Local.LocalStart,
			End:        r.Local.LocalEnd,
			BookmarkID: &id,
			Color:      a.Color,
		})
	}
	return out, res
}
