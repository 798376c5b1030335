package anchor

import (
	"strings"
	"unicode/utf8"
)

// Occurrence is a match in original-text rune coordinates.
type Occurrence struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Overlaps reports whether two half-open spans share a position. An empty
// hint overlaps an occurrence that contains it.
func (o Occurrence) Overlaps(other Occurrence) bool {
	if other.Start == other.End {
		return other.Start >= o.Start && other.Start < o.End
	}
	return o.Start < other.End && other.Start < o.End
}

// FindAllOccurrences returns every non-overlapping occurrence of sub in text.
// Both are normalized first (CRLF and CR become LF, zero-width characters are
// dropped) and the hits are mapped back to rune offsets in the original text.
func FindAllOccurrences(text, sub string) []Occurrence {
	return find(text, sub, false)
}

// FindAllOccurrencesFold is FindAllOccurrences with simple case folding.
func FindAllOccurrencesFold(text, sub string) []Occurrence {
	return find(text, sub, true)
}

func find(text, sub string, fold bool) []Occurrence {
	needle := normalize(sub, fold).text
	if needle == "" {
		return nil
	}
	hay := normalize(text, fold)
	needleRunes := utf8.RuneCountInString(needle)

	var out []Occurrence
	cur := runeCursor{text: hay.text}
	from := 0
	for from <= len(hay.text) {
		i := strings.Index(hay.text[from:], needle)
		if i < 0 {
			break
		}
		at := from + i
		start := cur.advance(at)
		end := start + needleRunes
		out = append(out, Occurrence{Start: hay.starts[start], End: hay.ends[end-1]})
		from = at + len(needle)
	}
	return out
}

// Pick chooses the occurrence overlapping hint, falling back to the first.
// ok is false when occs is empty.
func Pick(occs []Occurrence, hint *Occurrence) (Occurrence, bool) {
	if len(occs) == 0 {
		return Occurrence{}, false
	}
	if hint != nil {
		for _, o := range occs {
			if o.Overlaps(*hint) {
				return o, true
			}
		}
	}
	return occs[0], true
}
