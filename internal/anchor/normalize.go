// Package anchor recovers an annotation's position from its remembered
// selection text when stored offsets may be stale.
package anchor

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// zero-width characters removed before matching
var invisible = map[rune]bool{
	'\u200b': true,
	'\u200c': true,
	'\u200d': true,
	'\u2060': true,
	'\ufeff': true,
}

// normalized is a text with CR/CRLF collapsed to LF and zero-width characters
// removed. starts[k] is the original rune index of normalized rune k and
// ends[k] the original index just past it; both have a sentinel at
// len(runes) pointing at the original length.
type normalized struct {
	text   string
	starts []int
	ends   []int
}

func normalize(s string, fold bool) normalized {
	var b strings.Builder
	b.Grow(len(s))
	n := normalized{}

	src := []rune(s)
	for i := 0; i < len(src); i++ {
		r := src[i]
		start := i
		switch {
		case invisible[r]:
			continue
		case r == '\r':
			if i+1 < len(src) && src[i+1] == '\n' {
				i++
			}
			r = '\n'
		case fold:
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
		n.starts = append(n.starts, start)
		n.ends = append(n.ends, i+1)
	}
	n.starts = append(n.starts, len(src))
	n.ends = append(n.ends, len(src))
	n.text = b.String()
	return n
}

// Normalize returns s with line endings collapsed to LF and zero-width
// characters removed.
func Normalize(s string) string {
	return normalize(s, false).text
}

// runeCursor converts byte offsets of the normalized text into rune indices
// as the search walks forward.
type runeCursor struct {
	text  string
	byteI int
	runeI int
}

func (c *runeCursor) advance(byteOffset int) int {
	c.runeI += utf8.RuneCountInString(c.text[c.byteI:byteOffset])
	c.byteI = byteOffset
	return c.runeI
}
