package chapters

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// DefaultPattern recognizes CJK chapter markers (第N章/回/部/节/卷) and Latin
// "Chapter N" headings at the start of a line.
const DefaultPattern = `^[ \t　]*(?:第[0-9０-９零〇一二三四五六七八九十百千万两]+[章回部节節卷]|chapter[ \t]+(?:[0-9]+|[ivxlcdm]+)\b)[^\r\n]*`

// DefaultMatchTimeout bounds a single pattern evaluation so that a
// pathological user pattern cannot stall segmentation.
const DefaultMatchTimeout = 2 * time.Second

// Segmenter finds chapter boundaries with a compiled boundary pattern.
type Segmenter struct {
	re      *regexp2.Regexp
	pattern string
}

// NewSegmenter compiles pattern. An empty pattern selects DefaultPattern.
// Patterns may be given bare or in /delimited/flags form; bare patterns are
// matched case-insensitively in multiline mode.
func NewSegmenter(pattern string) (*Segmenter, error) {
	return NewSegmenterWithTimeout(pattern, DefaultMatchTimeout)
}

// NewSegmenterWithTimeout is NewSegmenter with an explicit match timeout.
func NewSegmenterWithTimeout(pattern string, timeout time.Duration) (*Segmenter, error) {
	if strings.TrimSpace(pattern) == "" {
		pattern = DefaultPattern
	}

	expr, opts := parsePattern(pattern)
	re, err := regexp2.Compile(expr, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	if timeout > 0 {
		re.MatchTimeout = timeout
	}
	return &Segmenter{re: re, pattern: pattern}, nil
}

// ValidatePattern reports whether pattern compiles.
func ValidatePattern(pattern string) error {
	_, err := NewSegmenter(pattern)
	return err
}

// Pattern returns the source pattern the segmenter was built from.
func (s *Segmenter) Pattern() string {
	return s.pattern
}

// Detect splits text into chapters covering [0, len(text)) exactly once.
// Offsets are code point positions. An error is returned only when the
// pattern fails while executing.
func (s *Segmenter) Detect(text string) ([]Chapter, error) {
	runes := []rune(text)

	starts, err := s.matchStarts(text)
	if err != nil {
		return nil, err
	}
	return build(runes, starts), nil
}

// matchStarts returns the code point position of every pattern match.
func (s *Segmenter) matchStarts(text string) ([]int, error) {
	var starts []int
	m, err := s.re.FindStringMatch(bareCRToLF(text))
	for m != nil && err == nil {
		starts = append(starts, m.Index)
		m, err = s.re.FindNextMatch(m)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	return starts, nil
}

// bareCRToLF rewrites a CR not followed by LF as LF. Multiline anchors only
// break on LF; the swap is rune for rune so match positions stay valid.
func bareCRToLF(text string) string {
	if !strings.ContainsRune(text, '\r') {
		return text
	}
	runes := []rune(text)
	for i, r := range runes {
		if r == '\r' && (i+1 == len(runes) || runes[i+1] != '\n') {
			runes[i] = '\n'
		}
	}
	return string(runes)
}

type boundary struct {
	pos     int
	matched bool
}

func build(runes []rune, matchStarts []int) []Chapter {
	n := len(runes)

	matched := make(map[int]bool, len(matchStarts)+1)
	matched[0] = false
	for _, p := range matchStarts {
		matched[p] = true
	}

	raw := make([]int, 0, len(matched))
	for p := range matched {
		raw = append(raw, p)
	}
	sort.Ints(raw)

	// Snap every boundary after the first past leading blank padding.
	bounds := []boundary{{pos: 0, matched: matched[0]}}
	for _, p := range raw[1:] {
		snapped := snap(runes, p)
		if snapped >= n {
			continue
		}
		last := &bounds[len(bounds)-1]
		if snapped == last.pos {
			last.matched = last.matched || matched[p]
			continue
		}
		bounds = append(bounds, boundary{pos: snapped, matched: matched[p]})
	}

	// A prologue made only of padding belongs to the first real chapter.
	if len(bounds) > 1 && snap(runes, 0) >= bounds[1].pos {
		bounds[0].matched = bounds[1].matched
		bounds = append(bounds[:1], bounds[2:]...)
	}

	out := make([]Chapter, 0, len(bounds))
	for i, b := range bounds {
		end := n
		if i+1 < len(bounds) {
			end = bounds[i+1].pos
		}
		var title *string
		if b.matched {
			title = firstLine(runes, snap(runes, b.pos), end)
		}
		out = append(out, Chapter{
			Index:  i,
			Title:  title,
			Offset: b.pos,
			Length: end - b.pos,
		})
	}
	return out
}

func isPadding(r rune) bool {
	switch r {
	case '\n', '\r', ' ', '\t', '　':
		return true
	}
	return false
}

func snap(runes []rune, pos int) int {
	for pos < len(runes) && isPadding(runes[pos]) {
		pos++
	}
	return pos
}

func firstLine(runes []rune, start, end int) *string {
	if start >= end {
		return nil
	}
	stop := start
	for stop < end && runes[stop] != '\n' && runes[stop] != '\r' {
		stop++
	}
	return CleanTitle(string(runes[start:stop]))
}

// parsePattern accepts "/expr/flags" (as stored by older clients) as well as
// bare expressions.
func parsePattern(pattern string) (string, regexp2.RegexOptions) {
	defaults := regexp2.RegexOptions(regexp2.IgnoreCase | regexp2.Multiline)
	if len(pattern) < 2 || pattern[0] != '/' {
		return pattern, defaults
	}
	closing := strings.LastIndexByte(pattern, '/')
	if closing == 0 {
		return pattern, defaults
	}
	flags := pattern[closing+1:]
	var opts regexp2.RegexOptions
	for _, f := range flags {
		switch f {
		case 'i':
			opts |= regexp2.IgnoreCase
		case 'm':
			opts |= regexp2.Multiline
		case 's':
			opts |= regexp2.Singleline
		case 'x':
			opts |= regexp2.IgnorePatternWhitespace
		case 'u':
		default:
			// Not a delimited pattern after all.
			return pattern, defaults
		}
	}
	return pattern[1:closing], opts
}
