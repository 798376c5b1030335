package offsets

import (
	"github.com/rivo/uniseg"
)

// Bucket is a line or sentence span in chapter-local coordinates.
type Bucket struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Segment is the part of a highlight that falls into one bucket, expressed
// relative to the bucket's own start.
type Segment struct {
	BucketIndex int `json:"bucket_index"`
	Start       int `json:"start"`
	End         int `json:"end"`
}

// SplitRangeToSegments clips [localStart, localEnd) against every bucket it
// overlaps. Buckets must be sorted and non-overlapping.
func SplitRangeToSegments(localStart, localEnd int, buckets []Bucket) []Segment {
	if localEnd <= localStart {
		return nil
	}
	var out []Segment
	for i, b := range buckets {
		if b.End <= localStart {
			continue
		}
		if b.Start >= localEnd {
			break
		}
		start := max(localStart, b.Start)
		end := min(localEnd, b.End)
		if end <= start {
			continue
		}
		out = append(out, Segment{BucketIndex: i, Start: start - b.Start, End: end - b.Start})
	}
	return out
}

// LineBuckets splits content into lines. Each bucket keeps its line
// terminator so the buckets partition the chapter exactly.
func LineBuckets(content string) []Bucket {
	var out []Bucket
	start, pos := 0, 0
	runes := []rune(content)
	for pos < len(runes) {
		r := runes[pos]
		pos++
		if r == '\r' && pos < len(runes) && runes[pos] == '\n' {
			pos++
		}
		if r == '\n' || r == '\r' {
			out = append(out, Bucket{Start: start, End: pos})
			start = pos
		}
	}
	if start < len(runes) || len(out) == 0 {
		out = append(out, Bucket{Start: start, End: len(runes)})
	}
	return out
}

// SentenceBuckets splits content at Unicode sentence boundaries (UAX #29).
// Paragraph separators always end a sentence.
func SentenceBuckets(content string) []Bucket {
	var out []Bucket
	pos := 0
	state := -1
	rest := content
	var sentence string
	for len(rest) > 0 {
		sentence, rest, state = uniseg.FirstSentenceInString(rest, state)
		n := len([]rune(sentence))
		out = append(out, Bucket{Start: pos, End: pos + n})
		pos += n
	}
	if len(out) == 0 {
		out = append(out, Bucket{Start: 0, End: 0})
	}
	return out
}

// BucketAt returns the index of the bucket containing local, or -1.
func BucketAt(buckets []Bucket, local int) int {
	for i, b := range buckets {
		if local >= b.Start && local < b.End {
			return i
		}
	}
	return -1
}
