package ranges

import (
	"github.com/mrlokans/txtshelf/internal/offsets"
)

// PaintInput is everything needed to paint one open chapter. Highlights and
// SearchHits are chapter-local.
type PaintInput struct {
	Buckets    []offsets.Bucket
	Highlights []Range
	SearchHits []Range
}

// Paint resolves highlights and search hits into per-bucket paint lists.
// Keys are bucket indices; ranges inside each list are bucket-relative,
// sorted and non-overlapping. Buckets with nothing to paint are absent.
func Paint(in PaintInput) map[int][]Range {
	hits := make([]Range, 0, len(in.SearchHits))
	for _, h := range in.SearchHits {
		h.IsSearch = true
		hits = append(hits, h)
	}

	all := append(MergeRanges(in.Highlights), MergeRanges(hits)...)
	out := make(map[int][]Range)
	for _, r := range SplitOverlappingRanges(all) {
		for _, seg := range offsets.SplitRangeToSegments(r.Start, r.End, in.Buckets) {
			piece := r
			piece.Start, piece.End = seg.Start, seg.End
			out[seg.BucketIndex] = append(out[seg.BucketIndex], piece)
		}
	}
	return out
}
