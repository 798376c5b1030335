package offline

import (
	"context"
	"strings"

	"github.com/mrlokans/txtshelf/internal/anchor"
	"github.com/mrlokans/txtshelf/internal/chapters"
	"github.com/mrlokans/txtshelf/internal/location"
	"github.com/mrlokans/txtshelf/internal/offsets"
	"github.com/mrlokans/txtshelf/internal/ranges"
)

// ChapterView is one open chapter ready to render: its text split into
// sentence buckets and the highlight and search paint of every bucket.
type ChapterView struct {
	Chapter     chapters.Chapter
	Content     string
	Buckets     []offsets.Bucket
	Paint       map[int][]ranges.Range
	Resolutions map[int64]anchor.Resolution

	// FirstHitBucket is the bucket to scroll to for the query, -1 without hits.
	FirstHitBucket int
}

// OpenChapter loads chapter index of a file and paints the book's
// annotations and the hits of query (may be empty) onto it. Annotations of
// other files and unrenderable locations are left out.
func (c *Client) OpenChapter(ctx context.Context, bookID, fileID uint, index int, query string) (*ChapterView, error) {
	list, err := c.Chapters(ctx, fileID)
	if err != nil {
		return nil, err
	}
	var open *chapters.Chapter
	for i := range list {
		if list[i].Index == index {
			open = &list[i]
			break
		}
	}
	if open == nil {
		return nil, chapters.ErrChapterNotFound
	}

	content, err := c.ChapterContent(ctx, fileID, index)
	if err != nil {
		return nil, err
	}

	local, err := c.Annotations(ctx, bookID)
	if err != nil {
		return nil, err
	}
	anns := make([]anchor.Annotation, 0, len(local))
	for _, a := range local {
		loc := location.Decode(a.Location)
		if !loc.Renderable() || uint(loc.TXT.FileID) != fileID {
			continue
		}
		anns = append(anns, anchor.Annotation{
			ID: a.ID,
			Target: anchor.Target{
				AbsStart:      loc.TXT.AbsStart,
				AbsEnd:        loc.TXT.AbsEnd,
				SelectionText: loc.TXT.SelectionText,
			},
			Color: a.Color,
		})
	}
	highlights, resolutions := anchor.Highlights(list, index, content, anns)

	var hits []ranges.Range
	if strings.TrimSpace(query) != "" {
		for _, occ := range anchor.FindAllOccurrencesFold(content, query) {
			hits = append(hits, ranges.Range{Start: occ.Start, End: occ.End})
		}
	}

	buckets := offsets.SentenceBuckets(content)
	firstHit := -1
	if len(hits) > 0 {
		firstHit = offsets.BucketAt(buckets, hits[0].Start)
	}
	return &ChapterView{
		Chapter:        *open,
		Content:        content,
		Buckets:        buckets,
		Paint:          ranges.Paint(ranges.PaintInput{Buckets: buckets, Highlights: highlights, SearchHits: hits}),
		Resolutions:    resolutions,
		FirstHitBucket: firstHit,
	}, nil
}
