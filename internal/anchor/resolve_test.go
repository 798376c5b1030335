package anchor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/txtshelf/internal/chapters"
	"github.com/mrlokans/txtshelf/internal/offsets"
)

// two chapters over "0123456789abcdefghij"
func book() ([]chapters.Chapter, []string) {
	return []chapters.Chapter{
			{Index: 0, Offset: 0, Length: 10},
			{Index: 1, Offset: 10, Length: 10},
		}, []string{
			"0123456789",
			"abcdefghij",
		}
}

func TestResolve(t *testing.T) {
	list, content := book()

	tests := []struct {
		name   string
		target Target
		open   int
		want   Resolution
	}{
		{
			name:   "exact",
			target: Target{AbsStart: 12, AbsEnd: 15, SelectionText: "cde"},
			open:   1,
			want:   Resolution{Status: StatusExact, Local: offsets.Local{ChapterIndex: 1, LocalStart: 2, LocalEnd: 5}},
		},
		{
			name:   "exact without selection text",
			target: Target{AbsStart: 5, AbsEnd: 9},
			open:   0,
			want:   Resolution{Status: StatusExact, Local: offsets.Local{ChapterIndex: 0, LocalStart: 5, LocalEnd: 9}},
		},
		{
			name:   "shifted text is re-anchored",
			target: Target{AbsStart: 11, AbsEnd: 14, SelectionText: "fgh"},
			open:   1,
			want:   Resolution{Status: StatusReanchored, Local: offsets.Local{ChapterIndex: 1, LocalStart: 5, LocalEnd: 8}},
		},
		{
			name:   "other chapter",
			target: Target{AbsStart: 2, AbsEnd: 4, SelectionText: "23"},
			open:   1,
			want:   Resolution{Status: StatusElsewhere, Local: offsets.Local{ChapterIndex: 0, LocalStart: 2, LocalEnd: 4}},
		},
		{
			name:   "out of range offsets fall back to text search",
			target: Target{AbsStart: 40, AbsEnd: 43, SelectionText: "ghi"},
			open:   1,
			want:   Resolution{Status: StatusReanchored, Local: offsets.Local{ChapterIndex: 1, LocalStart: 6, LocalEnd: 9}},
		},
		{
			name:   "orphaned",
			target: Target{AbsStart: 12, AbsEnd: 15, SelectionText: "zzz"},
			open:   1,
			want:   Resolution{Status: StatusOrphaned},
		},
		{
			name:   "open chapter out of range",
			target: Target{AbsStart: 1, AbsEnd: 2},
			open:   5,
			want:   Resolution{Status: StatusOrphaned},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.target, list, tt.open, content[min(tt.open, 1)]))
		})
	}
}

func TestResolve_PrefersOccurrenceNearStoredSpan(t *testing.T) {
	list := []chapters.Chapter{{Index: 0, Offset: 0, Length: 12}}
	content := "la la\r\nla la"

	res := Resolve(Target{AbsStart: 7, AbsEnd: 11, SelectionText: "la l"}, list, 0, content)

	require.Equal(t, StatusExact, res.Status)

	res = Resolve(Target{AbsStart: 8, AbsEnd: 12, SelectionText: "la l"}, list, 0, content)
	require.Equal(t, StatusReanchored, res.Status)
	assert.Equal(t, 7, res.Local.LocalStart)
	assert.Equal(t, 11, res.Local.LocalEnd)
}

func TestHighlights(t *testing.T) {
	list, content := book()
	yellow := "yellow"

	got, res := Highlights(list, 1, content[1], []Annotation{
		{ID: 1, Target: Target{AbsStart: 12, AbsEnd: 15, SelectionText: "cde"}, Color: &yellow},
		{ID: 2, Target: Target{AbsStart: 3, AbsEnd: 5, SelectionText: "34"}},
		{ID: 3, Target: Target{AbsStart: 15, AbsEnd: 17, SelectionText: "nope"}},
	})

	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Start)
	assert.Equal(t, 5, got[0].End)
	assert.Equal(t, int64(1), *got[0].BookmarkID)
	assert.Equal(t, &yellow, got[0].Color)

	assert.Equal(t, StatusElsewhere, res[2].Status)
	assert.Equal(t, StatusOrphaned, res[3].Status)
}
