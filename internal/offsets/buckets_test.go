package offsets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitRangeToSegments(t *testing.T) {
	buckets := []Bucket{{Start: 0, End: 5}, {Start: 5, End: 12}, {Start: 12, End: 20}}

	tests := []struct {
		name       string
		start, end int
		want       []Segment
	}{
		{name: "inside one bucket", start: 6, end: 9, want: []Segment{{BucketIndex: 1, Start: 1, End: 4}}},
		{name: "spans three buckets", start: 3, end: 14, want: []Segment{
			{BucketIndex: 0, Start: 3, End: 5},
			{BucketIndex: 1, Start: 0, End: 7},
			{BucketIndex: 2, Start: 0, End: 2},
		}},
		{name: "exact bucket", start: 5, end: 12, want: []Segment{{BucketIndex: 1, Start: 0, End: 7}}},
		{name: "empty range", start: 4, end: 4, want: nil},
		{name: "outside", start: 25, end: 30, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitRangeToSegments(tt.start, tt.end, buckets))
		})
	}
}

func TestLineBuckets(t *testing.T) {
	buckets := LineBuckets("ab\r\ncd\nef")

	assert.Equal(t, []Bucket{{Start: 0, End: 4}, {Start: 4, End: 7}, {Start: 7, End: 9}}, buckets)
}

func TestLineBuckets_TrailingNewlineAndEmpty(t *testing.T) {
	assert.Equal(t, []Bucket{{Start: 0, End: 2}}, LineBuckets("a\n"))
	assert.Equal(t, []Bucket{{Start: 0, End: 0}}, LineBuckets(""))
	assert.Equal(t, []Bucket{{Start: 0, End: 3}, {Start: 3, End: 5}}, LineBuckets("内容\n内容"))
}

func TestSentenceBuckets_PartitionContent(t *testing.T) {
	content := "Hello world. How are you?\nFine."

	buckets := SentenceBuckets(content)

	require.NotEmpty(t, buckets)
	assert.Equal(t, 0, buckets[0].Start)
	assert.Equal(t, len([]rune(content)), buckets[len(buckets)-1].End)
	for i := 1; i < len(buckets); i++ {
		assert.Equal(t, buckets[i-1].End, buckets[i].Start)
	}
	assert.Equal(t, "Hello world. ", string([]rune(content)[buckets[0].Start:buckets[0].End]))
}

func TestBucketAt(t *testing.T) {
	buckets := []Bucket{{Start: 0, End: 5}, {Start: 5, End: 8}}
	assert.Equal(t, 0, BucketAt(buckets, 0))
	assert.Equal(t, 1, BucketAt(buckets, 5))
	assert.Equal(t, -1, BucketAt(buckets, 8))
}
