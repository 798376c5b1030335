package chapters

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func detect(t *testing.T, pattern, text string) []Chapter {
	t.Helper()
	seg, err := NewSegmenter(pattern)
	require.NoError(t, err)
	list, err := seg.Detect(text)
	require.NoError(t, err)
	return list
}

func TestDetect_DefaultPatternCJK(t *testing.T) {
	text := "第一章 开始\n内容A\n第二章 继续\n内容B"

	list := detect(t, "", text)

	require.Len(t, list, 2)
	assert.Equal(t, Chapter{Index: 0, Title: strPtr("第一章 开始"), Offset: 0, Length: utf8.RuneCountInString("第一章 开始\n内容A\n")}, list[0])
	assert.Equal(t, 1, list[1].Index)
	assert.Equal(t, "第二章 继续", list[1].TitleOrEmpty())
	assert.Equal(t, list[0].End(), list[1].Offset)
	assert.Equal(t, utf8.RuneCountInString(text), list[0].Length+list[1].Length)
}

func TestDetect_LatinChapterHeadingsCaseInsensitive(t *testing.T) {
	text := "CHAPTER 1\nabc\n\n\nchapter 2\ndef"

	list := detect(t, "", text)

	require.Len(t, list, 2)
	assert.Equal(t, "CHAPTER 1", list[0].TitleOrEmpty())
	assert.Equal(t, 16, list[1].Offset)
	assert.Equal(t, "chapter 2", list[1].TitleOrEmpty())
	assert.Equal(t, 13, list[1].Length)
}

func TestDetect_ZeroMatchesYieldsSingleUntitledChapter(t *testing.T) {
	text := "just some prose\nwithout headings"

	list := detect(t, "", text)

	require.Len(t, list, 1)
	assert.Nil(t, list[0].Title)
	assert.Equal(t, 0, list[0].Offset)
	assert.Equal(t, utf8.RuneCountInString(text), list[0].Length)
}

func TestDetect_EmptyText(t *testing.T) {
	list := detect(t, "", "")

	require.Len(t, list, 1)
	assert.Equal(t, Chapter{Index: 0, Offset: 0, Length: 0}, list[0])
	assert.NoError(t, Validate(list, 0))
}

func TestDetect_PrologueWithoutMatchHasNoTitle(t *testing.T) {
	text := "Intro\n   Chapter 1\nbody"

	list := detect(t, "", text)

	require.Len(t, list, 2)
	assert.Nil(t, list[0].Title)
	assert.Equal(t, 9, list[0].Length, "boundary snaps past leading spaces")
	assert.Equal(t, 9, list[1].Offset)
	assert.Equal(t, "Chapter 1", list[1].TitleOrEmpty())
	assert.Equal(t, 14, list[1].Length)
}

func TestDetect_SnapsBoundaryPastLineBreaks(t *testing.T) {
	text := "PART A\nx\n\n\nPART B\ny"

	list := detect(t, `\n+(?=PART)`, text)

	require.Len(t, list, 2)
	assert.Nil(t, list[0].Title)
	assert.Equal(t, 11, list[0].Length, "trailing blank lines stay with the previous chapter")
	assert.Equal(t, "PART B", list[1].TitleOrEmpty())
	assert.Equal(t, 11, list[1].Offset)
}

func TestDetect_PaddingPrologueFoldsIntoFirstChapter(t *testing.T) {
	text := "\n\n第一章 开始\n内容"

	list := detect(t, "", text)

	require.Len(t, list, 1)
	assert.Equal(t, 0, list[0].Offset)
	assert.Equal(t, "第一章 开始", list[0].TitleOrEmpty())
}

func TestDetect_TitleIsCappedInCodePoints(t *testing.T) {
	text := "第1章 " + strings.Repeat("长", 300) + "\nbody"

	list := detect(t, "", text)

	require.Len(t, list, 1)
	require.NotNil(t, list[0].Title)
	assert.Equal(t, MaxTitleRunes, utf8.RuneCountInString(*list[0].Title))
}

func TestDetect_DelimitedPattern(t *testing.T) {
	text := "VOLUME one\na\nvolume two\nb"

	list := detect(t, "/^volume/im", text)

	require.Len(t, list, 2)
	assert.Equal(t, "volume two", list[1].TitleOrEmpty())
}

func TestNewSegmenter_PatternFlags(t *testing.T) {
	text := "Book ONE\na\nbook two\nb"

	tests := []struct {
		name    string
		pattern string
		want    int
	}{
		{"bare pattern is case-insensitive multiline", `^book`, 2},
		{"delimited without flags is case-sensitive single-line", `/^book/`, 1},
		{"delimited with m only", `/^book/m`, 2},
		{"delimited with i only", `/^book/i`, 1},
		{"inline flag group", `(?m)^Book`, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg, err := NewSegmenter(tt.pattern)
			require.NoError(t, err)

			list, err := seg.Detect(text)
			require.NoError(t, err)
			assert.Len(t, list, tt.want)
		})
	}
}

func TestDetect_BareCarriageReturnLineBreaks(t *testing.T) {
	text := "第一章 开始\r内容A\r第二章 继续\r内容B"

	list := detect(t, "", text)

	require.Len(t, list, 2)
	assert.Equal(t, "第一章 开始", list[0].TitleOrEmpty())
	assert.Equal(t, 11, list[1].Offset)
	assert.Equal(t, "第二章 继续", list[1].TitleOrEmpty())
	require.NoError(t, Validate(list, utf8.RuneCountInString(text)))
}

func TestDetect_CRLFPatternStillMatches(t *testing.T) {
	list := detect(t, `\r\n(?=PART)`, "PART A\r\nx\r\nPART B\r\ny")

	require.Len(t, list, 2)
	assert.Equal(t, "PART B", list[1].TitleOrEmpty())
}

func TestNewSegmenter_InvalidPatternFailsClosed(t *testing.T) {
	for _, pattern := range []string{"(unclosed", "[a-", "*abc"} {
		t.Run(pattern, func(t *testing.T) {
			seg, err := NewSegmenter(pattern)
			assert.Nil(t, seg)
			assert.ErrorIs(t, err, ErrInvalidPattern)
		})
	}
}

func TestValidatePattern(t *testing.T) {
	assert.NoError(t, ValidatePattern(""))
	assert.NoError(t, ValidatePattern(DefaultPattern))
	assert.ErrorIs(t, ValidatePattern("(?<"), ErrInvalidPattern)
}

func TestDetect_CoversWholeTextForAnyPattern(t *testing.T) {
	texts := []string{
		"",
		"   \n\n  ",
		"第一章 开始\n内容A\n第二章 继续\n内容B",
		"a b a b a\n\na",
		"\r\nChapter 1\r\n\r\nbody\r\nChapter 2\r\nmore\r\n",
		"　　第三回　标题\n　　正文\n第四回\n",
	}
	patterns := []string{"", "^", "a", `\s+`, "(?=b)", `\n`, "第", "/chapter/i"}

	for _, text := range texts {
		for _, pattern := range patterns {
			seg, err := NewSegmenter(pattern)
			require.NoError(t, err)

			list, err := seg.Detect(text)
			require.NoError(t, err)

			assert.NoError(t, Validate(list, utf8.RuneCountInString(text)), "pattern %q text %q", pattern, text)
			for _, c := range list[1:] {
				assert.Greater(t, c.Length, 0, "pattern %q text %q", pattern, text)
			}
		}
	}
}

func TestValidate(t *testing.T) {
	good := []Chapter{{Index: 0, Offset: 0, Length: 5}, {Index: 1, Offset: 5, Length: 5}}
	assert.NoError(t, Validate(good, 10))

	tests := []struct {
		name string
		list []Chapter
		len  int
	}{
		{name: "empty", list: nil, len: 0},
		{name: "gap", list: []Chapter{{Index: 0, Offset: 0, Length: 4}, {Index: 1, Offset: 5, Length: 5}}, len: 10},
		{name: "not starting at zero", list: []Chapter{{Index: 0, Offset: 1, Length: 9}}, len: 10},
		{name: "bad index", list: []Chapter{{Index: 0, Offset: 0, Length: 5}, {Index: 2, Offset: 5, Length: 5}}, len: 10},
		{name: "short coverage", list: good, len: 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, Validate(tt.list, tt.len), ErrInvalidChapters)
		})
	}
}

func TestSlice(t *testing.T) {
	text := []rune("第一章 开始\n内容A\n第二章")
	assert.Equal(t, "内容A\n", Slice(text, Chapter{Offset: 7, Length: 4}))
	assert.Equal(t, "第二章", Slice(text, Chapter{Offset: 11, Length: 100}))
}
