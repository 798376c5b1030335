package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"novel.txt", "novel.txt"},
		{"../../etc/passwd", "passwd"},
		{`C:\books\三国演义.txt`, "三国演义.txt"},
		{"a:b?c*.txt", "abc.txt"},
		{"  spaced \t  out .txt ", "spaced out .txt"},
		{"", "Untitled.txt"},
		{"/", "Untitled.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeFilename(tt.input))
		})
	}
}

func TestSanitizeFilename_LongNameKeepsRunes(t *testing.T) {
	name := strings.Repeat("章", 100) + ".txt"

	got := SanitizeFilename(name)

	assert.LessOrEqual(t, len(got), 200)
	assert.True(t, utf8.ValidString(got))
}

func TestTitleFromFilename(t *testing.T) {
	assert.Equal(t, "novel", TitleFromFilename("dir/novel.txt"))
	assert.Equal(t, "Notes", TitleFromFilename("Notes.TXT"))
	assert.Equal(t, "archive.tar", TitleFromFilename("archive.tar"))
	assert.Equal(t, "Untitled", TitleFromFilename(".txt"))
}
