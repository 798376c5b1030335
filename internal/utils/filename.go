package utils

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// Characters invalid in filenames on most filesystems
	invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	// Multiple spaces to collapse
	multipleSpaces = regexp.MustCompile(`\s+`)
)

// KnownTextExtensions are stripped when a book title is derived from a file name.
var KnownTextExtensions = []string{
	".txt",
	".text",
	".md",
}

// SanitizeFilename makes an uploaded file name safe to store and display.
// Directory components are dropped.
func SanitizeFilename(filename string) string {
	filename = filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if filename == "." || filename == "/" {
		filename = ""
	}

	filename = invalidFilenameChars.ReplaceAllString(filename, "")
	filename = multipleSpaces.ReplaceAllString(filename, " ")
	filename = strings.TrimSpace(filename)

	// Limit length (most filesystems support 255 bytes), cutting on a rune boundary
	if len(filename) > 200 {
		runes := []rune(filename)
		for len(string(runes)) > 200 {
			runes = runes[:len(runes)-1]
		}
		filename = strings.TrimSpace(string(runes))
	}

	if filename == "" {
		filename = "Untitled.txt"
	}
	return filename
}

// TitleFromFilename derives a book title from an upload name.
func TitleFromFilename(filename string) string {
	title := SanitizeFilename(filename)
	lower := strings.ToLower(title)
	for _, ext := range KnownTextExtensions {
		if strings.HasSuffix(lower, ext) {
			title = title[:len(title)-len(ext)]
			break
		}
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return "Untitled"
	}
	return title
}
