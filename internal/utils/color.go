package utils

import (
	"encoding/binary"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidColor is returned for highlight colors that are neither a
// palette name, a hex value nor a signed ARGB integer.
var ErrInvalidColor = errors.New("invalid highlight color")

var (
	colorName = regexp.MustCompile(`^[a-z][a-z-]{0,31}$`)
	hexColor  = regexp.MustCompile(`^#([0-9A-F]{3}|[0-9A-F]{6}|[0-9A-F]{8})$`)
	intColor  = regexp.MustCompile(`^-?[0-9]{1,10}$`)
)

// NormalizeColor canonicalizes a highlight color. Palette names are
// lower-cased, hex values upper-cased and signed integers (as exported by
// Android readers) converted to #AARRGGBB. An empty string stays empty.
func NormalizeColor(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}

	if lower := strings.ToLower(s); colorName.MatchString(lower) {
		return lower, nil
	}
	if upper := strings.ToUpper(s); hexColor.MatchString(upper) {
		return upper, nil
	}
	if intColor.MatchString(s) {
		return InternalColorToHexARGB(s)
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidColor, s)
}

// InternalColorToHexARGB converts a signed integer color representation
// to ARGB hex format.
// Example: "-15654349" -> "#FF112233"
func InternalColorToHexARGB(colorStr string) (string, error) {
	colorInt, err := strconv.ParseInt(colorStr, 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidColor, err)
	}
	if colorInt < -(1<<31) || colorInt > 1<<32-1 {
		return "", fmt.Errorf("%w: %s out of range", ErrInvalidColor, colorStr)
	}

	// Convert to unsigned 32-bit representation (2's complement)
	colorUint := uint32(colorInt)

	bytes := make([]byte, 4)
	binary.BigEndian.PutUint32(bytes, colorUint)

	return fmt.Sprintf("#%02X%02X%02X%02X", bytes[0], bytes[1], bytes[2], bytes[3]), nil
}
