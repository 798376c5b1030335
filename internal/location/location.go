// Package location encodes and decodes the opaque JSON location stored with
// each annotation. Locations are a tagged union keyed by "format"; only the
// "txt" shape is understood today.
package location

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Format tags a location payload.
type Format string

// FormatTXT is the whole-book character offset location used by the TXT reader.
const FormatTXT Format = "txt"

var (
	// ErrUnknownFormat is returned for payloads whose format tag is missing or unsupported.
	ErrUnknownFormat = errors.New("unknown location format")
	// ErrInvalidLocation is returned for malformed payloads.
	ErrInvalidLocation = errors.New("invalid location")
)

// TXT anchors an annotation in the canonical text of one file. ChapterIndex is
// an advisory hint only; offsets are resolved through the chapter list.
type TXT struct {
	Format        Format `json:"format"`
	FileID        int64  `json:"fileId"`
	AbsStart      int    `json:"absStart"`
	AbsEnd        int    `json:"absEnd"`
	SelectionText string `json:"selectionText"`
	ChapterIndex  *int   `json:"chapterIndex,omitempty"`
}

// Validate checks the offsets and file reference.
func (t TXT) Validate() error {
	if t.FileID <= 0 {
		return fmt.Errorf("%w: fileId must be positive", ErrInvalidLocation)
	}
	if t.AbsStart < 0 || t.AbsEnd < t.AbsStart {
		return fmt.Errorf("%w: bad range [%d, %d)", ErrInvalidLocation, t.AbsStart, t.AbsEnd)
	}
	return nil
}

// Location is a decoded payload. TXT is set only for renderable txt locations;
// Raw always holds the original string so unknown shapes survive a round trip.
type Location struct {
	Format Format
	TXT    *TXT
	Raw    string
}

// Renderable reports whether the reader can place this location.
func (l Location) Renderable() bool {
	return l.TXT != nil
}

type envelope struct {
	Format Format `json:"format"`
}

// Parse decodes raw strictly and is used to validate incoming requests.
func Parse(raw string) (Location, error) {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return Location{Raw: raw}, fmt.Errorf("%w: %v", ErrInvalidLocation, err)
	}

	switch env.Format {
	case FormatTXT:
		var t TXT
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			return Location{Format: env.Format, Raw: raw}, fmt.Errorf("%w: %v", ErrInvalidLocation, err)
		}
		if err := t.Validate(); err != nil {
			return Location{Format: env.Format, Raw: raw}, err
		}
		return Location{Format: FormatTXT, TXT: &t, Raw: raw}, nil
	default:
		return Location{Format: env.Format, Raw: raw}, fmt.Errorf("%w: %q", ErrUnknownFormat, env.Format)
	}
}

// Decode is the lenient reader: anything Parse rejects becomes an
// unrenderable location instead of an error.
func Decode(raw string) Location {
	loc, err := Parse(raw)
	if err != nil {
		return Location{Format: loc.Format, Raw: raw}
	}
	return loc
}

// EncodeTXT validates t and renders it as the stored JSON string.
func EncodeTXT(t TXT) (string, error) {
	t.Format = FormatTXT
	if err := t.Validate(); err != nil {
		return "", err
	}
	b, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("failed to encode location: %w", err)
	}
	return string(b), nil
}
