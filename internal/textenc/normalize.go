// Package textenc converts raw text asset bytes into the canonical Unicode
// string that every chapter and annotation offset is measured against.
//
// Normalize never fails. When no encoding decodes the input cleanly the
// invalid sequences are dropped and the remainder is returned.
package textenc

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// Encoding names reported in Result.Encoding.
const (
	EncodingUTF8     = "utf-8"
	EncodingUTF16LE  = "utf-16le"
	EncodingUTF16BE  = "utf-16be"
	EncodingGB18030  = "gb18030"
	EncodingGBK      = "gbk"
	EncodingBig5     = "big5"
	EncodingWin1252  = "windows-1252"
	EncodingLatin1   = "iso-8859-1"
	EncodingFallback = "utf-8-lossy"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

type candidate struct {
	name string
	enc  encoding.Encoding
}

// legacyCandidates is tried in order once strict UTF-8 validation fails.
var legacyCandidates = []candidate{
	{EncodingGB18030, simplifiedchinese.GB18030},
	{EncodingGBK, simplifiedchinese.GBK},
	{EncodingBig5, traditionalchinese.Big5},
	{EncodingWin1252, charmap.Windows1252},
	{EncodingLatin1, charmap.ISO8859_1},
}

// Result is the canonical text together with the encoding it was decoded from.
type Result struct {
	Text     string
	Encoding string
	// Lossy is set when invalid byte sequences had to be dropped.
	Lossy bool
}

// Normalize decodes raw into a valid UTF-8 string. declared is an optional
// encoding label (WHATWG names such as "gbk" or "utf-16le"); it is attempted
// before detection but only accepted when it decodes cleanly.
func Normalize(raw []byte, declared string) Result {
	if len(raw) == 0 {
		return Result{Text: "", Encoding: EncodingUTF8}
	}

	switch {
	case bytes.HasPrefix(raw, bomUTF8):
		return fromUTF8(raw[len(bomUTF8):])
	case bytes.HasPrefix(raw, bomUTF16LE):
		return decodeUTF16(raw[len(bomUTF16LE):], unicode.LittleEndian, EncodingUTF16LE)
	case bytes.HasPrefix(raw, bomUTF16BE):
		return decodeUTF16(raw[len(bomUTF16BE):], unicode.BigEndian, EncodingUTF16BE)
	}

	if declared != "" {
		if res, ok := tryDeclared(raw, declared); ok {
			return res
		}
	}

	if utf8.Valid(raw) {
		return Result{Text: string(raw), Encoding: EncodingUTF8}
	}

	for _, c := range legacyCandidates {
		if text, ok := roundTrip(raw, c.enc); ok {
			return Result{Text: text, Encoding: c.name}
		}
	}

	return Result{
		Text:     strings.ToValidUTF8(string(raw), ""),
		Encoding: EncodingFallback,
		Lossy:    true,
	}
}

// Detect reports which encoding Normalize would pick for raw.
func Detect(raw []byte) string {
	return Normalize(raw, "").Encoding
}

func fromUTF8(b []byte) Result {
	if utf8.Valid(b) {
		return Result{Text: string(b), Encoding: EncodingUTF8}
	}
	return Result{Text: strings.ToValidUTF8(string(b), ""), Encoding: EncodingUTF8, Lossy: true}
}

func decodeUTF16(b []byte, order unicode.Endianness, name string) Result {
	dec := unicode.UTF16(order, unicode.IgnoreBOM).NewDecoder()
	out, err := dec.Bytes(b)
	if err != nil {
		return Result{Text: strings.ToValidUTF8(string(b), ""), Encoding: EncodingFallback, Lossy: true}
	}
	text := string(out)
	lossy := strings.ContainsRune(text, utf8.RuneError)
	if lossy {
		text = strings.ReplaceAll(text, string(utf8.RuneError), "")
	}
	return Result{Text: text, Encoding: name, Lossy: lossy}
}

func tryDeclared(raw []byte, label string) (Result, bool) {
	name := strings.ToLower(strings.TrimSpace(label))
	switch name {
	case "utf8", EncodingUTF8:
		if utf8.Valid(raw) {
			return Result{Text: string(raw), Encoding: EncodingUTF8}, true
		}
		return Result{}, false
	case EncodingUTF16LE:
		return decodeUTF16(raw, unicode.LittleEndian, EncodingUTF16LE), true
	case EncodingUTF16BE:
		return decodeUTF16(raw, unicode.BigEndian, EncodingUTF16BE), true
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return Result{}, false
	}
	text, ok := roundTrip(raw, enc)
	if !ok {
		return Result{}, false
	}
	canonical, err := htmlindex.Name(enc)
	if err != nil {
		canonical = name
	}
	return Result{Text: text, Encoding: canonical}, true
}

// roundTrip decodes raw with enc and accepts the result only when it contains
// no replacement characters and encodes back to exactly the same bytes.
func roundTrip(raw []byte, enc encoding.Encoding) (string, bool) {
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil || !utf8.Valid(decoded) {
		return "", false
	}
	if bytes.ContainsRune(decoded, utf8.RuneError) {
		return "", false
	}
	encoded, err := enc.NewEncoder().Bytes(decoded)
	if err != nil || !bytes.Equal(encoded, raw) {
		return "", false
	}
	return string(decoded), true
}
