package subtitles

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"

	"subfetch/internal/language"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// legacyCharsets maps a language to the single-byte or DBCS code page its
// subtitles are most often published in when they are not UTF-8.
var legacyCharsets = map[string]encoding.Encoding{
	"ru": charmap.Windows1251,
	"uk": charmap.Windows1251,
	"bg": charmap.Windows1251,
	"sr": charmap.Windows1251,
	"mk": charmap.Windows1251,
	"pl": charmap.Windows1250,
	"cs": charmap.Windows1250,
	"sk": charmap.Windows1250,
	"hu": charmap.Windows1250,
	"ro": charmap.Windows1250,
	"hr": charmap.Windows1250,
	"sl": charmap.Windows1250,
	"sq": charmap.Windows1250,
	"el": charmap.Windows1253,
	"tr": charmap.Windows1254,
	"he": charmap.Windows1255,
	"ar": charmap.Windows1256,
	"fa": charmap.Windows1256,
	"vi": charmap.Windows1258,
	"th": charmap.Windows874,
	"zh": simplifiedchinese.GB18030,
	"ja": japanese.ShiftJIS,
	"ko": korean.EUCKR,
}

// DecodeText converts subtitle bytes to UTF-8 text. BOM-marked UTF-8 and UTF-16
// are honoured, valid UTF-8 is returned unchanged, and anything else is decoded
// with the legacy code page of lang (Windows-1252 when unknown). The second
// return value names the detected source encoding.
func DecodeText(data []byte, lang string) (string, string, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return string(data[len(bomUTF8):]), "utf-8", nil
	case bytes.HasPrefix(data, bomUTF16LE):
		decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder().Bytes(data)
		return string(decoded), "utf-16le", err
	case bytes.HasPrefix(data, bomUTF16BE):
		decoded, err := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(data)
		return string(decoded), "utf-16be", err
	case utf8.Valid(data):
		return string(data), "utf-8", nil
	}
	enc, name := legacyCharset(lang)
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", name, fmt.Errorf("decode %s: %w", name, err)
	}
	return string(decoded), name, nil
}

func legacyCharset(lang string) (encoding.Encoding, string) {
	if enc, ok := legacyCharsets[language.ToISO2(lang)]; ok {
		name, err := htmlindex.Name(enc)
		if err != nil {
			name = "legacy"
		}
		return enc, name
	}
	return charmap.Windows1252, "windows-1252"
}

// Reencode decodes data (see DecodeText) and encodes the text with the named
// charset, for example "utf-8" or "windows-1252". Characters the target cannot
// represent are replaced.
func Reencode(data []byte, lang, charset string) ([]byte, error) {
	text, _, err := DecodeText(data, lang)
	if err != nil {
		return nil, err
	}
	charset = strings.ToLower(strings.TrimSpace(charset))
	if charset == "" || charset == "utf-8" || charset == "utf8" {
		return []byte(text), nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", charset, err)
	}
	out, err := encoding.ReplaceUnsupported(enc.NewEncoder()).Bytes([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", charset, err)
	}
	return out, nil
}

// KnownCharset reports whether charset names an encoding Reencode accepts.
func KnownCharset(charset string) bool {
	charset = strings.ToLower(strings.TrimSpace(charset))
	if charset == "utf-8" || charset == "utf8" {
		return true
	}
	_, err := htmlindex.Get(charset)
	return err == nil
}
