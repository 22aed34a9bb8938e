// Package extract turns raw provider messages into normalized text records.
package extract

import (
	"encoding/base64"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"sift_server/core/port/out"
)

// tagPattern matches markup tags in HTML bodies: <p>, </div>, <br/>, ...
// Compiled once at package level for performance
var tagPattern = regexp.MustCompile(`<[^>]+>`)

// legacyEncodings is the ordered fallback chain for payloads that are not
// valid UTF-8.
var legacyEncodings = []encoding.Encoding{
	charmap.ISO8859_1,   // latin-1
	charmap.Windows1252, // cp1252
}

// ExtractPart decodes a single part's payload into plain text.
// All failures degrade to an empty string or partially-decoded text;
// this function never returns an error.
func ExtractPart(part *out.RawPart) string {
	if !part.HasData() {
		return ""
	}

	raw, ok := decodeBase64(part.Data)
	if !ok {
		return ""
	}

	text := decodeText(raw)

	// Strip markup for HTML bodies
	if strings.Contains(strings.ToLower(part.MimeType), "html") {
		text = tagPattern.ReplaceAllString(text, "")
		text = html.UnescapeString(text)
	}

	return strings.TrimSpace(text)
}

// decodeBase64 decodes the provider's base64url payload. Gmail omits
// padding; padded and standard alphabets are accepted as well.
func decodeBase64(data string) ([]byte, bool) {
	for _, enc := range []*base64.Encoding{
		base64.RawURLEncoding,
		base64.URLEncoding,
		base64.StdEncoding,
		base64.RawStdEncoding,
	} {
		if raw, err := enc.DecodeString(data); err == nil {
			return raw, true
		}
	}
	return nil, false
}

// decodeText resolves the payload bytes to a UTF-8 string. UTF-8 is
// attempted first, then the legacy single-byte encodings in order; the
// final replacement-rune pass cannot fail.
func decodeText(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}

	for _, enc := range legacyEncodings {
		if text, err := enc.NewDecoder().Bytes(raw); err == nil {
			return string(text)
		}
	}

	return strings.ToValidUTF8(string(raw), string(utf8.RuneError))
}
