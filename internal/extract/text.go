package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Tried in order when the bytes are not valid UTF-8.
var fallbackEncodings = []struct {
	name string
	enc  encoding.Encoding
}{
	{"latin-1", charmap.ISO8859_1},
	{"cp1252", charmap.Windows1252},
	{"iso-8859-1", charmap.ISO8859_1},
}

func extractText(data []byte, meta *Metadata) (string, error) {
	s, enc, err := decodeText(data)
	if err != nil {
		return "", err
	}
	meta.Encoding = enc
	return normalizeNewlines(s), nil
}

var newlineReplacer = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// normalizeNewlines rewrites CRLF and lone CR line endings to LF.
func normalizeNewlines(s string) string {
	return newlineReplacer.Replace(s)
}

func decodeText(data []byte) (string, string, error) {
	if utf8.Valid(data) {
		return string(data), "utf-8", nil
	}

	for _, fb := range fallbackEncodings {
		out, err := fb.enc.NewDecoder().Bytes(data)
		if err == nil {
			return string(out), fb.name, nil
		}
	}
	return "", "", fmt.Errorf("%w: could not decode text with any known encoding", ErrExtraction)
}
