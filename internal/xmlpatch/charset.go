package xmlpatch

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

var (
	utf8BOM     = []byte{0xEF, 0xBB, 0xBF}
	xmlDeclRE   = regexp.MustCompile(`^<\?xml\s[^>]*?encoding\s*=\s*["']([A-Za-z0-9._:-]+)["']`)
	errNotASCII = errors.New("encoding is not ASCII-compatible")
)

// DeclaredEncoding returns the encoding label of doc's XML declaration,
// or "" if there is none.
func DeclaredEncoding(doc []byte) string {
	m := xmlDeclRE.FindSubmatch(bytes.TrimPrefix(doc, utf8BOM))
	if m == nil {
		return ""
	}
	return string(m[1])
}

// IsUTF8 reports whether an encoding label denotes UTF-8. The empty label
// is UTF-8 by the XML default.
func IsUTF8(label string) bool {
	return label == "" || strings.EqualFold(label, "utf-8") || strings.EqualFold(label, "utf8")
}

// source is the UTF-8 text handed to the XML decoder, together with the
// mapping of its offsets back to the original document.
type source struct {
	text []byte
	base int   // offset of text[0] in the original, used if orig is nil
	orig []int // orig[i] is the original offset of text[i]; len(text)+1 entries
}

func (s *source) originalOffset(off int64) int {
	if s.orig == nil {
		return s.base + int(off)
	}
	return s.orig[off]
}

// newSource prepares doc for scanning. UTF-8 documents are scanned in place.
// Documents in a single-byte encoding are transcoded to UTF-8 with an offset
// map, so that Marks still refer to bytes of the original document.
func newSource(doc []byte) (*source, error) {
	if bytes.HasPrefix(doc, utf8BOM) {
		return &source{text: doc[len(utf8BOM):], base: len(utf8BOM)}, nil
	}
	label := DeclaredEncoding(doc)
	if IsUTF8(label) {
		return &source{text: doc}, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q", label)
	}
	if name, _ := htmlindex.Name(enc); strings.HasPrefix(name, "utf-16") {
		return nil, fmt.Errorf("encoding %q: %w", label, errNotASCII)
	}
	cm, ok := enc.(*charmap.Charmap)
	if !ok {
		// Multi-byte encodings are only supported for pure ASCII content.
		for _, b := range doc {
			if b >= utf8.RuneSelf {
				return nil, fmt.Errorf("encoding %q: only ASCII content is supported", label)
			}
		}
		return &source{text: doc}, nil
	}

	text := make([]byte, 0, len(doc)+len(doc)/8)
	orig := make([]int, 0, cap(text)+1)
	for i, b := range doc {
		n := len(text)
		text = utf8.AppendRune(text, cm.DecodeByte(b))
		for j := 0; j < len(text)-n; j++ {
			orig = append(orig, i)
		}
	}
	orig = append(orig, len(doc))
	return &source{text: text, orig: orig}, nil
}

// passthroughCharsetReader is installed on decoders reading a source: the
// text is already UTF-8, whatever the declaration says.
func passthroughCharsetReader(label string, input io.Reader) (io.Reader, error) {
	return input, nil
}
