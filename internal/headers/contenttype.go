package headers

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/htmlindex"
)

const (
	// DefaultEncoding applies when a header has no charset parameter.
	DefaultEncoding = "US-ASCII"
	// ContentTypeMultipartFormData is the only media type that carries a boundary.
	ContentTypeMultipartFormData = "multipart/form-data"
)

var (
	mimePattern     = regexp.MustCompile(`(?i)[ \t]*([^/^ ;,]+/[^^ ;,]+)`)
	charsetPattern  = regexp.MustCompile(`(?i)[ \t]*(charset)[ \t]*=[ \t]*['"]?([^"';,]*)['"]?`)
	boundaryPattern = regexp.MustCompile(`(?i)[ \t]*(boundary)[ \t]*=[ \t]*['"]?([^"';,]*)['"]?`)
)

// ErrUnsupportedCharset is returned when a charset name is not recognised.
var ErrUnsupportedCharset = errors.New("unsupported charset")

// ContentType is a parsed Content-Type header value.
type ContentType struct {
	header   string
	mime     string
	encoding string
	boundary string
}

// ParseContentType extracts the media type, charset and multipart boundary.
// An empty header yields an empty media type with UTF-8 encoding.
func ParseContentType(header string) ContentType {
	ct := ContentType{header: header}
	if header == "" {
		ct.encoding = "UTF-8"
		return ct
	}

	ct.mime = firstGroup(mimePattern, header, 1)
	ct.encoding = firstGroup(charsetPattern, header, 2)
	if ct.IsMultipart() {
		ct.boundary = firstGroup(boundaryPattern, header, 2)
	}
	return ct
}

func firstGroup(re *regexp.Regexp, s string, group int) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[group]
}

func (ct ContentType) Header() string { return ct.header }

func (ct ContentType) MimeType() string { return ct.mime }

// Encoding returns the charset, or US-ASCII when none was declared.
func (ct ContentType) Encoding() string {
	if ct.encoding == "" {
		return DefaultEncoding
	}
	return ct.encoding
}

func (ct ContentType) Boundary() string { return ct.boundary }

func (ct ContentType) IsMultipart() bool {
	return strings.EqualFold(ct.mime, ContentTypeMultipartFormData)
}

// TryUTF8 returns a content type that declares UTF-8 when no charset was given.
func (ct ContentType) TryUTF8() ContentType {
	if ct.encoding == "" {
		return ParseContentType(ct.header + "; charset=UTF-8")
	}
	return ct
}

// Encode converts s to bytes in the declared charset.
func (ct ContentType) Encode(s string) ([]byte, error) {
	name := ct.Encoding()
	switch {
	case isUTF8(name):
		return []byte(s), nil
	case isASCII(name):
		for i := 0; i < len(s); i++ {
			if s[i] >= utf8.RuneSelf {
				return nil, errors.Errorf("charset %s cannot encode %q", name, s)
			}
		}
		return []byte(s), nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, errors.Wrap(ErrUnsupportedCharset, name)
	}
	out, err := enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, errors.Wrapf(err, "charset %s", name)
	}
	return out, nil
}

// Decode converts bytes in the declared charset to a string.
func (ct ContentType) Decode(b []byte) (string, error) {
	name := ct.Encoding()
	if isUTF8(name) || isASCII(name) {
		return string(b), nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return "", errors.Wrap(ErrUnsupportedCharset, name)
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", errors.Wrapf(err, "charset %s", name)
	}
	return string(out), nil
}

func isUTF8(name string) bool {
	return strings.EqualFold(name, "UTF-8") || strings.EqualFold(name, "UTF8")
}

func isASCII(name string) bool {
	return strings.EqualFold(name, "US-ASCII") || strings.EqualFold(name, "ASCII")
}
