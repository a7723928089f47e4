package response

import (
	"bytes"
	"io"

	"github.com/Brownie44l1/nanohttpd/internal/headers"
)

// Common MIME types
const (
	MimePlaintext = "text/plain"
	MimeHTML      = "text/html"
	MimeJSON      = "application/json"
	MimeDefault   = "application/octet-stream"
)

// NewChunkedResponse streams data with chunked transfer encoding.
func NewChunkedResponse(status StatusCode, mimeType string, data io.Reader) *Response {
	return New(status, mimeType, data, -1)
}

// NewFixedLengthResponse sends exactly totalBytes from data.
func NewFixedLengthResponse(status StatusCode, mimeType string, data io.Reader, totalBytes int64) *Response {
	return New(status, mimeType, data, totalBytes)
}

// NewBytesResponse sends b with a Content-Length.
func NewBytesResponse(status StatusCode, mimeType string, b []byte) *Response {
	return New(status, mimeType, bytes.NewReader(b), int64(len(b)))
}

// NewTextResponse encodes txt in the charset named by mimeType. When that
// charset cannot represent txt the response switches to UTF-8.
func NewTextResponse(status StatusCode, mimeType string, txt string) *Response {
	ct := headers.ParseContentType(mimeType)
	if txt == "" {
		return New(status, mimeType, bytes.NewReader(nil), 0)
	}

	b, err := ct.Encode(txt)
	if err != nil {
		ct = ct.TryUTF8()
		if b, err = ct.Encode(txt); err != nil {
			b = []byte(txt)
		}
	}
	return NewBytesResponse(status, ct.Header(), b)
}

// NewPlainTextResponse is a text/plain response.
func NewPlainTextResponse(status StatusCode, txt string) *Response {
	return NewTextResponse(status, MimePlaintext, txt)
}

// NewHTMLResponse is a 200 text/html response.
func NewHTMLResponse(html string) *Response {
	return NewTextResponse(StatusOK, MimeHTML, html)
}

// ErrorResponse is a text/plain response whose body is msg, or the reason phrase when msg is empty.
func ErrorResponse(status StatusCode, msg string) *Response {
	if msg == "" {
		msg = StatusText(status)
	}
	return NewPlainTextResponse(status, msg)
}
