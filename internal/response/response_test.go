package response

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"io"
	"net/http/httputil"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/nanohttpd/internal/logger"
)

// splitResponse separates the header block from the body.
func splitResponse(t *testing.T, raw string) (string, string) {
	t.Helper()
	idx := strings.Index(raw, "\r\n\r\n")
	require.NotEqual(t, -1, idx, "no header terminator in %q", raw)
	return raw[:idx+2], raw[idx+4:]
}

type trackingReader struct {
	io.Reader
	closed bool
}

func (r *trackingReader) Close() error {
	r.closed = true
	return nil
}

func TestWriterStatusLine(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewWriter(buf)
	require.NoError(t, w.WriteStatusLine(StatusOK))
	require.NoError(t, w.EndHeaders())
	assert.Equal(t, "HTTP/1.1 200 OK\r\n\r\n", buf.String())

	buf = &bytes.Buffer{}
	w = NewWriter(buf)
	require.NoError(t, w.WriteStatusLine(StatusPayloadTooLarge))
	require.NoError(t, w.EndHeaders())
	assert.Equal(t, "HTTP/1.1 413 Payload Too Large\r\n\r\n", buf.String())
}

func TestWriterStateValidation(t *testing.T) {
	w := NewWriter(&bytes.Buffer{})
	assert.ErrorIs(t, w.WriteHeader("Content-Type", "text/plain"), ErrStatusNotWritten)

	_, err := w.Write([]byte("body"))
	assert.ErrorIs(t, err, ErrHeadersNotWritten)

	require.NoError(t, w.WriteStatusLine(StatusOK))
	assert.ErrorIs(t, w.WriteStatusLine(StatusOK), ErrStatusWritten)
	w.Release()
}

func TestChunkedBodyRawBytes(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewWriter(buf)
	require.NoError(t, w.WriteStatusLine(StatusOK))
	require.NoError(t, w.WriteHeader("Transfer-Encoding", "chunked"))
	require.NoError(t, w.EndHeaders())

	body := w.ChunkedBody()
	_, err := body.Write([]byte("TEST"))
	require.NoError(t, err)
	_, err = body.Write(make([]byte, 255))
	require.NoError(t, err)
	require.NoError(t, body.Close())
	require.NoError(t, body.Close())

	_, got := splitResponse(t, buf.String())
	assert.True(t, strings.HasPrefix(got, "4\r\nTEST\r\nff\r\n"))
	assert.True(t, strings.HasSuffix(got, "\r\n0\r\n\r\n"))
	assert.Equal(t, 1, strings.Count(got, "0\r\n\r\n"))
}

func TestSendFixedLength(t *testing.T) {
	data := &trackingReader{Reader: strings.NewReader("Hello, World!")}
	r := NewFixedLengthResponse(StatusOK, "application/octet-stream", data, 13)
	require.NoError(t, r.AddHeader("X-Custom", "yes"))
	r.AddCookieHeader("session=abc; expires=Thu, 01 Jan 1970 00:00:00 GMT")

	buf := &bytes.Buffer{}
	require.NoError(t, r.Send(buf))

	head, body := splitResponse(t, buf.String())
	assert.True(t, strings.HasPrefix(head, "HTTP/1.1 200 OK\r\n"))
	assert.Contains(t, head, "Content-Type: application/octet-stream\r\n")
	assert.Contains(t, head, "Date: ")
	assert.Contains(t, head, "X-Custom: yes\r\n")
	assert.Contains(t, head, "Set-Cookie: session=abc; expires=Thu, 01 Jan 1970 00:00:00 GMT\r\n")
	assert.Contains(t, head, "Connection: keep-alive\r\n")
	assert.Contains(t, head, "Content-Length: 13\r\n")
	assert.NotContains(t, head, "Transfer-Encoding")
	assert.Equal(t, "Hello, World!", body)
	assert.True(t, data.closed)
}

func TestSendExplicitContentLengthDisablesChunkingAndGzip(t *testing.T) {
	r := NewChunkedResponse(StatusOK, "text/plain", strings.NewReader("hello world"))
	r.SetUseGzip(true)
	require.NoError(t, r.AddHeader("Content-Length", "5"))

	buf := &bytes.Buffer{}
	require.NoError(t, r.Send(buf))

	head, body := splitResponse(t, buf.String())
	assert.NotContains(t, head, "Transfer-Encoding")
	assert.NotContains(t, head, "Content-Encoding")
	assert.Equal(t, 1, strings.Count(head, "Content-Length"))
	assert.Equal(t, "hello", body)
}

type warnRecorder struct {
	logger.NullLogger
	warnings []string
	fields   []logger.Field
}

func (w *warnRecorder) Warn(msg string, fields ...logger.Field) {
	w.warnings = append(w.warnings, msg)
	w.fields = append(w.fields, fields...)
}

func TestSendInvalidContentLengthKeepsDataLength(t *testing.T) {
	r := NewBytesResponse(StatusOK, MimeDefault, []byte("hello"))
	require.NoError(t, r.AddHeader("Content-Length", "abc"))
	log := &warnRecorder{}
	r.SetLogger(log)

	buf := &bytes.Buffer{}
	require.NoError(t, r.Send(buf))

	head, body := splitResponse(t, buf.String())
	assert.Contains(t, head, "Content-Length: abc\r\n")
	assert.Equal(t, 1, strings.Count(head, "Content-Length"))
	assert.Equal(t, "hello", body)

	require.Len(t, log.warnings, 1)
	assert.Equal(t, "content-length was not a number", log.warnings[0])
	assert.Equal(t, []logger.Field{logger.F("content_length", "abc")}, log.fields)
}

func TestUseGzipWhenAcceptedIgnoresMimeCase(t *testing.T) {
	for _, mime := range []string{"Text/HTML", "APPLICATION/JSON", "text/plain; charset=UTF-8"} {
		r := New(StatusOK, mime, strings.NewReader("x"), 1)
		assert.True(t, r.UseGzipWhenAccepted(), mime)
	}
	r := New(StatusOK, "Image/PNG", strings.NewReader("x"), 1)
	assert.False(t, r.UseGzipWhenAccepted())
}

func TestSendChunked(t *testing.T) {
	r := NewChunkedResponse(StatusOK, "application/octet-stream", strings.NewReader("hello"))
	r.SetKeepAlive(false)

	buf := &bytes.Buffer{}
	require.NoError(t, r.Send(buf))

	head, body := splitResponse(t, buf.String())
	assert.Contains(t, head, "Transfer-Encoding: chunked\r\n")
	assert.Contains(t, head, "Connection: close\r\n")
	assert.NotContains(t, head, "Content-Length")
	assert.Equal(t, "5\r\nhello\r\n0\r\n\r\n", body)
}

func TestSendGzipNotFound(t *testing.T) {
	r := NewPlainTextResponse(StatusNotFound, "404 Not Found")
	require.True(t, r.UseGzipWhenAccepted())

	buf := &bytes.Buffer{}
	require.NoError(t, r.Send(buf))

	head, body := splitResponse(t, buf.String())
	assert.True(t, strings.HasPrefix(head, "HTTP/1.1 404 Not Found\r\n"))
	assert.Contains(t, head, "Content-Encoding: gzip\r\n")
	assert.Contains(t, head, "Transfer-Encoding: chunked\r\n")

	compressed, err := io.ReadAll(httputil.NewChunkedReader(bufio.NewReader(strings.NewReader(body))))
	require.NoError(t, err)
	require.True(t, len(compressed) > 2)
	assert.Equal(t, []byte{0x1f, 0x8b}, compressed[:2])

	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, "404 Not Found", string(plain))
}

func TestSendGzipNeverKeepsFixedLength(t *testing.T) {
	r := NewPlainTextResponse(StatusOK, "abc")
	r.SetUseGzip(false)

	buf := &bytes.Buffer{}
	require.NoError(t, r.Send(buf))

	head, body := splitResponse(t, buf.String())
	assert.Contains(t, head, "Content-Length: 3\r\n")
	assert.NotContains(t, head, "gzip")
	assert.Equal(t, "abc", body)
}

func TestSendHeadWritesNoBody(t *testing.T) {
	for _, r := range []*Response{
		NewBytesResponse(StatusOK, "application/octet-stream", []byte("payload")),
		NewChunkedResponse(StatusOK, "application/octet-stream", strings.NewReader("payload")),
	} {
		r.SetRequestMethod("HEAD")
		buf := &bytes.Buffer{}
		require.NoError(t, r.Send(buf))

		head, body := splitResponse(t, buf.String())
		assert.Empty(t, body)
		assert.NotContains(t, head, "Transfer-Encoding")
	}
}

func TestSendKeepsCallerDateAndConnection(t *testing.T) {
	r := NewBytesResponse(StatusNoContent, "", nil)
	require.NoError(t, r.AddHeader("Date", "Mon, 01 Jan 2024 00:00:00 GMT"))
	r.CloseConnection(true)

	buf := &bytes.Buffer{}
	require.NoError(t, r.Send(buf))

	head, _ := splitResponse(t, buf.String())
	assert.Equal(t, 1, strings.Count(head, "Date:"))
	assert.Contains(t, head, "Date: Mon, 01 Jan 2024 00:00:00 GMT\r\n")
	assert.Equal(t, 1, strings.Count(head, "Connection:"))
	assert.NotContains(t, head, "Content-Type")
	assert.True(t, r.IsCloseConnection())
}

func TestAddHeaderRejectsInvalidFields(t *testing.T) {
	r := NewBytesResponse(StatusOK, MimePlaintext, nil)
	assert.ErrorIs(t, r.AddHeader("Bad Name", "x"), ErrInvalidHeader)
	assert.ErrorIs(t, r.AddHeader("X-Ok", "line\r\nInjected: 1"), ErrInvalidHeader)
	assert.Empty(t, r.Header("x-ok"))

	require.NoError(t, r.AddHeader("X-Ok", "fine"))
	assert.Equal(t, "fine", r.Header("X-OK"))
}

func TestNewTextResponseFallsBackToUTF8(t *testing.T) {
	r := NewPlainTextResponse(StatusOK, "naïve")
	assert.Equal(t, "text/plain; charset=UTF-8", r.MimeType())

	r = NewTextResponse(StatusOK, "text/plain; charset=ISO-8859-1", "naïve")
	assert.Equal(t, "text/plain; charset=ISO-8859-1", r.MimeType())
	r.SetUseGzip(false)

	buf := &bytes.Buffer{}
	require.NoError(t, r.Send(buf))
	_, body := splitResponse(t, buf.String())
	assert.Equal(t, []byte{'n', 'a', 0xEF, 'v', 'e'}, []byte(body))
}

func TestStatusDescription(t *testing.T) {
	assert.Equal(t, "200 OK", StatusOK.Description())
	assert.Equal(t, "404 Not Found", StatusNotFound.Description())
	assert.Equal(t, "Unknown Status", StatusText(StatusCode(299)))

	s, ok := LookupStatus(207)
	assert.True(t, ok)
	assert.Equal(t, StatusMultiStatus, s)
	_, ok = LookupStatus(299)
	assert.False(t, ok)

	assert.True(t, StatusNotFound.IsClientError())
	assert.True(t, StatusHTTPVersionNotSupported.IsServerError())
	assert.False(t, StatusOK.IsError())
}

func TestErrorResponseDefaultsToReason(t *testing.T) {
	r := ErrorResponse(StatusForbidden, "")
	r.SetUseGzip(false)
	buf := &bytes.Buffer{}
	require.NoError(t, r.Send(buf))
	_, body := splitResponse(t, buf.String())
	assert.Equal(t, "Forbidden", body)
}
