package response

import (
	"compress/gzip"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/net/http/httpguts"

	"github.com/Brownie44l1/nanohttpd/internal/headers"
	"github.com/Brownie44l1/nanohttpd/internal/logger"
)

// TimeFormat is the RFC 1123 layout used for Date and cookie expiry headers.
const TimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

const sendBufferSize = 16 * 1024

var (
	ErrInvalidHeader = errors.New("invalid header")
	ErrNoStatus      = errors.New("response has no status")
)

// GzipUsage decides whether a body is gzip encoded.
type GzipUsage int

const (
	// GzipDefault compresses text/* and JSON bodies.
	GzipDefault GzipUsage = iota
	GzipAlways
	GzipNever
)

// Response is an HTTP response waiting to be sent. It is consumed by exactly one call to Send.
type Response struct {
	status        StatusCode
	mimeType      string
	data          io.Reader
	contentLength int64
	header        *headers.Headers
	cookieHeaders []string
	requestMethod string
	chunked       bool
	keepAlive     bool
	closeConn     bool
	gzip          GzipUsage
	log           logger.Logger
}

// New builds a response. A negative length selects chunked transfer.
func New(status StatusCode, mimeType string, data io.Reader, length int64) *Response {
	r := &Response{
		status:    status,
		mimeType:  mimeType,
		header:    headers.NewHeaders(),
		keepAlive: true,
	}
	if data == nil {
		r.data = strings.NewReader("")
		r.contentLength = 0
	} else {
		r.data = data
		r.contentLength = length
	}
	r.chunked = r.contentLength < 0
	return r
}

func (r *Response) Status() StatusCode { return r.status }

func (r *Response) SetStatus(status StatusCode) { r.status = status }

func (r *Response) MimeType() string { return r.mimeType }

func (r *Response) SetMimeType(mimeType string) { r.mimeType = mimeType }

func (r *Response) Data() io.Reader { return r.data }

func (r *Response) SetData(data io.Reader) { r.data = data }

// AddHeader sets a header after checking that name and value are legal on the wire.
func (r *Response) AddHeader(name, value string) error {
	if !httpguts.ValidHeaderFieldName(name) {
		return errors.Wrapf(ErrInvalidHeader, "name %q", name)
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		return errors.Wrapf(ErrInvalidHeader, "value for %s", name)
	}
	r.header.Set(name, value)
	return nil
}

// Header returns a header value, or "" when absent.
func (r *Response) Header(name string) string {
	return r.header.Value(name)
}

func (r *Response) Headers() *headers.Headers { return r.header }

// AddCookieHeader queues a Set-Cookie value.
func (r *Response) AddCookieHeader(cookie string) {
	r.cookieHeaders = append(r.cookieHeaders, cookie)
}

func (r *Response) CookieHeaders() []string { return r.cookieHeaders }

// CloseConnection asks the server to drop the connection after sending.
func (r *Response) CloseConnection(close bool) {
	r.closeConn = close
	if close {
		r.header.Set("Connection", "close")
	} else {
		r.header.Del("Connection")
	}
}

func (r *Response) IsCloseConnection() bool {
	return strings.EqualFold(r.header.Value("connection"), "close") || r.closeConn
}

func (r *Response) SetChunkedTransfer(chunked bool) { r.chunked = chunked }

func (r *Response) SetKeepAlive(keepAlive bool) { r.keepAlive = keepAlive }

func (r *Response) KeepAlive() bool { return r.keepAlive }

func (r *Response) SetRequestMethod(method string) { r.requestMethod = method }

func (r *Response) RequestMethod() string { return r.requestMethod }

// SetUseGzip forces compression on or off.
func (r *Response) SetUseGzip(use bool) {
	if use {
		r.gzip = GzipAlways
	} else {
		r.gzip = GzipNever
	}
}

// UseGzipWhenAccepted reports whether the body will be compressed for a client that accepts gzip.
func (r *Response) UseGzipWhenAccepted() bool {
	if r.gzip == GzipDefault {
		mime := strings.ToLower(r.mimeType)
		return mime != "" && (strings.Contains(mime, "text/") || strings.Contains(mime, "/json"))
	}
	return r.gzip == GzipAlways
}

// SetLogger sets where Send reports problems with caller supplied headers.
func (r *Response) SetLogger(log logger.Logger) { r.log = log }

// Close releases the body source.
func (r *Response) Close() error {
	if c, ok := r.data.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

type flusher interface {
	Flush() error
}

// Send writes the response to out. The body source is closed whatever the outcome.
func (r *Response) Send(out io.Writer) (err error) {
	defer func() {
		if cerr := r.Close(); err == nil && cerr != nil {
			err = errors.Wrap(cerr, "close response data")
		}
	}()
	if r.status == 0 {
		return ErrNoStatus
	}

	w := NewWriter(out)
	defer w.Release()

	w.WriteStatusLine(r.status)
	if r.mimeType != "" {
		w.WriteHeader("Content-Type", r.mimeType)
	}
	if !r.header.Has("date") {
		w.WriteHeader("Date", time.Now().UTC().Format(TimeFormat))
	}
	r.header.Each(func(name, value string) {
		w.WriteHeader(name, value)
	})
	for _, c := range r.cookieHeaders {
		w.WriteHeader("Set-Cookie", c)
	}
	if !r.header.Has("connection") {
		if r.keepAlive {
			w.WriteHeader("Connection", "keep-alive")
		} else {
			w.WriteHeader("Connection", "close")
		}
	}

	var pending int64
	if r.data != nil {
		pending = r.contentLength
	}
	explicitLength := r.header.Has("content-length")
	if explicitLength {
		r.gzip = GzipNever
		r.chunked = false
		pending = r.declaredLength(pending)
	}

	useGzip := r.UseGzipWhenAccepted()
	if useGzip {
		w.WriteHeader("Content-Encoding", "gzip")
		r.chunked = true
	}

	isHead := r.requestMethod == "HEAD"
	if !isHead && r.chunked {
		w.WriteHeader("Transfer-Encoding", "chunked")
	} else if !useGzip && !explicitLength {
		if pending < 0 {
			pending = 0
		}
		w.WriteHeader("Content-Length", formatLength(pending))
	}
	if err := w.EndHeaders(); err != nil {
		return errors.Wrap(err, "write response headers")
	}

	if !isHead {
		if err := r.sendBody(w, pending, useGzip); err != nil {
			return err
		}
	}

	if f, ok := out.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// declaredLength is the caller's Content-Length, or fallback when it is not a number.
func (r *Response) declaredLength(fallback int64) int64 {
	v := r.header.Value("content-length")
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n < 0 {
		r.logger().Warn("content-length was not a number", logger.F("content_length", v))
		return fallback
	}
	return n
}

func (r *Response) logger() logger.Logger {
	if r.log == nil {
		return logger.Nop()
	}
	return r.log
}

func (r *Response) sendBody(w *Writer, pending int64, useGzip bool) error {
	var dst io.Writer = w
	var chunked io.WriteCloser
	if r.chunked {
		chunked = w.ChunkedBody()
		dst = chunked
		pending = -1
	}

	var gz *gzip.Writer
	if useGzip {
		gz = gzip.NewWriter(dst)
		dst = gz
		pending = -1
	}

	if err := copyBody(dst, r.data, pending); err != nil {
		return errors.Wrap(err, "write response body")
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return errors.Wrap(err, "finish gzip body")
		}
	}
	if chunked != nil {
		if err := chunked.Close(); err != nil {
			return errors.Wrap(err, "finish chunked body")
		}
	}
	return nil
}

// copyBody sends pending bytes, or everything when pending is -1. A short source is not an error.
func copyBody(dst io.Writer, src io.Reader, pending int64) error {
	if src == nil {
		return nil
	}
	if pending >= 0 {
		src = io.LimitReader(src, pending)
	}
	buf := make([]byte, sendBufferSize)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
