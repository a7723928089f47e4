package response

import (
	"fmt"
	"io"
	"strconv"

	"github.com/pkg/errors"
	"github.com/valyala/bytebufferpool"
)

var (
	ErrStatusWritten     = errors.New("status line already written")
	ErrStatusNotWritten  = errors.New("must write status line before headers")
	ErrHeadersNotWritten = errors.New("must write headers before body")
)

// writerState tracks what's been written so far
type writerState int

const (
	stateStart writerState = iota
	stateStatusWritten
	stateHeadersWritten
	stateBodyWritten
)

// Writer frames an HTTP/1.1 response onto an io.Writer. The status line
// and header block are assembled in a pooled buffer and written in one go.
type Writer struct {
	w          io.Writer
	head       *bytebufferpool.ByteBuffer
	state      writerState
	statusCode StatusCode
	hadError   bool
}

// NewWriter creates a new response writer
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		w:     w,
		state: stateStart,
	}
}

// WriteStatusLine writes the HTTP status line
func (w *Writer) WriteStatusLine(code StatusCode) error {
	if w.state != stateStart {
		return ErrStatusWritten
	}

	w.head = bytebufferpool.Get()
	w.head.WriteString("HTTP/1.1 ")
	w.head.WriteString(code.Description())
	w.head.WriteString("\r\n")

	w.statusCode = code
	w.state = stateStatusWritten
	return nil
}

// WriteHeader appends one header line.
func (w *Writer) WriteHeader(name, value string) error {
	if w.state != stateStatusWritten {
		return ErrStatusNotWritten
	}
	w.head.WriteString(name)
	w.head.WriteString(": ")
	w.head.WriteString(value)
	w.head.WriteString("\r\n")
	return nil
}

// EndHeaders terminates the header block and flushes it to the connection.
func (w *Writer) EndHeaders() error {
	if w.state != stateStatusWritten {
		return ErrStatusNotWritten
	}
	w.head.WriteString("\r\n")
	_, err := w.w.Write(w.head.B)
	bytebufferpool.Put(w.head)
	w.head = nil
	if err != nil {
		w.hadError = true
		return err
	}

	w.state = stateHeadersWritten
	return nil
}

// Write sends raw body bytes.
func (w *Writer) Write(p []byte) (int, error) {
	if w.state != stateHeadersWritten && w.state != stateBodyWritten {
		return 0, ErrHeadersNotWritten
	}
	n, err := w.w.Write(p)
	if err != nil {
		w.hadError = true
		return n, err
	}
	w.state = stateBodyWritten
	return n, nil
}

// WriteChunk writes a single chunk (for chunked transfer encoding)
func (w *Writer) WriteChunk(data []byte) error {
	if len(data) == 0 {
		return nil // empty chunks would end the body
	}
	if _, err := w.Write([]byte(fmt.Sprintf("%x\r\n", len(data)))); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err := w.Write([]byte("\r\n"))
	return err
}

// FinishChunked writes the final zero-length chunk
func (w *Writer) FinishChunked() error {
	_, err := w.Write([]byte("0\r\n\r\n"))
	return err
}

// ChunkedBody returns a writer that frames every Write as one chunk.
// Close writes the terminating chunk but leaves the connection open.
func (w *Writer) ChunkedBody() io.WriteCloser {
	return &chunkedWriter{w: w}
}

type chunkedWriter struct {
	w      *Writer
	closed bool
}

func (c *chunkedWriter) Write(p []byte) (int, error) {
	if c.closed {
		return 0, errors.New("write to closed chunked body")
	}
	if err := c.w.WriteChunk(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *chunkedWriter) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.w.FinishChunked()
}

// Release returns the pooled header buffer if headers were never flushed.
func (w *Writer) Release() {
	if w.head != nil {
		bytebufferpool.Put(w.head)
		w.head = nil
	}
}

func (w *Writer) HadError() bool {
	return w.hadError
}

func (w *Writer) StatusCode() StatusCode {
	return w.statusCode
}

func formatLength(n int64) string {
	return strconv.FormatInt(n, 10)
}
