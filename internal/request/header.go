package request

import (
	"bytes"
	"crypto/tls"
	"io"
	"net"
	"strings"

	"github.com/pkg/errors"

	"github.com/Brownie44l1/nanohttpd/internal/logger"
	"github.com/Brownie44l1/nanohttpd/internal/response"
)

const (
	// BufSize bounds the request line plus headers.
	BufSize = 8192

	defaultVersion = "HTTP/1.1"
	usageHint      = "Usage: GET /example/file.html"
)

var (
	errSyntax       = newStatusError(response.StatusBadRequest, "BAD REQUEST: Syntax error. "+usageHint)
	errMissingURI   = newStatusError(response.StatusBadRequest, "BAD REQUEST: Missing URI. "+usageHint)
	errHeaderTooBig = newStatusError(response.StatusBadRequest, "BAD REQUEST: Request header exceeds buffer size.")
)

// findHeaderEnd returns the offset of the first byte after the header
// terminator. Both "\r\n\r\n" and "\n\n" end a header block. It returns 0
// when buf holds no terminator yet.
func findHeaderEnd(buf []byte) int {
	for i := 0; i+1 < len(buf); i++ {
		if buf[i] == '\r' && buf[i+1] == '\n' && i+3 < len(buf) && buf[i+2] == '\r' && buf[i+3] == '\n' {
			return i + 4
		}
		if buf[i] == '\n' && buf[i+1] == '\n' {
			return i + 2
		}
	}
	return 0
}

// readHeader returns the raw header block and leaves the reader positioned
// at the first body byte. Bytes past the split stay buffered for the body
// or the next request on the connection.
func (s *Session) readHeader() ([]byte, error) {
	want, scanned := 1, 0
	for {
		buf, err := s.in.Peek(want)
		if len(buf) == 0 {
			return nil, classifyReadError(err)
		}
		buf, _ = s.in.Peek(s.in.Buffered())

		// a terminator may straddle the previous read
		from := scanned - 3
		if from < 0 {
			from = 0
		}
		scanned = len(buf)
		if split := findHeaderEnd(buf[from:]); split > 0 {
			split += from
			header := make([]byte, split)
			copy(header, buf)
			if _, err := s.in.Discard(split); err != nil {
				return nil, errors.Wrap(err, "discard header")
			}
			return header, nil
		}

		if len(buf) >= BufSize {
			return nil, errHeaderTooBig
		}
		if err != nil {
			return nil, classifyReadError(err)
		}
		want = len(buf) + 1
	}
}

// classifyReadError maps a failed socket read to the error the session reports.
func classifyReadError(err error) error {
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return ErrConnectionClosed
	}
	return err
}

// isTLSError reports handshake and record layer failures.
func isTLSError(err error) bool {
	var rh tls.RecordHeaderError
	if errors.As(err, &rh) {
		return true
	}
	var alert tls.AlertError
	if errors.As(err, &alert) {
		return true
	}
	return strings.HasPrefix(err.Error(), "tls: ")
}

// decodeHeader parses the request line and header fields of one request.
func (s *Session) decodeHeader(header []byte) error {
	nl := bytes.IndexByte(header, '\n')
	if nl == -1 {
		nl = len(header)
	}
	line := strings.TrimRight(string(header[:nl]), "\r")

	rl, err := parseRequestLine(line)
	s.methodName = rl.Method
	if err != nil {
		return err
	}

	uri := rl.Target
	if q := strings.IndexByte(uri, '?'); q >= 0 {
		s.queryString = uri[q+1:]
		decodeParms(s.queryString, s.params)
		uri = uri[:q]
	}
	s.uri = DecodePercent(uri)

	s.protocolVersion = rl.Version
	if rl.Defaulted {
		s.log.Debug("no protocol version specified, assuming HTTP/1.1", logger.F("uri", s.uri))
	}

	if nl < len(header) {
		s.headers.Parse(header[nl+1:])
	}
	return nil
}
