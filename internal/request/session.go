package request

import (
	"bufio"
	"io"
	"net"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/Brownie44l1/nanohttpd/internal/cookie"
	"github.com/Brownie44l1/nanohttpd/internal/headers"
	"github.com/Brownie44l1/nanohttpd/internal/logger"
	"github.com/Brownie44l1/nanohttpd/internal/response"
	"github.com/Brownie44l1/nanohttpd/internal/tempfile"
)

const loopbackIP = "127.0.0.1"

var errNilResponse = newStatusError(response.StatusInternalServerError,
	"SERVER INTERNAL ERROR: Serve() returned a null response.")

// Session reads requests from one connection and writes the responses.
// Execute handles exactly one request; call it again for the next
// request on a keep-alive connection. A Session is not safe for concurrent use.
type Session struct {
	handler Handler
	tmp     *tempfile.Manager
	log     logger.Logger
	in      *bufio.Reader
	out     *bufio.Writer

	remoteIP       string
	remoteHostname string

	// per request
	methodName      string
	method          Method
	uri             string
	protocolVersion string
	queryString     string
	headers         *headers.Headers
	params          map[string][]string
	cookies         *cookie.Handler
	body            *io.LimitedReader
	bodySize        int64
	declaredLength  bool
	keepAlive       bool
	files           map[string]string
	requestID       string
}

// NewSession prepares a session over rw. remote may be nil.
func NewSession(handler Handler, tmp *tempfile.Manager, in io.Reader, out io.Writer, remote net.Addr, log logger.Logger) *Session {
	if log == nil {
		log = logger.Nop()
	}
	if tmp == nil {
		tmp = tempfile.NewManager("", log)
	}
	s := &Session{
		handler: handler,
		tmp:     tmp,
		log:     log,
		in:      bufio.NewReaderSize(in, BufSize),
		out:     bufio.NewWriterSize(out, BufSize),
		headers: headers.NewHeaders(),
		params:  make(map[string][]string),
	}
	if remote != nil {
		s.remoteIP, s.remoteHostname = remoteAddress(remote)
	}
	return s
}

func remoteAddress(addr net.Addr) (string, string) {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		host = addr.String()
	}
	ip := net.ParseIP(host)
	if ip != nil && (ip.IsLoopback() || ip.IsUnspecified()) {
		return loopbackIP, "localhost"
	}
	return host, host
}

func (s *Session) reset() {
	s.methodName = ""
	s.method = ""
	s.uri = ""
	s.protocolVersion = ""
	s.queryString = ""
	s.headers.Reset()
	s.params = make(map[string][]string)
	s.cookies = nil
	s.body = nil
	s.bodySize = 0
	s.declaredLength = false
	s.keepAlive = false
	s.files = nil
	s.requestID = ""
}

// Execute reads one request, dispatches it and sends the response. It
// returns ErrConnectionClosed when the connection should not be reused.
func (s *Session) Execute() error {
	defer s.tmp.Clear()
	s.reset()

	header, err := s.readHeader()
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			s.sendError(se, false)
			return ErrConnectionClosed
		}
		if !errors.Is(err, ErrConnectionClosed) && isTLSError(err) {
			s.sendError(wrapStatusError(response.StatusInternalServerError, "SSL PROTOCOL FAILURE: "+err.Error(), err), false)
			return errors.Wrap(err, "ssl protocol failure")
		}
		return err
	}

	if s.remoteIP != "" {
		s.headers.Set("remote-addr", s.remoteIP)
		s.headers.Set("http-client-ip", s.remoteIP)
	}

	if err := s.prepare(header); err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			s.sendError(se, false)
			return ErrConnectionClosed
		}
		return err
	}

	r := s.dispatch()
	if r == nil {
		s.sendError(errNilResponse, s.keepAlive)
		return s.finish(false)
	}

	s.cookies.Unload(r)
	r.SetRequestMethod(string(s.method))
	if !strings.Contains(s.headers.Value("accept-encoding"), "gzip") {
		r.SetUseGzip(false)
	}
	r.SetKeepAlive(s.keepAlive)
	r.SetLogger(s.log)
	if err := r.Send(s.out); err != nil {
		return errors.Wrap(err, "send response")
	}
	return s.finish(r.IsCloseConnection())
}

// prepare decodes the header block and derives the per-request state.
func (s *Session) prepare(header []byte) error {
	if err := s.decodeHeader(header); err != nil {
		return err
	}

	m, ok := LookupMethod(s.methodName)
	if !ok {
		return newStatusError(response.StatusBadRequest,
			"BAD REQUEST: Syntax error. HTTP verb "+s.methodName+" unhandled.")
	}
	s.method = m

	if !isValidVersion(s.protocolVersion) {
		return newStatusError(response.StatusHTTPVersionNotSupported,
			"HTTP VERSION NOT SUPPORTED: "+s.protocolVersion)
	}

	s.cookies = cookie.NewHandler(s.headers)
	s.keepAlive = wantsKeepAlive(s.protocolVersion, s.headers.Value("connection"))
	s.bodySize = s.computeBodySize()
	s.body = &io.LimitedReader{R: s.in, N: s.bodySize}
	return nil
}

// dispatch runs the handler, turning a panic into a 500.
func (s *Session) dispatch() (r *response.Response) {
	defer func() {
		if p := recover(); p != nil {
			s.log.Error("handler panic",
				logger.F("panic", p),
				logger.F("uri", s.uri),
				logger.F("stack", string(debug.Stack())),
			)
			r = response.NewPlainTextResponse(response.StatusInternalServerError,
				"SERVER INTERNAL ERROR: handler panic")
			r.CloseConnection(true)
		}
	}()
	if s.handler == nil {
		return nil
	}
	return s.handler.Serve(s)
}

// finish drains an unread request body so the next request starts at its
// own request line.
func (s *Session) finish(closeRequested bool) error {
	if !s.keepAlive || closeRequested {
		return ErrConnectionClosed
	}
	if s.declaredLength && s.body != nil && s.body.N > 0 {
		if _, err := io.Copy(io.Discard, s.body); err != nil {
			return classifyReadError(err)
		}
		if s.body.N > 0 {
			return ErrConnectionClosed
		}
	}
	return nil
}

// sendError answers with a plain-text error.
func (s *Session) sendError(se *StatusError, keepAlive bool) {
	r := response.NewPlainTextResponse(se.Status, se.Msg)
	r.SetUseGzip(false)
	r.SetKeepAlive(keepAlive)
	r.SetLogger(s.log)
	if s.method != "" {
		r.SetRequestMethod(string(s.method))
	}
	if err := r.Send(s.out); err != nil {
		s.log.Debug("could not send error response", logger.F("status", int(se.Status)), logger.F("error", err))
	}
}

func (s *Session) computeBodySize() int64 {
	if cl, ok := s.headers.Get("content-length"); ok {
		if n, err := strconv.ParseInt(strings.TrimSpace(cl), 10, 64); err == nil && n >= 0 {
			s.declaredLength = true
			return n
		}
	}
	return int64(s.in.Buffered())
}

// Method returns the request verb.
func (s *Session) Method() Method { return s.method }

// URI is the decoded request path without the query string.
func (s *Session) URI() string { return s.uri }

func (s *Session) ProtocolVersion() string { return s.protocolVersion }

// Headers are keyed case-insensitively; names were lower-cased on parse.
func (s *Session) Headers() *headers.Headers { return s.headers }

// Header returns a request header value, or "" when absent.
func (s *Session) Header(name string) string { return s.headers.Value(name) }

// Parameters holds query and form values in arrival order per key.
func (s *Session) Parameters() map[string][]string { return s.params }

// Param returns the first value of a parameter.
func (s *Session) Param(name string) string {
	if v := s.params[name]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// QueryParameterString is the raw text after '?' in the request target.
func (s *Session) QueryParameterString() string { return s.queryString }

func (s *Session) Cookies() *cookie.Handler { return s.cookies }

func (s *Session) RemoteIP() string { return s.remoteIP }

func (s *Session) RemoteHostname() string { return s.remoteHostname }

// InputStream reads the request body. It stops at BodySize.
func (s *Session) InputStream() io.Reader { return s.body }

// BodySize is the Content-Length, or the bytes already buffered after the header when none was sent.
func (s *Session) BodySize() int64 { return s.bodySize }

// KeepAlive reports whether the connection will be reused after this request.
func (s *Session) KeepAlive() bool { return s.keepAlive }

// TempFiles is the manager that owns this request's uploads.
func (s *Session) TempFiles() *tempfile.Manager { return s.tmp }

func (s *Session) RequestID() string { return s.requestID }

func (s *Session) SetRequestID(id string) { s.requestID = id }
