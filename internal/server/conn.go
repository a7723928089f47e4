package server

import (
	"net"
	"sync"
	"syscall"

	"github.com/pkg/errors"

	"github.com/Brownie44l1/nanohttpd/internal/logger"
	"github.com/Brownie44l1/nanohttpd/internal/request"
	"github.com/Brownie44l1/nanohttpd/internal/tempfile"
)

// ClientHandler serves all requests arriving on one connection.
type ClientHandler struct {
	srv       *Server
	conn      net.Conn
	closeOnce sync.Once
}

func newClientHandler(srv *Server, conn net.Conn) *ClientHandler {
	return &ClientHandler{srv: srv, conn: conn}
}

// RemoteAddr is the peer address.
func (c *ClientHandler) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Run executes requests until the connection closes, then cleans up.
func (c *ClientHandler) Run() {
	s := c.srv
	s.metrics.ConnectionsTotal.Add(1)
	s.metrics.ActiveConnections.Add(1)
	defer func() {
		c.Close()
		s.metrics.ActiveConnections.Add(-1)
		s.runner.Closed(c)
	}()

	tmp := tempfile.NewManager(s.cfg.TempDir, s.log)
	in := &timeoutConn{Conn: c.conn, timeout: s.cfg.ReadTimeout}
	session := request.NewSession(s, tmp, in, c.conn, c.conn.RemoteAddr(), s.log)

	for {
		err := session.Execute()
		if err == nil {
			continue
		}
		if !isQuietError(err) {
			s.log.Error("communication with the client broken",
				logger.F("remote", c.conn.RemoteAddr().String()),
				logger.F("error", err),
			)
		}
		return
	}
}

// Close closes the connection. It is safe to call more than once.
func (c *ClientHandler) Close() {
	c.closeOnce.Do(func() {
		c.conn.Close()
	})
}

// isQuietError reports errors that end a connection normally: peer
// shutdown, our own close, and read timeouts.
func isQuietError(err error) bool {
	if errors.Is(err, request.ErrConnectionClosed) || errors.Is(err, net.ErrClosed) {
		return true
	}
	if errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
