package server

import (
	"crypto/tls"
	"net"
	"time"

	"github.com/pkg/errors"
)

// ListenerFactory creates the listening socket for a server.
type ListenerFactory interface {
	Listen(addr string) (net.Listener, error)
}

// ListenerFactoryFunc adapts a function to ListenerFactory.
type ListenerFactoryFunc func(addr string) (net.Listener, error)

func (f ListenerFactoryFunc) Listen(addr string) (net.Listener, error) {
	return f(addr)
}

// TCPListenerFactory binds a plain TCP socket.
type TCPListenerFactory struct{}

func (TCPListenerFactory) Listen(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}

// TLSListenerFactory binds a TLS socket. Versions restricts the protocol
// versions offered; when empty every version the config allows is enabled.
type TLSListenerFactory struct {
	Config   *tls.Config
	Versions []uint16
}

func (f TLSListenerFactory) Listen(addr string) (net.Listener, error) {
	if f.Config == nil {
		return nil, errors.New("tls listener: missing config")
	}
	cfg := f.Config.Clone()
	if len(f.Versions) > 0 {
		lo, hi := f.Versions[0], f.Versions[0]
		for _, v := range f.Versions[1:] {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		cfg.MinVersion, cfg.MaxVersion = lo, hi
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return tls.NewListener(ln, cfg), nil
}

// MakeTLSConfig loads a certificate and key from PEM files.
func MakeTLSConfig(certFile, keyFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, errors.Wrap(err, "load key pair")
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}}, nil
}

// MakeTLSConfigFromPEM builds a config from PEM encoded certificate and key.
func MakeTLSConfigFromPEM(certPEM, keyPEM []byte) (*tls.Config, error) {
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, errors.Wrap(err, "parse key pair")
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}}, nil
}

// timeoutConn refreshes the read deadline before every read, so an idle
// peer fails with a timeout after the configured duration.
type timeoutConn struct {
	net.Conn
	timeout time.Duration
}

func (c *timeoutConn) Read(p []byte) (int, error) {
	if c.timeout > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Read(p)
}
