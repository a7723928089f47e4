package server

import (
	"net"
	"os"
	"strconv"
	"time"

	"github.com/Brownie44l1/nanohttpd/internal/logger"
)

// SocketReadTimeout is the default per-read timeout on accepted connections.
const SocketReadTimeout = 5 * time.Second

// Config holds server configuration
type Config struct {
	// Hostname to bind; empty binds all interfaces.
	Hostname string
	// Port to bind; 0 picks a free port.
	Port int
	// ReadTimeout applies to every read on a client connection. Zero disables it.
	ReadTimeout time.Duration
	// TempDir receives spooled request bodies and uploads.
	TempDir string

	Logger          logger.Logger
	ListenerFactory ListenerFactory
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Port:            8080,
		ReadTimeout:     SocketReadTimeout,
		TempDir:         os.TempDir(),
		Logger:          logger.Nop(),
		ListenerFactory: TCPListenerFactory{},
	}
}

// Addr is the host:port the server binds.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Hostname, strconv.Itoa(c.Port))
}
