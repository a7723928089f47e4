package server

import (
	"context"
	"crypto/tls"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/Brownie44l1/nanohttpd/internal/logger"
	"github.com/Brownie44l1/nanohttpd/internal/request"
	"github.com/Brownie44l1/nanohttpd/internal/response"
)

var ErrAlreadyStarted = errors.New("server already started")

const acceptRetryDelay = 10 * time.Millisecond

// Server accepts connections and dispatches each request to the
// interceptors and then the handler.
type Server struct {
	cfg     Config
	log     logger.Logger
	metrics *Metrics

	mu           sync.RWMutex
	handler      request.Handler
	interceptors []request.Handler
	middleware   []Middleware
	runner       AsyncRunner
	factory      ListenerFactory
	listener     net.Listener
	acceptDone   chan struct{}
	started      bool
}

// New creates a server. A nil handler answers 404 to anything the
// interceptors leave unhandled.
func New(cfg Config, handler request.Handler) *Server {
	def := DefaultConfig()
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}
	if cfg.ListenerFactory == nil {
		cfg.ListenerFactory = def.ListenerFactory
	}
	if cfg.TempDir == "" {
		cfg.TempDir = def.TempDir
	}
	return &Server{
		cfg:     cfg,
		log:     cfg.Logger,
		metrics: NewMetrics(),
		handler: handler,
		runner:  NewDefaultRunner(),
		factory: cfg.ListenerFactory,
	}
}

// SetHandler replaces the fallback handler.
func (s *Server) SetHandler(h request.Handler) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
}

// AddInterceptor appends a handler that is tried before the fallback.
// The first non-nil response wins.
func (s *Server) AddInterceptor(h request.Handler) {
	s.mu.Lock()
	s.interceptors = append(s.interceptors, h)
	s.mu.Unlock()
}

// Use adds middleware around the whole dispatch chain. The first added runs outermost.
func (s *Server) Use(mw Middleware) {
	s.mu.Lock()
	s.middleware = append(s.middleware, mw)
	s.mu.Unlock()
}

// SetRunner replaces the connection scheduler. Call before Start.
func (s *Server) SetRunner(r AsyncRunner) {
	s.mu.Lock()
	s.runner = r
	s.mu.Unlock()
}

// SetListenerFactory replaces how the listening socket is created. Call before Start.
func (s *Server) SetListenerFactory(f ListenerFactory) {
	s.mu.Lock()
	s.factory = f
	s.mu.Unlock()
}

// MakeSecure switches the server to TLS.
func (s *Server) MakeSecure(cfg *tls.Config, versions ...uint16) {
	s.SetListenerFactory(TLSListenerFactory{Config: cfg, Versions: versions})
}

func (s *Server) Logger() logger.Logger { return s.log }

func (s *Server) Metrics() *Metrics { return s.metrics }

// Stats returns a snapshot of the server metrics.
func (s *Server) Stats() MetricsSnapshot {
	return s.metrics.Snapshot()
}

// Serve runs one request through the middleware, interceptors and handler.
func (s *Server) Serve(sess *request.Session) *response.Response {
	s.mu.RLock()
	mws := s.middleware
	s.mu.RUnlock()

	var h request.Handler = request.HandlerFunc(s.dispatch)
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h.Serve(sess)
}

func (s *Server) dispatch(sess *request.Session) *response.Response {
	s.mu.RLock()
	interceptors := s.interceptors
	handler := s.handler
	s.mu.RUnlock()

	for _, ic := range interceptors {
		if r := ic.Serve(sess); r != nil {
			return r
		}
	}
	if handler == nil {
		return response.NewPlainTextResponse(response.StatusNotFound, "Not Found")
	}
	return handler.Serve(sess)
}

// Start binds the listening socket and begins accepting connections. The
// socket is bound when Start returns.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return ErrAlreadyStarted
	}

	addr := s.cfg.Addr()
	ln, err := s.factory.Listen(addr)
	if err != nil {
		return errors.Wrapf(err, "bind %s", addr)
	}

	s.listener = ln
	s.acceptDone = make(chan struct{})
	s.started = true
	go s.acceptLoop(ln, s.runner, s.acceptDone)

	s.log.Info("server listening", logger.F("addr", ln.Addr().String()))
	return nil
}

// acceptLoop hands every accepted connection to the runner until the listener closes.
func (s *Server) acceptLoop(ln net.Listener, runner AsyncRunner, done chan struct{}) {
	defer close(done)
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Debug("accept failed", logger.F("error", err))
			time.Sleep(acceptRetryDelay)
			continue
		}
		runner.Exec(newClientHandler(s, conn))
	}
}

// Stop closes the listener, waits for the accept loop to exit and closes
// every open connection. Handlers still running are not waited for.
func (s *Server) Stop() error {
	s.mu.Lock()
	ln, done, runner := s.listener, s.acceptDone, s.runner
	s.listener = nil
	s.mu.Unlock()

	if ln == nil {
		return nil
	}
	err := ln.Close()
	<-done
	runner.CloseAll()
	s.log.Info("server stopped")
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return errors.Wrap(err, "close listener")
	}
	return nil
}

type waiter interface {
	Wait(ctx context.Context) error
}

// Shutdown stops the server and waits for connection goroutines to finish
// when the runner supports it, or until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.Stop(); err != nil {
		return err
	}
	s.mu.RLock()
	runner := s.runner
	s.mu.RUnlock()
	if w, ok := runner.(waiter); ok {
		return w.Wait(ctx)
	}
	return nil
}

// CloseAllConnections stops the server.
func (s *Server) CloseAllConnections() error {
	return s.Stop()
}

// ListeningPort returns the bound port, or -1 when not listening.
func (s *Server) ListeningPort() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return -1
	}
	if tcp, ok := s.listener.Addr().(*net.TCPAddr); ok {
		return tcp.Port
	}
	return -1
}

// IsAlive reports whether the accept loop is running.
func (s *Server) IsAlive() bool {
	s.mu.RLock()
	ln, done := s.listener, s.acceptDone
	s.mu.RUnlock()
	if ln == nil || done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// WasStarted reports whether Start ever succeeded.
func (s *Server) WasStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}
