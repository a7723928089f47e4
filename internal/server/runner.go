package server

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// AsyncRunner decides how client handlers are scheduled.
type AsyncRunner interface {
	// Exec starts serving a connection.
	Exec(h *ClientHandler)
	// Closed is called by a handler when its connection is done.
	Closed(h *ClientHandler)
	// CloseAll closes every running handler.
	CloseAll()
}

// DefaultRunner serves each connection on its own goroutine.
type DefaultRunner struct {
	requestCount atomic.Int64
	running      *xsync.MapOf[*ClientHandler, struct{}]
	wg           sync.WaitGroup
}

func NewDefaultRunner() *DefaultRunner {
	return &DefaultRunner{
		running: xsync.NewMapOf[*ClientHandler, struct{}](),
	}
}

func (r *DefaultRunner) Exec(h *ClientHandler) {
	r.requestCount.Add(1)
	r.running.Store(h, struct{}{})
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		h.Run()
	}()
}

func (r *DefaultRunner) Closed(h *ClientHandler) {
	r.running.Delete(h)
}

// CloseAll closes every handler registered at the time of the call.
func (r *DefaultRunner) CloseAll() {
	var handlers []*ClientHandler
	r.running.Range(func(h *ClientHandler, _ struct{}) bool {
		handlers = append(handlers, h)
		return true
	})
	for _, h := range handlers {
		h.Close()
	}
}

// Running returns the handlers currently serving a connection.
func (r *DefaultRunner) Running() []*ClientHandler {
	var out []*ClientHandler
	r.running.Range(func(h *ClientHandler, _ struct{}) bool {
		out = append(out, h)
		return true
	})
	return out
}

// RequestCount is the number of connections handed to Exec so far.
func (r *DefaultRunner) RequestCount() int64 {
	return r.requestCount.Load()
}

// Wait blocks until every handler goroutine has returned or ctx is done.
func (r *DefaultRunner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
