package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/http/httpguts"

	"github.com/Brownie44l1/nanohttpd/internal/logger"
	"github.com/Brownie44l1/nanohttpd/internal/request"
	"github.com/Brownie44l1/nanohttpd/internal/response"
)

// Middleware wraps a handler.
type Middleware func(request.Handler) request.Handler

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

func statusOf(r *response.Response) int {
	if r == nil {
		return int(response.StatusInternalServerError)
	}
	return int(r.Status())
}

// LoggingMiddleware logs all requests
func LoggingMiddleware(log logger.Logger) Middleware {
	return func(next request.Handler) request.Handler {
		return request.HandlerFunc(func(sess *request.Session) *response.Response {
			start := time.Now()
			r := next.Serve(sess)

			log.Info("request handled",
				logger.F("method", sess.Method().String()),
				logger.F("uri", sess.URI()),
				logger.F("status", statusOf(r)),
				logger.F("duration_ms", time.Since(start).Milliseconds()),
				logger.F("request_id", sess.RequestID()),
				logger.F("client_ip", sess.RemoteIP()),
			)
			return r
		})
	}
}

// RequestIDMiddleware takes the id from the incoming X-Request-ID header or
// generates one, stores it on the session and echoes it on the response.
// Incoming ids that are not valid header values are replaced.
func RequestIDMiddleware() Middleware {
	return func(next request.Handler) request.Handler {
		return request.HandlerFunc(func(sess *request.Session) *response.Response {
			id := sess.Header(RequestIDHeader)
			if id == "" || !httpguts.ValidHeaderFieldValue(id) {
				id = uuid.NewString()
			}
			sess.SetRequestID(id)

			r := next.Serve(sess)
			if r != nil && r.Header(RequestIDHeader) == "" {
				_ = r.AddHeader(RequestIDHeader, id)
			}
			return r
		})
	}
}

// MetricsMiddleware records request metrics
func MetricsMiddleware(metrics *Metrics) Middleware {
	return func(next request.Handler) request.Handler {
		return request.HandlerFunc(func(sess *request.Session) *response.Response {
			start := time.Now()
			r := next.Serve(sess)
			metrics.RecordRequest(statusOf(r), time.Since(start))
			return r
		})
	}
}

// RateLimiter allows a fixed number of requests per client per window.
type RateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	rate      int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type bucket struct {
	tokens    int
	lastReset time.Time
}

// NewRateLimiter allows rate requests per window for each client.
func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		window:  window,
		now:     time.Now,
	}
}

// Allow checks if a request from the given IP should be allowed
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	b, ok := rl.buckets[ip]
	if !ok {
		rl.buckets[ip] = &bucket{tokens: rl.rate - 1, lastReset: now}
		return rl.rate > 0
	}

	if now.Sub(b.lastReset) >= rl.window {
		b.tokens = rl.rate - 1
		b.lastReset = now
		return rl.rate > 0
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

// sweep drops buckets idle for two windows. It runs at most once per two windows.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.window*2 {
		return
	}
	rl.lastSweep = now
	for ip, b := range rl.buckets {
		if now.Sub(b.lastReset) > rl.window*2 {
			delete(rl.buckets, ip)
		}
	}
}

// Len is the number of tracked clients.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// RateLimitMiddleware answers 429 to clients over their limit. Rejections
// are counted on metrics when it is not nil.
func RateLimitMiddleware(limiter *RateLimiter, metrics *Metrics) Middleware {
	return func(next request.Handler) request.Handler {
		return request.HandlerFunc(func(sess *request.Session) *response.Response {
			if !limiter.Allow(sess.RemoteIP()) {
				if metrics != nil {
					metrics.RateLimited.Add(1)
				}
				return response.ErrorResponse(response.StatusTooManyRequests, "Rate limit exceeded")
			}
			return next.Serve(sess)
		})
	}
}
