package cookie

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Brownie44l1/nanohttpd/internal/headers"
	"github.com/Brownie44l1/nanohttpd/internal/response"
)

// DefaultExpiryDays is the lifetime of cookies set without an explicit expiry.
const DefaultExpiryDays = 30

const deletedValue = "-delete-"

// Cookie is an outbound cookie.
type Cookie struct {
	name    string
	value   string
	expires string
}

// New creates a cookie that expires in DefaultExpiryDays.
func New(name, value string) Cookie {
	return NewWithDays(name, value, DefaultExpiryDays)
}

// NewWithDays creates a cookie expiring numDays from now. Negative values expire it in the past.
func NewWithDays(name, value string, numDays int) Cookie {
	return Cookie{name: name, value: value, expires: HTTPTime(numDays)}
}

// NewWithExpiry uses expires verbatim as the expiry date.
func NewWithExpiry(name, value, expires string) Cookie {
	return Cookie{name: name, value: value, expires: expires}
}

// HTTPTime formats now plus days as an HTTP date.
func HTTPTime(days int) string {
	return time.Now().UTC().AddDate(0, 0, days).Format(response.TimeFormat)
}

func (c Cookie) Name() string    { return c.name }
func (c Cookie) Value() string   { return c.value }
func (c Cookie) Expires() string { return c.expires }

// Header renders the Set-Cookie value.
func (c Cookie) Header() string {
	return fmt.Sprintf("%s=%s; expires=%s", c.name, c.value, c.expires)
}

// CookieSink receives Set-Cookie values.
type CookieSink interface {
	AddCookieHeader(cookie string)
}

// Handler holds the cookies sent by the client and the ones queued for the response.
type Handler struct {
	cookies map[string]string
	queue   []Cookie
}

// NewHandler reads the Cookie request header. Pairs must have exactly one '='.
func NewHandler(h *headers.Headers) *Handler {
	ch := &Handler{cookies: make(map[string]string)}
	raw, ok := h.Get("cookie")
	if !ok {
		return ch
	}
	for _, token := range strings.Split(raw, ";") {
		parts := strings.Split(strings.TrimSpace(token), "=")
		if len(parts) == 2 {
			ch.cookies[parts[0]] = parts[1]
		}
	}
	return ch
}

// Read returns the value of a request cookie.
func (h *Handler) Read(name string) (string, bool) {
	v, ok := h.cookies[name]
	return v, ok
}

// Names lists request cookie names in sorted order.
func (h *Handler) Names() []string {
	names := make([]string, 0, len(h.cookies))
	for k := range h.cookies {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Set queues a cookie for the response.
func (h *Handler) Set(c Cookie) {
	h.queue = append(h.queue, c)
}

// SetValue queues name=value expiring in the given number of days.
func (h *Handler) SetValue(name, value string, expiresDays int) {
	h.Set(NewWithDays(name, value, expiresDays))
}

// Delete asks the client to drop a cookie.
func (h *Handler) Delete(name string) {
	h.SetValue(name, deletedValue, -DefaultExpiryDays)
}

// Queued returns the cookies waiting to be sent.
func (h *Handler) Queued() []Cookie {
	return h.queue
}

// Unload moves queued cookies into the response as Set-Cookie headers.
func (h *Handler) Unload(sink CookieSink) {
	for _, c := range h.queue {
		sink.AddCookieHeader(c.Header())
	}
	h.queue = nil
}
