package headers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderParse(t *testing.T) {
	// CRLF terminated block
	h := NewHeaders()
	n := h.Parse([]byte("Host:   localhost:42069   \r\nAccept: */*\r\n\r\nignored: yes\r\n"))
	assert.Equal(t, 2, n)
	val, ok := h.Get("host")
	require.True(t, ok)
	assert.Equal(t, "localhost:42069", val)
	assert.False(t, h.Has("ignored"))

	// Bare LF terminated block
	h = NewHeaders()
	n = h.Parse([]byte("Content-Type: text/plain\nX-Count: 3\n\n"))
	assert.Equal(t, 2, n)
	assert.Equal(t, "text/plain", h.Value("content-type"))
	assert.Equal(t, "3", h.Value("X-COUNT"))

	// Names are lower-cased, value splits on the first colon only
	h = NewHeaders()
	h.Parse([]byte("Referer: http://example.com:8080/x\r\n"))
	assert.Equal(t, map[string]string{"referer": "http://example.com:8080/x"}, h.Map())

	// Lines without a colon are skipped
	h = NewHeaders()
	n = h.Parse([]byte("garbage line\r\nHost: a\r\n"))
	assert.Equal(t, 1, n)
	assert.Equal(t, "a", h.Value("host"))

	// Duplicate names: last value wins
	h = NewHeaders()
	h.Parse([]byte("Cookie: a=1\r\nCookie: b=2\r\n"))
	assert.Equal(t, "b=2", h.Value("cookie"))
	assert.Equal(t, 1, h.Len())
}

func TestHeadersCaseInsensitive(t *testing.T) {
	h := NewHeaders()
	h.Set("Content-Length", "10")
	h.Set("content-length", "12")

	assert.Equal(t, 1, h.Len())
	assert.Equal(t, "12", h.Value("CONTENT-LENGTH"))

	var names []string
	h.Each(func(name, value string) { names = append(names, name+"="+value) })
	assert.Equal(t, []string{"content-length=12"}, names)
}

func TestHeadersOrderAndDelete(t *testing.T) {
	h := NewHeaders()
	h.Set("B", "2")
	h.Set("A", "1")
	h.Set("C", "3")
	h.Del("a")
	h.Del("missing")

	var names []string
	h.Each(func(name, value string) { names = append(names, name) })
	assert.Equal(t, []string{"B", "C"}, names)
	assert.False(t, h.Has("A"))

	h.Reset()
	assert.Equal(t, 0, h.Len())
	_, ok := h.Get("B")
	assert.False(t, ok)
}
