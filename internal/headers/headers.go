package headers

import (
	"bytes"
	"strings"
)

type field struct {
	name  string
	value string
}

// Headers is a case-insensitive header map that remembers insertion order
// and the spelling of the most recent write.
type Headers struct {
	fields map[string]field
	order  []string
}

func NewHeaders() *Headers {
	return &Headers{
		fields: make(map[string]field),
	}
}

// Get returns the value for a header
func (h *Headers) Get(key string) (string, bool) {
	f, ok := h.fields[strings.ToLower(key)]
	return f.value, ok
}

// Value returns the header value or "" when absent.
func (h *Headers) Value(key string) string {
	v, _ := h.Get(key)
	return v
}

func (h *Headers) Has(key string) bool {
	_, ok := h.fields[strings.ToLower(key)]
	return ok
}

// Set replaces the value for a header. The last spelling of the name wins.
func (h *Headers) Set(key, value string) {
	lower := strings.ToLower(key)
	if _, ok := h.fields[lower]; !ok {
		h.order = append(h.order, lower)
	}
	h.fields[lower] = field{name: key, value: value}
}

// Del removes a header
func (h *Headers) Del(key string) {
	lower := strings.ToLower(key)
	if _, ok := h.fields[lower]; !ok {
		return
	}
	delete(h.fields, lower)
	for i, k := range h.order {
		if k == lower {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

func (h *Headers) Len() int {
	return len(h.order)
}

// Each visits headers in insertion order with their original spelling.
func (h *Headers) Each(fn func(name, value string)) {
	for _, k := range h.order {
		f := h.fields[k]
		fn(f.name, f.value)
	}
}

// Map returns a copy keyed by lower-case name.
func (h *Headers) Map() map[string]string {
	out := make(map[string]string, len(h.order))
	for _, k := range h.order {
		out[k] = h.fields[k].value
	}
	return out
}

// Reset drops all headers, keeping allocated storage.
func (h *Headers) Reset() {
	for k := range h.fields {
		delete(h.fields, k)
	}
	h.order = h.order[:0]
}

// Parse reads header lines until an empty line or the end of data.
// Lines may end in CRLF or a bare LF. Names are stored lower-case, values
// trimmed. Lines without a colon are skipped. It returns the number of
// header lines stored.
func (h *Headers) Parse(data []byte) int {
	n := 0
	for len(data) > 0 {
		var line []byte
		idx := bytes.IndexByte(data, '\n')
		if idx == -1 {
			line, data = data, nil
		} else {
			line, data = data[:idx], data[idx+1:]
		}
		line = bytes.TrimSuffix(line, []byte("\r"))
		if len(bytes.TrimSpace(line)) == 0 {
			break
		}

		name, value, ok := parseHeader(line)
		if !ok {
			continue
		}
		h.Set(name, value)
		n++
	}
	return n
}

func parseHeader(line []byte) (string, string, bool) {
	colonIdx := bytes.IndexByte(line, ':')
	if colonIdx == -1 {
		return "", "", false
	}

	name := strings.ToLower(string(bytes.TrimSpace(line[:colonIdx])))
	if name == "" {
		return "", "", false
	}
	value := string(bytes.TrimSpace(line[colonIdx+1:]))
	return name, value, true
}
