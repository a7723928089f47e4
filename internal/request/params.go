package request

import (
	"net/url"
	"strings"
)

// DecodePercent decodes %XX escapes and '+' as in form encoding. Input that
// is not valid escaping is returned unchanged.
func DecodePercent(s string) string {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

// decodeParms adds the key=value pairs of an urlencoded string to p. A pair
// without '=' yields an empty value. Empty pairs are skipped.
func decodeParms(parms string, p map[string][]string) {
	for _, e := range strings.Split(parms, "&") {
		if e == "" {
			continue
		}
		var key, value string
		if sep := strings.IndexByte(e, '='); sep >= 0 {
			key = strings.TrimSpace(DecodePercent(e[:sep]))
			value = DecodePercent(e[sep+1:])
		} else {
			key = strings.TrimSpace(DecodePercent(e))
		}
		p[key] = append(p[key], value)
	}
}

// DecodeParameters splits a query string on '&' and ';'. Keys without a
// value map to an empty list.
func DecodeParameters(query string) map[string][]string {
	params := make(map[string][]string)
	fields := strings.FieldsFunc(query, func(r rune) bool { return r == '&' || r == ';' })
	for _, e := range fields {
		sep := strings.IndexByte(e, '=')
		var name string
		if sep >= 0 {
			name = strings.TrimSpace(DecodePercent(e[:sep]))
		} else {
			name = strings.TrimSpace(DecodePercent(e))
		}
		if _, ok := params[name]; !ok {
			params[name] = []string{}
		}
		if sep >= 0 {
			params[name] = append(params[name], DecodePercent(e[sep+1:]))
		}
	}
	return params
}
