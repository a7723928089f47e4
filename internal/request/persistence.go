package request

import "strings"

// wantsKeepAlive decides whether the connection survives this request.
// HTTP/1.1 persists unless the client sent "Connection: close"; HTTP/1.0
// persists only when the client asked for keep-alive, which is more
// permissive than persisting HTTP/1.1 alone (DESIGN.md, Open Question decisions).
func wantsKeepAlive(version, connection string) bool {
	connection = strings.ToLower(connection)
	switch version {
	case "HTTP/1.1":
		return !strings.Contains(connection, "close")
	case "HTTP/1.0":
		return strings.Contains(connection, "keep-alive")
	default:
		return false
	}
}
