package request

import "github.com/Brownie44l1/nanohttpd/internal/response"

// Handler answers one parsed request. Returning nil means "not handled".
type Handler interface {
	Serve(s *Session) *response.Response
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(s *Session) *response.Response

func (f HandlerFunc) Serve(s *Session) *response.Response {
	return f(s)
}
