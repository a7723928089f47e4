package router

import (
	"strings"

	"github.com/Brownie44l1/nanohttpd/internal/request"
	"github.com/Brownie44l1/nanohttpd/internal/response"
)

// Handler answers a routed request. params holds the values captured by
// ":name" segments and a trailing "*name" wildcard.
type Handler func(sess *request.Session, params map[string]string) *response.Response

// Route represents a single route
type Route struct {
	Method  request.Method
	Path    string
	Handler Handler
	Params  []string
}

// Router matches requests by method and path. It returns nil for requests
// it has no route for, so it can be installed as an interceptor in front
// of another handler.
type Router struct {
	routes []*Route
}

func New() *Router {
	return &Router{}
}

// Handle registers a new route
func (r *Router) Handle(method request.Method, path string, handler Handler) {
	r.routes = append(r.routes, &Route{
		Method:  method,
		Path:    path,
		Handler: handler,
		Params:  extractParams(path),
	})
}

func (r *Router) GET(path string, handler Handler) { r.Handle(request.MethodGet, path, handler) }

func (r *Router) POST(path string, handler Handler) { r.Handle(request.MethodPost, path, handler) }

func (r *Router) PUT(path string, handler Handler) { r.Handle(request.MethodPut, path, handler) }

func (r *Router) DELETE(path string, handler Handler) { r.Handle(request.MethodDelete, path, handler) }

// Match finds a route that matches the given method and path
func (r *Router) Match(method request.Method, path string) (*Route, map[string]string) {
	if idx := strings.IndexByte(path, '?'); idx != -1 {
		path = path[:idx]
	}
	for _, route := range r.routes {
		if route.Method != method {
			continue
		}
		if params := matchPath(route.Path, path); params != nil {
			return route, params
		}
	}
	return nil, nil
}

// Serve dispatches to the matching route. HEAD falls back to GET routes.
func (r *Router) Serve(sess *request.Session) *response.Response {
	route, params := r.Match(sess.Method(), sess.URI())
	if route == nil && sess.Method() == request.MethodHead {
		route, params = r.Match(request.MethodGet, sess.URI())
	}
	if route == nil {
		return nil
	}
	return route.Handler(sess, params)
}

// extractParams lists the parameter names of a path pattern.
// "/users/:id/files/*path" -> ["id", "path"]
func extractParams(path string) []string {
	var params []string
	for _, part := range strings.Split(path, "/") {
		if strings.HasPrefix(part, ":") || strings.HasPrefix(part, "*") {
			params = append(params, part[1:])
		}
	}
	return params
}

// matchPath returns the captured parameters, or nil when path does not match.
func matchPath(pattern, path string) map[string]string {
	patternParts := strings.Split(pattern, "/")
	pathParts := strings.Split(path, "/")
	params := make(map[string]string)

	for i, part := range patternParts {
		if strings.HasPrefix(part, "*") && i == len(patternParts)-1 {
			if i > len(pathParts) {
				return nil
			}
			params[part[1:]] = strings.Join(pathParts[i:], "/")
			return params
		}
		if i >= len(pathParts) {
			return nil
		}
		switch {
		case strings.HasPrefix(part, ":"):
			if pathParts[i] == "" {
				return nil
			}
			params[part[1:]] = pathParts[i]
		case part != pathParts[i]:
			return nil
		}
	}
	if len(patternParts) != len(pathParts) {
		return nil
	}
	return params
}
