package request

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/Brownie44l1/nanohttpd/internal/response"
)

// ErrConnectionClosed ends the request loop for a connection. It covers
// peer shutdown and responses that negotiated Connection: close.
var ErrConnectionClosed = errors.New("connection closed")

// StatusError is a protocol failure that is answered with Status and a
// plain-text body of Msg.
type StatusError struct {
	Status response.StatusCode
	Msg    string
	Err    error
}

func newStatusError(status response.StatusCode, msg string) *StatusError {
	return &StatusError{Status: status, Msg: msg}
}

func wrapStatusError(status response.StatusCode, msg string, err error) *StatusError {
	return &StatusError{Status: status, Msg: msg, Err: err}
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d: %s: %v", e.Status, e.Msg, e.Err)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Msg)
}

func (e *StatusError) Unwrap() error { return e.Err }

// ErrorResponse turns err into a plain-text response. StatusErrors keep
// their status, anything else becomes a 500.
func ErrorResponse(err error) *response.Response {
	var se *StatusError
	if errors.As(err, &se) {
		return response.NewPlainTextResponse(se.Status, se.Msg)
	}
	return response.NewPlainTextResponse(response.StatusInternalServerError,
		"SERVER INTERNAL ERROR: "+err.Error())
}
