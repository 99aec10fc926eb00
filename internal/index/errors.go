package index

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an index-backend failure. It carries an HTTP-style status code and
// a message so callers can decide whether to abort or skip, and so the wire
// layer can pass it through unchanged.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("index backend: %d %s", e.StatusCode, e.Message)
}

func errNotFound(format string, args ...any) *Error {
	return &Error{StatusCode: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

func errBadRequest(format string, args ...any) *Error {
	return &Error{StatusCode: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func errConflict(format string, args ...any) *Error {
	return &Error{StatusCode: http.StatusConflict, Message: fmt.Sprintf(format, args...)}
}

// IsNotFound reports whether err is an index error with a 404 status.
func IsNotFound(err error) bool {
	var ie *Error
	return errors.As(err, &ie) && ie.StatusCode == http.StatusNotFound
}
