package response

import (
	"fmt"
	"net/http"
)

// Error is an HTTP failure rendered as {"detail": ..., "messages": [...]}
type Error struct {
	StatusCode int      `json:"-"`
	Message    string   `json:"detail"`
	Messages   []string `json:"messages"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// WithMessage replaces the detail line
func (e *Error) WithMessage(msg string) *Error {
	e.Message = msg
	return e
}

// AddMessages appends per-field or per-cause explanations
func (e *Error) AddMessages(msgs ...string) *Error {
	e.Messages = append(e.Messages, msgs...)
	return e
}

func makeError(status int) *Error {
	return &Error{
		StatusCode: status,
		Messages:   make([]string, 0),
	}
}

// ErrUnexpected is a 500 for storage and other server-side failures
func ErrUnexpected() *Error {
	return makeError(http.StatusInternalServerError).
		WithMessage("An unexpected error has occured")
}

// ErrBadRequest is a 400
func ErrBadRequest() *Error {
	return makeError(http.StatusBadRequest).
		WithMessage("Bad request")
}

// ErrNotFound is a 404; callers usually override the detail with WithMessage
func ErrNotFound() *Error {
	return makeError(http.StatusNotFound).
		WithMessage("Requested resources not found")
}

// ErrMethodNotAllowed is a 405 for routes that exist under another method
func ErrMethodNotAllowed() *Error {
	return makeError(http.StatusMethodNotAllowed).
		WithMessage("Method not allowed")
}

// ErrUnprocessableEntity is a 422 for bodies or path ids that parse but fail validation
func ErrUnprocessableEntity() *Error {
	return makeError(http.StatusUnprocessableEntity).
		WithMessage("Unprocessable entity")
}

// ErrServiceUnavailable is a 503, returned by /healthz when the database is unreachable
func ErrServiceUnavailable() *Error {
	return makeError(http.StatusServiceUnavailable).
		WithMessage("Service unavailable")
}

// ErrInvalidJson is a 400 for a body that is not well-formed JSON of the expected shape
func ErrInvalidJson() *Error {
	return ErrBadRequest().AddMessages("Invalid JSON body")
}
