package web

import (
	"errors"
	"net/http"
)

// Sentinel errors handlers can return to get a well-known status code.
var (
	ErrBadRequest            = errors.New("bad request")
	ErrNotFound              = errors.New("not found")
	ErrAuthenticationFailure = errors.New("authentication failed")
	ErrForbidden             = errors.New("attempted action is not allowed")
	ErrInternalServerError   = errors.New("internal server error")
	ErrUnauthorized          = errors.New("user does not have required permissions for this action")
)

// ErrorResponse is the JSON body sent for any failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Error carries an error through the middleware chain together with the
// HTTP status it should produce.
type Error struct {
	Err    error
	Status int
}

// NewRequestError pairs an expected handler error with its status code.
// The errors middleware unwraps it when writing the response.
func NewRequestError(err error, status int) error {
	return &Error{err, status}
}

// Error returns the wrapped error's message, which is what lands in the
// controller's logs.
func (err *Error) Error() string {
	return err.Err.Error()
}

// shutdown signals that request handling hit a state the process cannot
// recover from.
type shutdown struct {
	Message string
}

// NewShutdownError returns an error that makes the framework stop the
// service gracefully instead of serving further requests.
func NewShutdownError(message string) error {
	return &shutdown{message}
}

// Error is the implementation of the error interface.
func (s *shutdown) Error() string {
	return s.Message
}

// IsShutdown reports whether err asks for a graceful termination.
func IsShutdown(err error) bool {
	if _, ok := err.(*shutdown); ok {
		return true
	}

	return false
}

// TranslateError maps the sentinel errors above to request errors with
// their status codes. Handlers call it on errors bubbling up from lower
// layers.
func TranslateError(err error) error {
	if err != nil {
		switch err {
		case ErrBadRequest:
			return NewRequestError(err, http.StatusBadRequest)
		case ErrNotFound:
			return NewRequestError(err, http.StatusNotFound)
		case ErrAuthenticationFailure:
			return NewRequestError(err, http.StatusUnauthorized)
		case ErrForbidden:
			return NewRequestError(err, http.StatusForbidden)
		case ErrInternalServerError:
			return NewRequestError(err, http.StatusInternalServerError)
		}
	}

	return nil
}
