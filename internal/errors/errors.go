package errors

import (
	"errors"
	"fmt"
)

// Common error types for the command center client
var (
	// Transport errors
	ErrUnreachable     = errors.New("cannot reach server. Is the backend running?")
	ErrPayloadTooLarge = errors.New("response body too large")

	// Authentication errors
	ErrAuthExpired      = errors.New("session expired")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrRefreshFailed    = errors.New("token refresh failed")

	// State errors
	ErrNotFound = errors.New("not found")

	// General errors
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnsupported    = errors.New("unsupported operation")
)

// RequestFailedError is returned for any non-success HTTP status that is not
// resolved by the refresh protocol. A terminal 401 is marked AuthExpired and
// matches ErrAuthExpired, while still reporting the server's message.
type RequestFailedError struct {
	Status      int
	Message     string
	AuthExpired bool
}

func (e *RequestFailedError) Error() string {
	return e.Message
}

func (e *RequestFailedError) Is(target error) bool {
	return e.AuthExpired && target == ErrAuthExpired
}

// UnreachableError reports a transport failure. Its message is always that of
// ErrUnreachable; the underlying network error is kept for logging.
type UnreachableError struct {
	Cause error
}

func (e *UnreachableError) Error() string {
	return ErrUnreachable.Error()
}

func (e *UnreachableError) Is(target error) bool {
	return target == ErrUnreachable
}

func (e *UnreachableError) Unwrap() error {
	return e.Cause
}

// NewRequestFailed builds a RequestFailedError, falling back to "HTTP <status>"
// when the server supplied no message.
func NewRequestFailed(status int, message string) *RequestFailedError {
	if message == "" {
		message = fmt.Sprintf("HTTP %d", status)
	}
	return &RequestFailedError{Status: status, Message: message}
}

// NewAuthExpired builds the terminal 401 error.
func NewAuthExpired(message string) *RequestFailedError {
	err := NewRequestFailed(401, message)
	err.AuthExpired = true
	return err
}

// StatusCode returns the HTTP status carried by err, or 0 if err is not a
// RequestFailedError.
func StatusCode(err error) int {
	var reqErr *RequestFailedError
	if errors.As(err, &reqErr) {
		return reqErr.Status
	}
	return 0
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
