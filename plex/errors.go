package plex

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrTransport indicates the request never produced a response
	ErrTransport = errors.New("plex transport failure")
	// ErrDecode indicates the response body could not be decoded as JSON
	ErrDecode = errors.New("plex response decode failure")
	// ErrInvalidOptions indicates request options that cannot be sanitized
	ErrInvalidOptions = errors.New("invalid request options")
	// ErrNoServer indicates the session has no media server host yet
	ErrNoServer = errors.New("no media server selected: log in first")
	// ErrServerNotFound indicates discovery found no usable media server
	ErrServerNotFound = errors.New("no Plex Media Server found for this account")

	errMissingField = errors.New("required field missing")
)

// TransportError wraps a connection-level failure
type TransportError struct {
	Method string
	URL    string
	Err    error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	return fmt.Sprintf("invalid request [%s %s]: %v", e.Method, e.URL, e.Err)
}

// Unwrap returns the underlying error
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrTransport
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// maxErrorBody bounds how much of an undecodable body is kept in a DecodeError
const maxErrorBody = 512

// DecodeError reports a body that is not valid JSON
type DecodeError struct {
	StatusCode int
	Body       string
	Err        error
}

// Error implements the error interface
func (e *DecodeError) Error() string {
	return fmt.Sprintf("bad request or invalid data: status %d", e.StatusCode)
}

// Unwrap returns the underlying error
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrDecode
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

// IsSuccessStatus reports whether the undecodable body came with a 2xx status
func (e *DecodeError) IsSuccessStatus() bool {
	return e.StatusCode >= 200 && e.StatusCode < 300
}

// StatusError is returned when a call that needs a 2xx answer gets a
// well-formed JSON error instead
type StatusError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface
func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("plex returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("plex returned status %d: %s", e.StatusCode, e.Message)
}

// IsUnauthorized checks if the server rejected the token
func (e *StatusError) IsUnauthorized() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// IsNotFound checks if the resource does not exist
func (e *StatusError) IsNotFound() bool {
	return e.StatusCode == 404
}

// AuthError is returned when plex.tv rejects a sign-in
type AuthError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface
func (e *AuthError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("plex sign-in failed: status %d", e.StatusCode)
	}
	return fmt.Sprintf("plex sign-in failed: status %d: %s", e.StatusCode, e.Message)
}

// IsUnauthorized checks if the error indicates rejected credentials
func (e *AuthError) IsUnauthorized() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

func truncateBody(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "..."
	}
	return string(body)
}
