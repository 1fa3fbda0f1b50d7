package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}

	// NotConfiguredError indicates the server lacks configuration required for the operation.
	// Not recoverable by the caller.
	NotConfiguredError struct {
		Message string
	}

	// TimeoutError indicates an upstream call exceeded its deadline. Callers may retry.
	TimeoutError struct {
		Message string
	}
)

func (e *NotFoundError) Error() string      { return e.Message }
func (e *ValidationError) Error() string    { return e.Message }
func (e *UnauthorizedError) Error() string  { return e.Message }
func (e *NotConfiguredError) Error() string { return e.Message }
func (e *TimeoutError) Error() string       { return e.Message }

func (e *NotFoundError) StatusCode() int      { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int    { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int  { return http.StatusUnauthorized }
func (e *NotConfiguredError) StatusCode() int { return http.StatusNotImplemented }
func (e *TimeoutError) StatusCode() int       { return http.StatusRequestTimeout }

// Is lets errors.Is match typed errors against the sentinels below.
func (e *NotFoundError) Is(target error) bool     { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool   { return target == ErrValidation }
func (e *UnauthorizedError) Is(target error) bool { return target == ErrUnauthorized }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
)

// UpstreamError represents a failed or unusable response from an external provider.
// Maps to 502; the message is surfaced to the caller verbatim.
type UpstreamError struct {
	Message string
	Status  int // Status returned by the provider, 0 if the failure was not an HTTP status
}

func (e *UpstreamError) Error() string   { return e.Message }
func (e *UpstreamError) StatusCode() int { return http.StatusBadGateway }

// StatusOf returns the status carried by err, or fallback when err carries none.
// Wrapped sentinels map to their typed error's status.
func StatusOf(err error, fallback int) int {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode()
	}

	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return fallback
	}
}
