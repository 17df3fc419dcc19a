package dnsimple

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Common errors
var (
	// ErrInvalidConfig indicates invalid client configuration
	ErrInvalidConfig = errors.New("invalid dnsimple configuration")
	// ErrNotFound matches API errors with status 404
	ErrNotFound = errors.New("resource not found")
	// ErrUnauthorized matches API errors with status 401 or 403
	ErrUnauthorized = errors.New("unauthorized: invalid or missing token")
	// ErrValidation matches API errors with status 400 or 422
	ErrValidation = errors.New("validation failed")
)

// APIError is returned for every non-2xx response. It is only built by the
// response mapper.
type APIError struct {
	StatusCode      int
	Message         string
	Description     string
	AttributeErrors map[string][]string
}

// Error implements the error interface
func (e *APIError) Error() string {
	msg := fmt.Sprintf("dnsimple API error: status %d: %s", e.StatusCode, e.Message)
	if len(e.AttributeErrors) == 0 {
		return msg
	}

	fields := make([]string, 0, len(e.AttributeErrors))
	for field := range e.AttributeErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s %s", field, strings.Join(e.AttributeErrors[field], ", ")))
	}
	return msg + " (" + strings.Join(parts, "; ") + ")"
}

// Is lets errors.Is match the status sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.IsNotFound()
	case ErrUnauthorized:
		return e.IsUnauthorized()
	case ErrValidation:
		return e.IsValidation()
	}
	return false
}

// IsNotFound checks if the error indicates a not found response
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsUnauthorized checks if the error indicates an authentication failure
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsValidation checks if the server rejected the request attributes
func (e *APIError) IsValidation() bool {
	return e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnprocessableEntity
}

// IsServerError checks if the server failed to handle the request
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500
}

// MalformedResponseError indicates a 2xx response whose body could not be
// decoded. It is never retried.
type MalformedResponseError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response (status %d): %v", e.StatusCode, e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}
