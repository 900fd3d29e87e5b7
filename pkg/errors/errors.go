// Package errors defines common error types used throughout the Twitter API wrapper.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Sentinel errors matched by APIError.Is according to the HTTP status of the response.
var (
	ErrBadRequest      = errors.New("bad request")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrTooManyRequests = errors.New("too many requests")
	ErrServer          = errors.New("server error")
)

// joinParts joins error message parts with the specified separator.
func joinParts(parts []string, sep string) string {
	return strings.Join(parts, sep)
}

// ConfigError indicates a problem with the client configuration, including
// credentials that are missing for a particular action.
type ConfigError struct {
	// Field contains the name of the configuration field that caused the error
	Field string
	// Message contains the detailed error message
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

// ValidationError indicates that caller-supplied input was rejected before any
// request was sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// AuthError indicates an authentication failure.
type AuthError struct {
	// StatusCode is the HTTP status code (if from an HTTP response)
	StatusCode int
	// Message contains the detailed error message
	Message string
	// Body contains the raw response body (if available)
	Body string
	// Err contains the underlying error if available
	Err error
}

func (e *AuthError) Error() string {
	var parts []string
	parts = append(parts, "auth error")

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status code %d", e.StatusCode))
	}

	if e.Body != "" {
		parts = append(parts, fmt.Sprintf("body: %q", e.Body))
	}

	if e.Message != "" {
		parts = append(parts, e.Message)
	}

	if e.Err != nil {
		parts = append(parts, fmt.Sprintf("err: %v", e.Err))
	}

	if len(parts) == 1 {
		return parts[0]
	}
	return parts[0] + ": " + joinParts(parts[1:], ", ")
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// StateError indicates an operation was attempted when the client is not ready.
type StateError struct {
	// Operation is the name of the operation that was attempted
	Operation string
	// Message contains the detailed error message
	Message string
}

func (e *StateError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("state error during %s: %s", e.Operation, e.Message)
	}
	return fmt.Sprintf("state error: %s", e.Message)
}

// RequestError indicates a problem with making an API request.
type RequestError struct {
	// Operation is the name of the API operation that failed
	Operation string
	// URL is the URL that was being accessed
	URL string
	// Message contains the detailed error message
	Message string
	// Err contains the underlying error if available
	Err error
}

func (e *RequestError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}

	if e.Operation != "" && e.URL != "" {
		return fmt.Sprintf("request error during %s to %s: %s", e.Operation, e.URL, msg)
	} else if e.Operation != "" {
		return fmt.Sprintf("request error during %s: %s", e.Operation, msg)
	}
	return fmt.Sprintf("request error: %s", msg)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// ParseError indicates a problem parsing the API response.
type ParseError struct {
	// Operation is the name of the API operation where parsing failed
	Operation string
	// Message contains the detailed error message
	Message string
	// Err contains the underlying error if available
	Err error
}

func (e *ParseError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}

	if e.Operation != "" {
		return fmt.Sprintf("parse error during %s: %s", e.Operation, msg)
	}
	return fmt.Sprintf("parse error: %s", msg)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ProblemDetail is a single entry of the "errors" array returned by the v2 API.
type ProblemDetail struct {
	Title        string `json:"title"`
	Detail       string `json:"detail"`
	Type         string `json:"type"`
	Message      string `json:"message"`
	Code         int    `json:"code"`
	Value        string `json:"value"`
	ResourceType string `json:"resource_type"`
	Parameter    string `json:"parameter"`
}

// RateLimit is the rate limit window reported by the API in x-rate-limit-* headers.
type RateLimit struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

// APIError represents an error response from the Twitter API.
type APIError struct {
	// StatusCode is the HTTP status code
	StatusCode int
	// Title is the problem title ("Not Found Error", "Unauthorized", ...)
	Title string
	// Detail is the human readable problem detail
	Detail string
	// Type is the problem type URI
	Type string
	// Errors holds every problem reported by the API
	Errors []ProblemDetail
	// RateLimit is populated when the response carried rate limit headers
	RateLimit *RateLimit
}

func (e *APIError) Error() string {
	msg := e.Detail
	if msg == "" {
		msg = e.Title
	}
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Title != "" && e.Detail != "" {
		return fmt.Sprintf("twitter API error (status %d, %s): %s", e.StatusCode, e.Title, e.Detail)
	}
	return fmt.Sprintf("twitter API error (status %d): %s", e.StatusCode, msg)
}

// Is reports whether target is the sentinel matching this error's status.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrBadRequest:
		return e.StatusCode == http.StatusBadRequest
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound || e.isResourceNotFound()
	case ErrConflict:
		return e.StatusCode == http.StatusConflict
	case ErrTooManyRequests:
		return e.StatusCode == http.StatusTooManyRequests
	case ErrServer:
		return e.StatusCode >= http.StatusInternalServerError
	}
	return false
}

// isResourceNotFound covers the 200 responses that carry only a
// "Could not find ..." problem instead of data.
func (e *APIError) isResourceNotFound() bool {
	if strings.HasPrefix(e.Detail, "Could not find") {
		return true
	}
	return strings.HasSuffix(e.Type, "/resource-not-found")
}

// IsNotFound checks if the error indicates a missing resource
func (e *APIError) IsNotFound() bool {
	return e.Is(ErrNotFound)
}

// IsRateLimited checks if the error is a 429 response
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsRetryable reports whether repeating the request may succeed.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// ClientError indicates a problem with the HTTP client operations.
type ClientError struct {
	// Operation describes what the client was trying to do
	Operation string
	// Message contains the detailed error message
	Message string
	// Err contains the underlying error if available
	Err error
}

func (e *ClientError) Error() string {
	if e.Err != nil && e.Operation == "" && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil && e.Operation != "" {
		return fmt.Sprintf("client error during %s: %v", e.Operation, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("client error: %v", e.Err)
	}
	if e.Operation != "" && e.Message != "" {
		return fmt.Sprintf("client error during %s: %s", e.Operation, e.Message)
	}
	if e.Operation != "" {
		return fmt.Sprintf("client error during %s", e.Operation)
	}
	if e.Message != "" {
		return fmt.Sprintf("client error: %s", e.Message)
	}
	return "client error"
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// MissingCredential builds the error returned when an action needs a credential
// that was not configured.
func MissingCredential(field string) *ConfigError {
	return &ConfigError{Field: field, Message: "required for this action"}
}
