// internal/apperrors/apperrors.go
package apperrors

import "fmt"

// RateLimitedError is returned when the GitHub API rejects a request with a
// 403 rate-limit response.
type RateLimitedError struct{}

func (e *RateLimitedError) Error() string {
	return "GitHub API rate limit exceeded"
}

// UpstreamError is any other non-2xx response from the GitHub API.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("GitHub API error: %d %s", e.StatusCode, e.Message)
}

// StorageError wraps a failure to reach or query the database.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage unavailable: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// UnauthorizedError is returned on a sync-secret or webhook-signature
// mismatch.
type UnauthorizedError struct {
	Reason string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("unauthorized: %s", e.Reason)
}

// ValidationError is returned when a required request field is missing or
// malformed.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
