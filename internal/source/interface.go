// Package source provides gateways to the external document source photos are
// fetched from.
package source

import (
	"context"
	"errors"
)

// Gateway fetches a file and its declared metadata by opaque file identifier.
// Implementations must be safe for concurrent use.
type Gateway interface {
	// GetMetadata returns the file's declared name and content type
	GetMetadata(ctx context.Context, fileID string) (*FileMetadata, error)

	// GetBytes downloads the file content
	GetBytes(ctx context.Context, fileID string) ([]byte, error)

	// Name returns the name of the source
	Name() string
}

// FileMetadata describes a remote file.
type FileMetadata struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
}

// SourceError represents errors from source operations
type SourceError struct {
	Source  string // Source name
	Code    string // Error code (e.g., "not_found")
	Message string // Error message
	Err     error  // Underlying error
}

func (e *SourceError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Is lets callers match SourceError values against the sentinel errors by code.
func (e *SourceError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Code == ErrCodeNotFound
	case ErrAuthenticationFailed:
		return e.Code == ErrCodeAuthenticationFailed
	case ErrRateLimitExceeded:
		return e.Code == ErrCodeRateLimitExceeded
	}
	return false
}

// Common error codes
const (
	ErrCodeRateLimitExceeded    = "rate_limit_exceeded"
	ErrCodeAuthenticationFailed = "authentication_failed"
	ErrCodeNotFound             = "not_found"
	ErrCodeInvalidData          = "invalid_data"
	ErrCodeNetworkError         = "network_error"
	ErrCodeServerError          = "server_error"
)

// Sentinel errors
var (
	ErrRateLimitExceeded    = errors.New("rate limit exceeded")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrNotFound             = errors.New("file not found")
)

// NewSourceError creates a new source error
func NewSourceError(source, code, message string, err error) *SourceError {
	return &SourceError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
