package errors

import (
	"errors"
	"fmt"
)

// Domain errors - these map to specific HTTP responses
var (
	// OAuth errors (RFC 6749 compliant). Every way a grant can fail
	// collapses to ErrInvalidGrant; the services never expose anything
	// finer than these.
	ErrInvalidClient = errors.New("invalid_client")
	ErrInvalidGrant  = errors.New("invalid_grant")
	ErrInvalidScope  = errors.New("invalid_scope")

	// ErrTokenInvalid marks a token lookup miss. Distinct from
	// ErrInvalidGrant because introspection reports it as inactive rather
	// than as an error.
	ErrTokenInvalid = errors.New("token invalid")

	// Client errors
	ErrClientNotFound = errors.New("client not found")

	// Pending authorization errors
	ErrPendingNotFound = errors.New("pending authorization not found")

	// Store errors
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInternal         = errors.New("internal error")
)

// OAuthError represents an OAuth 2.0 error response.
type OAuthError struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
	URI         string `json:"error_uri,omitempty"`
	State       string `json:"state,omitempty"`
}

func (e *OAuthError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Description)
	}
	return e.Code
}

// NewOAuthError creates a new OAuth error.
func NewOAuthError(code, description string) *OAuthError {
	return &OAuthError{
		Code:        code,
		Description: description,
	}
}

// WithState adds the state parameter to the error.
func (e *OAuthError) WithState(state string) *OAuthError {
	e.State = state
	return e
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
