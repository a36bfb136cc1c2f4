package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrSessionExpired is returned when the server answers 401. The session
// token is cleared before this error is surfaced, so the caller must log in
// again.
var ErrSessionExpired = errors.New("session expired")

// APIError is a structured error decoded from the server's error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

// IsConflict reports whether err is a state-conflict response, including
// rejected lifecycle transitions.
func IsConflict(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusConflict
	}
	return false
}

// IsInvalidState reports whether err is a rejected state-machine transition.
func IsInvalidState(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == "INVALID_STATE"
	}
	return false
}

// IsNotFound reports whether err is a missing-resource response.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusNotFound
	}
	return false
}

// ValidationError is raised client-side when an operation is blocked before
// network dispatch.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return "validation failed: " + e.Message
}

// IsValidation reports whether err was blocked client-side before dispatch.
func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}
