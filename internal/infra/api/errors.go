package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"werss-client/internal/resilience/retry"
)

// Backend business codes carried in the response envelope.
const (
	codeOK            = 0
	codeNotFound      = 40401
	codeNoNextArticle = 40402
	codeNoPrevArticle = 40403
	codeTaskNotFound  = 40404
)

// Sentinel errors for API client operations.
var (
	// ErrNotFound matches HTTP 404 and the backend's "not found" codes.
	ErrNotFound = errors.New("resource not found")

	// ErrUnauthorized matches HTTP 401 responses.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTokenExpired is returned by CheckToken when the access token's exp
	// claim is in the past.
	ErrTokenExpired = errors.New("access token expired")

	// ErrValidation is returned before any request is sent when an argument
	// is missing or malformed.
	ErrValidation = errors.New("invalid request")

	// ErrNoAdjacentArticle is returned by PrevArticle and NextArticle when
	// the article is the first or last of its subscription.
	ErrNoAdjacentArticle = errors.New("no adjacent article")

	// ErrSyncTooFrequent is returned by SyncSubscription when the backend
	// refuses a sync inside its minimum interval.
	ErrSyncTooFrequent = errors.New("subscription synced too recently")
)

// APIError is a non-success response from the backend.
type APIError struct {
	// Status is the HTTP status code.
	Status int
	// Code is the envelope business code, zero when absent.
	Code int
	// Message is the human readable backend message.
	Message string
	// RequestID is the X-Request-ID the request was sent with.
	RequestID string

	retryAfter time.Duration
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("api error: status %d code %d: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

// Is maps status and business codes onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound || e.Code == codeNotFound || e.Code == codeTaskNotFound
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	}
	return false
}

// Unwrap exposes the transport view of the failure so retry.IsRetryable can
// classify it.
func (e *APIError) Unwrap() error {
	return &retry.HTTPError{StatusCode: e.Status, Message: e.Message, RetryAfter: e.retryAfter}
}

// IsClientError reports whether err is a 4xx response, or a business error
// the backend reported with a success status.
func IsClientError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status < http.StatusInternalServerError
}

func validationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
