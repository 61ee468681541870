package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain layer operations.
var (
	// ErrValidationFailed indicates that validation checks have failed
	ErrValidationFailed = errors.New("validation failed")

	// ErrInvalidFeaturedURL indicates that a featured article URL does not
	// point at a WeChat article page (mp.weixin.qq.com/s/...).
	ErrInvalidFeaturedURL = errors.New("featured article url must be a mp.weixin.qq.com/s/ link")

	// ErrInvalidCronExpression indicates that a message task schedule could not be parsed
	ErrInvalidCronExpression = errors.New("invalid cron expression")
)

// ValidationError represents a validation error with detailed field information.
// It implements the error interface and provides context about which field failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// Unwrap lets callers match any ValidationError with errors.Is(err, ErrValidationFailed).
func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}
