// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Database errors.
	ErrNotFound          = errors.New("not found")
	ErrDuplicateEntry    = errors.New("duplicate entry")
	ErrDatabaseCorrupted = errors.New("database corrupted")

	// Validation errors.
	ErrValidation = errors.New("validation failed")

	// Exchange rate errors.
	ErrRateUnavailable = errors.New("exchange rate unavailable")

	// Execution state errors.
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrUndoWindowExpired = errors.New("undo window expired")
	ErrUndoDisabled      = errors.New("undo is disabled")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ValidationError describes a rejected mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a validation error for a single field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// TransitionError is returned when an execution record cannot move to the
// requested state. The record is left untouched.
type TransitionError struct {
	Err        error
	MonthLabel string
	From       string
	Op         string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s %s (status %s): %v", e.Op, e.MonthLabel, e.From, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Validation and state errors never get better by trying again.
	if errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrUndoWindowExpired) ||
		errors.Is(err, ErrUndoDisabled) ||
		errors.Is(err, context.Canceled) {
		return false
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return true
}
