// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

var (
	// Storage errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Document and OCR errors. ErrOCRUnavailable means the engine could not be
	// set up at all; transient failures of a working engine are reported as
	// *TransientError instead.
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrNoText          = errors.New("no text recognized")
	ErrOCRUnavailable  = errors.New("ocr engine unavailable")
	ErrRateLimit       = errors.New("ocr quota exceeded")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

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

// TransientError is an OCR engine failure expected to clear on its own, such
// as an unreachable backend or an aborted request.
type TransientError struct {
	Err    error
	Engine string
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s temporarily unavailable: %v", e.Engine, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is worth another OCR attempt: quota
// exhaustion, a timed out call or a *TransientError. Cancellation never is.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrRateLimit) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var transient *TransientError
	return errors.As(err, &transient)
}
