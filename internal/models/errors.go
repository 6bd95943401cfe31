package models

import (
	"errors"
	"fmt"
)

// Error kinds. Callers match them with errors.Is; the more specific errors
// below wrap one of these.
var (
	ErrValidation        = errors.New("invalid input")
	ErrNotFound          = errors.New("requested entity does not exist")
	ErrForbidden         = errors.New("provided user does not have permission for this operation")
	ErrInvalidState      = errors.New("operation is not permitted in the current state")
	ErrInvalidTransition = errors.New("status transition is not allowed")
	ErrConflict          = errors.New("entity was changed by a concurrent operation")
	ErrTransient         = errors.New("storage is temporarily unavailable")
)

var (
	ErrNoJob         = fmt.Errorf("requested job does not exist: %w", ErrNotFound)
	ErrNoProposal    = fmt.Errorf("requested proposal does not exist: %w", ErrNotFound)
	ErrJobNotOpen    = fmt.Errorf("job is not open for proposals: %w", ErrInvalidState)
	ErrJobFinalized  = fmt.Errorf("job is already completed or cancelled: %w", ErrInvalidState)
	ErrNotPending    = fmt.Errorf("proposal is already accepted, rejected or withdrawn: %w", ErrInvalidState)
	ErrAlreadyHired  = fmt.Errorf("another proposal of this job is already accepted: %w", ErrConflict)
	ErrStatusChanged = fmt.Errorf("status was changed concurrently, re-fetch and retry: %w", ErrConflict)
)

// Validationf builds an ErrValidation with a field specific message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Retryable reports whether repeating the same call may succeed without
// re-reading state first.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransient)
}
