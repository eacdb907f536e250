// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"errors"
	"fmt"
)

// Error taxonomy. Every error returned by this package wraps exactly one of
// these; callers branch with errors.Is.
var (
	ErrValidation      = errors.New("validation error")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
	ErrNotFound        = errors.New("not found")
	ErrExternalService = errors.New("external service error")
)

// Refinements
var (
	ErrAlreadyVoted      = fmt.Errorf("%w: already voted", ErrConflict)
	ErrIncompleteBallot  = fmt.Errorf("%w: incomplete ballot", ErrValidation)
	ErrCandidateMismatch = fmt.Errorf("%w: candidate/position mismatch", ErrValidation)
	ErrInvalidScope      = fmt.Errorf("%w: invalid election scope", ErrValidation)
)

// errIdentityTaken signals that a concurrent sign-in created the voter first.
var errIdentityTaken = errors.New("external identity already registered")

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func forbiddenf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}

func conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// storageError marks a driver or deadline failure as retryable by the caller.
func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrExternalService, op, err)
}
