package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Input errors
	ErrInsufficientData = errors.New("insufficient data for analysis")
	ErrInvalidRange     = errors.New("invalid range")
	ErrInvalidInput     = errors.New("invalid input")

	// State errors
	ErrNotFitted = errors.New("curve has not been fitted")

	// Numeric errors
	ErrSingularMatrix = errors.New("matrix is singular")
	ErrNonFinite      = errors.New("non-finite value")
)

func NewRangeError(field string, reason string) error {
	return fmt.Errorf("%w for %s: %s", ErrInvalidRange, field, reason)
}

func NewValidationError(field string, reason string) error {
	return fmt.Errorf("%w: validation failed for %s: %s", ErrInvalidInput, field, reason)
}

// IsInputError reports whether err stems from unusable caller input.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrInvalidInput)
}
