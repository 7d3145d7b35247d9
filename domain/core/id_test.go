package core

import (
	"errors"
	"fmt"
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

// TestIDIsEmpty tests ID emptiness check
func TestIDIsEmpty(t *testing.T) {
	if !ID("").IsEmpty() {
		t.Error("Expected empty ID to be empty")
	}
	if ID("not-empty").IsEmpty() {
		t.Error("Expected non-empty ID to not be empty")
	}
}

func TestParseRunID(t *testing.T) {
	tests := []struct {
		input    string
		expected RunID
		hasError bool
	}{
		{"run-1", RunID("run-1"), false},
		{"", "", true},
		{"   ", "", true},
	}

	for _, tt := range tests {
		got, err := ParseRunID(tt.input)
		if tt.hasError {
			if err == nil {
				t.Errorf("ParseRunID(%q): expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseRunID(%q): unexpected error %v", tt.input, err)
		}
		if got != tt.expected {
			t.Errorf("ParseRunID(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestErrorHelpers(t *testing.T) {
	rangeErr := NewRangeError("minX", "must be positive")
	if !errors.Is(rangeErr, ErrInvalidRange) || !IsInputError(rangeErr) {
		t.Errorf("range error should wrap ErrInvalidRange, got %v", rangeErr)
	}
	if !IsInputError(NewValidationError("dilution", "must be finite")) {
		t.Error("validation error should classify as input error")
	}
	if !IsInputError(fmt.Errorf("fit: %w", ErrInsufficientData)) {
		t.Error("wrapped insufficient data should classify as input error")
	}
	if IsInputError(ErrSingularMatrix) || IsInputError(ErrNonFinite) {
		t.Error("numeric errors are not input errors")
	}
}
