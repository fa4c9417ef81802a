package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrAlreadyExists", ErrAlreadyExists},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrNotImplemented", ErrNotImplemented},
		{"ErrCircuitOpen", ErrCircuitOpen},
		{"ErrParseFailure", ErrParseFailure},
		{"ErrIndexMismatch", ErrIndexMismatch},
		{"ErrTimeout", ErrTimeout},
		{"ErrInternal", ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

// TestErrNotFound tests ErrNotFound error
func TestErrNotFound(t *testing.T) {
	assert.Equal(t, "not found", ErrNotFound.Error())
	assert.True(t, errors.Is(ErrNotFound, ErrNotFound))
	assert.False(t, errors.Is(ErrNotFound, ErrAlreadyExists))
}

// TestErrCircuitOpen tests ErrCircuitOpen error
func TestErrCircuitOpen(t *testing.T) {
	assert.Equal(t, "circuit breaker open", ErrCircuitOpen.Error())
	assert.True(t, errors.Is(ErrCircuitOpen, ErrCircuitOpen))
	assert.False(t, errors.Is(ErrCircuitOpen, ErrTimeout))
}

// TestErrors_Uniqueness tests that all errors are distinct
func TestErrors_Uniqueness(t *testing.T) {
	allErrors := []error{
		ErrNotFound,
		ErrAlreadyExists,
		ErrInvalidInput,
		ErrNotImplemented,
		ErrCircuitOpen,
		ErrParseFailure,
		ErrIndexMismatch,
		ErrTimeout,
		ErrInternal,
	}

	for i, err1 := range allErrors {
		for j, err2 := range allErrors {
			if i != j {
				assert.False(t, errors.Is(err1, err2),
					"Error %v should not match error %v", err1, err2)
			}
		}
	}
}

// TestErrors_WithWrapping tests error wrapping behavior
func TestErrors_WithWrapping(t *testing.T) {
	wrappedErr := errors.Join(ErrNotFound, errors.New("additional context"))

	assert.True(t, errors.Is(wrappedErr, ErrNotFound))
	assert.Contains(t, wrappedErr.Error(), "not found")
}

// TestErrors_FmtWrapping tests the fmt.Errorf("%w") pattern used at layer boundaries
func TestErrors_FmtWrapping(t *testing.T) {
	wrapped := fmt.Errorf("page 4: %w", ErrParseFailure)
	assert.True(t, errors.Is(wrapped, ErrParseFailure))
	assert.Contains(t, wrapped.Error(), "page 4")
}

// TestErrors_InSwitchStatement tests using errors in switch statements
func TestErrors_InSwitchStatement(t *testing.T) {
	testErr := ErrNotFound

	var result string
	switch {
	case errors.Is(testErr, ErrNotFound):
		result = "not found"
	case errors.Is(testErr, ErrAlreadyExists):
		result = "already exists"
	default:
		result = "unknown"
	}

	assert.Equal(t, "not found", result)
}

// TestErrors_DataErrors tests data-related errors
func TestErrors_DataErrors(t *testing.T) {
	dataErrors := map[string]error{
		"not found":      ErrNotFound,
		"already exists": ErrAlreadyExists,
		"invalid input":  ErrInvalidInput,
	}

	for expectedMsg, err := range dataErrors {
		assert.Equal(t, expectedMsg, err.Error())
	}
}

// TestErrors_ServiceErrors tests the error kinds specific to retrieval failure modes
func TestErrors_ServiceErrors(t *testing.T) {
	serviceErrors := []error{
		ErrParseFailure,
		ErrIndexMismatch,
		ErrTimeout,
		ErrInternal,
	}

	for _, err := range serviceErrors {
		assert.NotNil(t, err)
		assert.NotEmpty(t, err.Error())
	}
}
