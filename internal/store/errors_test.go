package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNotFoundError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"generic error", errors.New("some error"), false},
		{"ErrNotFound", ErrNotFound, true},
		{"wrapped ErrNotFound", fmt.Errorf("failed to do something: %w", ErrNotFound), true},
		{"ErrCardNotFound", ErrCardNotFound, true},
		{"wrapped ErrCardSetNotFound", fmt.Errorf("load set: %w", ErrCardSetNotFound), true},
		{"store error around ErrCardNotFound", NewStoreError("card", "get", "missing", ErrCardNotFound), true},
		{"ErrDuplicate", ErrDuplicate, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsNotFoundError(tt.err))
		})
	}
}

func TestIsDuplicateError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"ErrDuplicate", ErrDuplicate, true},
		{"ErrCardExists", ErrCardExists, true},
		{"wrapped ErrCardExists", fmt.Errorf("create card: %w", ErrCardExists), true},
		{"ErrCardNotFound", ErrCardNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsDuplicateError(tt.err))
		})
	}
}

func TestEntityErrorsAreDistinct(t *testing.T) {
	t.Parallel()

	assert.NotErrorIs(t, ErrCardNotFound, ErrCardSetNotFound)
	assert.Equal(t, "entity not found: card set", ErrCardSetNotFound.Error())
}

func TestStoreError(t *testing.T) {
	t.Parallel()
	originalErr := errors.New("database connection failed")

	storeErr := NewStoreError("card", "update", "database error", originalErr)
	assert.Equal(t, "update operation on card failed: database error: database connection failed", storeErr.Error())
	assert.Equal(t, originalErr, storeErr.Unwrap())
	assert.ErrorIs(t, storeErr, originalErr)

	var target *StoreError
	assert.ErrorAs(t, fmt.Errorf("outer: %w", storeErr), &target)
	assert.Equal(t, "card", target.Entity)

	bare := &StoreError{Entity: "card_set", Operation: "create", Message: "validation failed"}
	assert.Equal(t, "create operation on card_set failed: validation failed", bare.Error())
	assert.Nil(t, bare.Unwrap())
}
