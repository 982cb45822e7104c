package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidGrade is returned when a grade string is not again, good or easy.
	ErrInvalidGrade = errors.New("invalid grade")
)
