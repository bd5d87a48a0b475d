package entity

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("channel not found")

	// ErrDuplicate is returned when a reference is already tracked.
	ErrDuplicate = errors.New("channel already tracked")

	ErrInvalidInput = errors.New("invalid input")
)

// ValidationError rejects one field of a caller-supplied value. It matches
// ErrInvalidInput under errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }
