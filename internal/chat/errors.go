package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy is returned when a question arrives while another is still
	// being processed. The caller should retry after the current one
	// finishes.
	ErrBusy = errors.New("a question is already being processed")
	// ErrNotFound is returned when a referenced message does not exist.
	ErrNotFound = errors.New("message not found")
)

// ValidationError represents a validation error with a field name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// WrapError wraps an error with additional context.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}
