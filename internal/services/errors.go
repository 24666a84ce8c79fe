package services

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks caller errors detected before any store access.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict marks requests that clash with the current state.
	ErrConflict = errors.New("conflict")
	// ErrUnavailable marks features whose backing service is not configured.
	ErrUnavailable = errors.New("unavailable")
)

// Error carries a client-facing message for one of the kinds above.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func invalidInput(format string, args ...any) error {
	return &Error{Kind: ErrInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func conflict(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

func unavailable(format string, args ...any) error {
	return &Error{Kind: ErrUnavailable, Message: fmt.Sprintf(format, args...)}
}
