package store

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidID is returned when an identifier cannot address any document.
var ErrInvalidID = errors.New("invalid id")

// ErrAlreadyExists is returned when an insert collides with an existing key.
var ErrAlreadyExists = errors.New("already exists")

// ErrStoreFailure matches every error raised by the underlying database.
var ErrStoreFailure = errors.New("store failure")

// FailureError wraps a database error with the operation that produced it.
type FailureError struct {
	Op  string
	Err error
}

func (e *FailureError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *FailureError) Unwrap() error {
	return e.Err
}

func (e *FailureError) Is(target error) bool {
	return target == ErrStoreFailure
}

func failure(op string, err error) error {
	return &FailureError{Op: op, Err: err}
}
