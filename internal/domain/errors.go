package domain

import (
	"errors"
	"fmt"
)

// Common domain errors returned by the ratings engine.
var (
	// ErrUnsupported signals that an algorithm deliberately does not
	// implement a reputation capability. Callers must treat it as
	// "nothing to do" rather than a failure, and must not log it as an
	// error.
	ErrUnsupported = errors.New("capability not implemented by algorithm")

	// ErrInvalidRatingID indicates that a composite rating identifier
	// could not be parsed, or that it references an item or record that
	// does not exist.
	ErrInvalidRatingID = errors.New("invalid rating id")

	// ErrRatingNotFound indicates that no rating record matched the query.
	ErrRatingNotFound = errors.New("rating not found")

	// ErrItemNotFound indicates that the referenced content item does not
	// exist in the backing store.
	ErrItemNotFound = errors.New("item not found")

	// ErrAlgorithmNotFound indicates that a registry lookup by hint did
	// not resolve to a registered reputation algorithm.
	ErrAlgorithmNotFound = errors.New("reputation algorithm not found")

	// ErrNoAlgorithm indicates that not even the registry's default
	// reputation algorithm could be resolved. This is a configuration
	// fatal: the default ships with the engine, so its absence means a
	// broken deployment, not a transient fault.
	ErrNoAlgorithm = errors.New("no reputation algorithm available")
)

// StoreError wraps a backing-store failure with the operation and subject
// that triggered it, surfacing collaborator failures as domain-level
// errors without losing the cause.
type StoreError struct {
	// Op names the store operation that failed, e.g. "save" or "list".
	Op string

	// Subject is the item, user, or rating id involved in the operation.
	Subject string

	// Err is the underlying store error.
	Err error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	return fmt.Sprintf("store error: op=%s, subject=%s, err=%v", e.Op, e.Subject, e.Err)
}

// Unwrap returns the underlying error, supporting errors.Is and errors.As.
func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError creates a StoreError with the given details.
func NewStoreError(op, subject string, err error) *StoreError {
	return &StoreError{Op: op, Subject: subject, Err: err}
}
