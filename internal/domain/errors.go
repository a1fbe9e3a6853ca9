package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput signals a malformed request value (non-integer id, empty search text).
	ErrInvalidInput = errors.New("invalid input")
	// ErrBackingStoreUnavailable signals a connection failure or timeout against Mongo, Redis or Neo4j.
	ErrBackingStoreUnavailable = errors.New("backing store unavailable")
	// ErrTimeout signals that a backing store call exceeded its deadline.
	ErrTimeout = errors.New("backing store timeout")
	// ErrDataInconsistency signals a cross-store reference to a movie the catalog no longer has.
	ErrDataInconsistency = errors.New("data inconsistency")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrNotImplemented signals a feature that is not configured.
	ErrNotImplemented = errors.New("not implemented")
)

// UnavailableError reports a failed call to a named backing store.
// It matches ErrBackingStoreUnavailable, and ErrTimeout as well when the cause is a deadline.
type UnavailableError struct {
	Store string
	Err   error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Store, ErrBackingStoreUnavailable.Error(), e.Err)
}

// Unwrap exposes the sentinel kinds alongside the driver cause.
func (e *UnavailableError) Unwrap() []error {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return []error{ErrBackingStoreUnavailable, ErrTimeout, e.Err}
	}
	return []error{ErrBackingStoreUnavailable, e.Err}
}

// NewUnavailable wraps err as an UnavailableError for store. Returns nil for a nil err.
func NewUnavailable(store string, err error) error {
	if err == nil {
		return nil
	}
	var ue *UnavailableError
	if errors.As(err, &ue) {
		return err
	}
	return &UnavailableError{Store: store, Err: err}
}

// InvalidInputf builds an ErrInvalidInput with a formatted reason.
func InvalidInputf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
