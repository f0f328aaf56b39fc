package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a patch or delete targets a missing record.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition is returned when a terminal task would change status.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrStoreUnavailable wraps adapter-level failures.
	ErrStoreUnavailable = errors.New("store unavailable")
)

func notFound(kind, key string) error {
	return fmt.Errorf("%s %s: %w", kind, key, ErrNotFound)
}

// unavailable wraps a database error. Context cancellation passes through as-is.
func unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
