package orders

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateOrder is returned by Append when the order reference is already queued.
	ErrDuplicateOrder = errors.New("order already queued")
	// ErrOrderNotFound is returned by Transition when no order has the reference.
	ErrOrderNotFound = errors.New("order not found")
	// ErrStatusMismatch is returned by Transition when the current status is not an allowed source.
	ErrStatusMismatch = errors.New("status mismatch")
)

// ValidationError blocks order creation until the named field is corrected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// PersistenceError reports a failed read or write of the local order queue.
// It is never fatal: callers keep working with the in-memory order.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("order queue %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
