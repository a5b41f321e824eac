// Package remote submits orders to the storefront backend and reads back their status.
package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/imrishuroy/go-storefront-orderflow/internal/orders"
)

// Submitter sends an order to the remote service and returns the id it assigned.
// Failures are reported as *SyncError.
type Submitter interface {
	Submit(ctx context.Context, o orders.Order) (string, error)
}

// StatusFetcher reads the current status of an order the remote service knows about.
type StatusFetcher interface {
	FetchStatus(ctx context.Context, remoteID string) (orders.Status, error)
}

// Canceller asks the remote service to cancel an order.
type Canceller interface {
	CancelOrder(ctx context.Context, remoteID string) error
}

// ErrSyncDisabled is the cause reported by NoopSubmitter.
var ErrSyncDisabled = errors.New("remote sync disabled")

// SyncError describes a failed submission. Transient failures (network, timeout,
// throttling, server errors) are worth retrying later; the rest are not.
type SyncError struct {
	OrderRef   string
	StatusCode int
	Transient  bool
	Err        error
}

func (e *SyncError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("sync order %s: status %d: %v", e.OrderRef, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("sync order %s: %v", e.OrderRef, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a SyncError worth retrying.
func IsTransient(err error) bool {
	var se *SyncError
	return errors.As(err, &se) && se.Transient
}

// NoopSubmitter is used when no transport is configured; every submission fails
// non-transiently so orders stay local.
type NoopSubmitter struct{}

func (NoopSubmitter) Submit(ctx context.Context, o orders.Order) (string, error) {
	return "", &SyncError{OrderRef: o.OrderRef, Err: ErrSyncDisabled}
}
