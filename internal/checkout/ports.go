package checkout

import (
	"context"

	"github.com/imrishuroy/go-storefront-orderflow/internal/orders"
)

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

// Submitter sends an order to the remote service.
type Submitter interface {
	Submit(ctx context.Context, o orders.Order) (string, error)
}

// Ledger serialises submissions per order reference.
type Ledger interface {
	Begin(ctx context.Context, orderRef string) error
	MarkDone(ctx context.Context, orderRef, remoteID string) error
	MarkFailed(ctx context.Context, orderRef, note string) error
}

// MetricsRecorder counts lifecycle events.
type MetricsRecorder interface {
	Count(ctx context.Context, name, paymentMethod string) error
}

// NopMetrics discards every count.
type NopMetrics struct{}

func (NopMetrics) Count(ctx context.Context, name, paymentMethod string) error { return nil }
