// Package checkout runs the cart-to-order flow: build the order, queue it locally,
// try the remote service once and record the outcome.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/imrishuroy/go-storefront-orderflow/internal/aws"
	"github.com/imrishuroy/go-storefront-orderflow/internal/cart"
	"github.com/imrishuroy/go-storefront-orderflow/internal/idempotency"
	"github.com/imrishuroy/go-storefront-orderflow/internal/logging"
	"github.com/imrishuroy/go-storefront-orderflow/internal/orders"
	"github.com/imrishuroy/go-storefront-orderflow/internal/remote"
)

const (
	// DefaultTimeout bounds one remote submission.
	DefaultTimeout = 30 * time.Second

	// maxRefAttempts bounds how often Create reissues a reference already in the queue.
	maxRefAttempts = 5
)

var (
	// ErrNotRetryable is returned by Retry for orders that can no longer be submitted.
	ErrNotRetryable = errors.New("order cannot be resubmitted")

	// statuses an order may still be submitted or cancelled from
	openStatuses = []orders.Status{orders.StatusPendingPayment, orders.StatusPendingConfirmation}
)

// Request carries what the shopper entered at checkout.
type Request struct {
	ShippingAddress orders.ShippingAddress
	PaymentMethod   orders.PaymentMethod
	Customer        *orders.Customer
}

// Outcome is the result of one checkout or resubmission. SyncErr and PersistErr are
// informational; the order is usable either way.
type Outcome struct {
	Order      orders.Order
	SyncErr    error
	PersistErr error
}

func (o Outcome) Synced() bool {
	return o.Order.Synced()
}

type Service struct {
	factory   *orders.Factory
	queue     *orders.Queue
	submitter Submitter
	ledger    Ledger
	metrics   MetricsRecorder
	timeout   time.Duration
	logger    *zap.Logger
}

func NewService(factory *orders.Factory, queue *orders.Queue, submitter Submitter, ledger Ledger, metrics MetricsRecorder, timeout time.Duration, logger *zap.Logger) *Service {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{
		factory:   factory,
		queue:     queue,
		submitter: submitter,
		ledger:    ledger,
		metrics:   metrics,
		timeout:   timeout,
		logger:    logging.OrNop(logger),
	}
}

// Create builds an order from the cart and appends it to the local queue. A validation
// failure returns no order. A reference that stays taken after maxRefAttempts returns
// orders.ErrDuplicateOrder and no order. Any other queue failure is returned alongside
// the in-memory order, which stays usable.
func (s *Service) Create(ctx context.Context, c *cart.Store, req Request) (orders.Order, error) {
	o, err := s.factory.CreateOrder(c.Items(), req.ShippingAddress, req.PaymentMethod)
	if err != nil {
		return orders.Order{}, err
	}
	if req.Customer != nil {
		o = o.WithCustomer(*req.Customer)
	}

	for attempt := 1; ; attempt++ {
		err = s.queue.Append(ctx, o)
		if !errors.Is(err, orders.ErrDuplicateOrder) {
			break
		}
		if attempt == maxRefAttempts {
			s.logger.Error("no free order reference", zap.String("order_ref", o.OrderRef), zap.Int("attempts", attempt))
			return orders.Order{}, err
		}
		s.logger.Warn("order reference taken, reissuing", zap.String("order_ref", o.OrderRef))
		o = s.factory.Rekey(o)
	}
	if err != nil {
		s.logger.Error("order not queued locally", zap.String("order_ref", o.OrderRef), zap.Error(err))
		s.count(ctx, aws.MetricOrdersPersistFailed, o)
		return o, err
	}
	s.logger.Info("order created",
		zap.String("order_ref", o.OrderRef),
		zap.String("payment_method", string(o.PaymentMethod)),
		zap.String("total", o.Total.StringFixed(2)),
	)
	return o, nil
}

// Submit sends the order to the remote service once and records the result locally.
// Once started it runs to completion even if ctx is cancelled; only the submission
// timeout bounds it.
func (s *Service) Submit(ctx context.Context, o orders.Order) Outcome {
	ctx = context.WithoutCancel(ctx)
	out := Outcome{Order: o}

	if err := s.ledger.Begin(ctx, o.OrderRef); err != nil {
		if errors.Is(err, idempotency.ErrSubmissionInFlight) || errors.Is(err, idempotency.ErrAlreadySubmitted) {
			out.SyncErr = err
			return out
		}
		// the remote call carries the order ref as idempotency key, so going ahead is safe
		s.logger.Warn("submission ledger unavailable", zap.String("order_ref", o.OrderRef), zap.Error(err))
	}

	subCtx, cancel := context.WithTimeout(ctx, s.timeout)
	remoteID, err := s.submitter.Submit(subCtx, o)
	cancel()

	if err != nil {
		out.SyncErr = err
		s.logger.Warn("order saved locally, remote sync failed",
			zap.String("order_ref", o.OrderRef),
			zap.Bool("transient", remote.IsTransient(err)),
			zap.Error(err),
		)
		s.count(ctx, aws.MetricOrdersSyncFailed, o)
		if lerr := s.ledger.MarkFailed(ctx, o.OrderRef, err.Error()); lerr != nil {
			s.logger.Warn("ledger mark failed", zap.String("order_ref", o.OrderRef), zap.Error(lerr))
		}
	} else {
		s.count(ctx, aws.MetricOrdersSubmitted, o)
		if lerr := s.ledger.MarkDone(ctx, o.OrderRef, remoteID); lerr != nil {
			s.logger.Warn("ledger mark done", zap.String("order_ref", o.OrderRef), zap.Error(lerr))
		}
	}

	out.Order, out.PersistErr = s.record(ctx, o, remoteID)
	if out.PersistErr != nil {
		s.count(ctx, aws.MetricOrdersPersistFailed, o)
	}
	return out
}

// record attaches the remote id (if any) and moves the order to pending_confirmation,
// unless it was cancelled while the submission was running.
func (s *Service) record(ctx context.Context, o orders.Order, remoteID string) (orders.Order, error) {
	o = orders.Patch{Status: orders.StatusPendingConfirmation, RemoteID: remoteID}.Apply(o)

	if remoteID != "" {
		if _, err := s.queue.Update(ctx, o.OrderRef, orders.Patch{RemoteID: remoteID}); err != nil {
			s.logger.Error("remote id not recorded", zap.String("order_ref", o.OrderRef), zap.Error(err))
			return o, err
		}
	}

	stored, err := s.queue.Transition(ctx, o.OrderRef, openStatuses, orders.StatusPendingConfirmation)
	switch {
	case err == nil:
		return stored, nil
	case errors.Is(err, orders.ErrOrderNotFound):
		// the order never made it into the queue; keep the in-memory copy
		return o, nil
	case errors.Is(err, orders.ErrStatusMismatch):
		s.logger.Info("order status moved during submission", zap.String("order_ref", o.OrderRef), zap.String("status", string(stored.Status)))
		if remoteID != "" && stored.Status == orders.StatusCancelled {
			// cancelled locally before the remote id existed
			s.cancelRemote(ctx, o.OrderRef, remoteID)
		}
		return stored, nil
	default:
		s.logger.Error("order status not recorded", zap.String("order_ref", o.OrderRef), zap.Error(err))
		return o, err
	}
}

// PlaceOrder runs the whole checkout. A validation failure or a reference collision is
// returned as an error and leaves the cart alone; other storage and sync problems are
// reported on the outcome. The cart is cleared once the order exists.
func (s *Service) PlaceOrder(ctx context.Context, c *cart.Store, req Request) (*Outcome, error) {
	o, err := s.Create(ctx, c, req)
	var ve *orders.ValidationError
	if errors.As(err, &ve) || errors.Is(err, orders.ErrDuplicateOrder) {
		return nil, err
	}
	c.Clear()

	out := s.Submit(ctx, o)
	if err != nil && out.PersistErr == nil {
		out.PersistErr = err
	}
	return &out, nil
}

// Retry resubmits an order that has no remote id yet.
func (s *Service) Retry(ctx context.Context, orderRef string) (*Outcome, error) {
	o, err := s.queue.Get(ctx, orderRef)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, orders.ErrOrderNotFound
	}
	if o.Synced() {
		return nil, fmt.Errorf("retry %s: %w", orderRef, idempotency.ErrAlreadySubmitted)
	}
	if o.Status.Terminal() {
		return nil, fmt.Errorf("retry %s in status %s: %w", orderRef, o.Status, ErrNotRetryable)
	}

	out := s.Submit(ctx, *o)
	return &out, nil
}

// Cancel cancels an order that has not been confirmed yet. A synced order is also
// cancelled remotely when the transport supports it; a remote failure is only logged.
func (s *Service) Cancel(ctx context.Context, orderRef string) (orders.Order, error) {
	o, err := s.queue.Transition(ctx, orderRef, openStatuses, orders.StatusCancelled)
	if err != nil {
		return o, err
	}
	s.logger.Info("order cancelled", zap.String("order_ref", orderRef))

	if o.Synced() {
		s.cancelRemote(ctx, orderRef, o.RemoteID)
	}
	return o, nil
}

// cancelRemote is best effort: a missing capability or a remote failure is only logged.
func (s *Service) cancelRemote(ctx context.Context, orderRef, remoteID string) {
	canceller, ok := s.submitter.(remote.Canceller)
	if !ok {
		return
	}
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	if err := canceller.CancelOrder(cctx, remoteID); err != nil {
		s.logger.Warn("remote cancel failed", zap.String("order_ref", orderRef), zap.String("remote_id", remoteID), zap.Error(err))
	}
}

// Get returns one order, or orders.ErrOrderNotFound.
func (s *Service) Get(ctx context.Context, orderRef string) (orders.Order, error) {
	o, err := s.queue.Get(ctx, orderRef)
	if err != nil {
		return orders.Order{}, err
	}
	if o == nil {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return *o, nil
}

func (s *Service) count(ctx context.Context, name string, o orders.Order) {
	if err := s.metrics.Count(ctx, name, string(o.PaymentMethod)); err != nil {
		s.logger.Debug("metric not published", zap.String("metric", name), zap.Error(err))
	}
}
