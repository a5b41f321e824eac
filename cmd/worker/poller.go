package main

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-storefront-orderflow/internal/orders"
)

// StatusPoller is the part of the tracker the worker drives.
type StatusPoller interface {
	PollOnce(ctx context.Context) ([]orders.Order, error)
	Poll(ctx context.Context, interval time.Duration, onChange func([]orders.Order))
}

// Worker reconciles local order statuses with the remote service.
type Worker struct {
	poller   StatusPoller
	interval time.Duration
	logger   *zap.Logger
}

func NewWorker(p StatusPoller, interval time.Duration, logger *zap.Logger) *Worker {
	return &Worker{poller: p, interval: interval, logger: logger}
}

// Handle runs one reconciliation round for a scheduled (EventBridge) invocation.
func (w *Worker) Handle(ctx context.Context, ev events.CloudWatchEvent) error {
	w.logger.Info("scheduled status poll", zap.String("event_id", ev.ID), zap.Time("event_time", ev.Time))

	changed, err := w.poller.PollOnce(ctx)
	w.report(changed)
	if err != nil {
		// returning the error makes the failed round visible in lambda metrics
		return fmt.Errorf("status poll: %w", err)
	}
	return nil
}

// Run polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("status poller started", zap.Duration("interval", w.interval))
	w.poller.Poll(ctx, w.interval, w.report)
}

func (w *Worker) report(changed []orders.Order) {
	for _, o := range changed {
		w.logger.Info("order status updated",
			zap.String("order_ref", o.OrderRef),
			zap.String("remote_id", o.RemoteID),
			zap.String("status", string(o.Status)),
		)
	}
}
