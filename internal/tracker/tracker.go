// Package tracker presents the local order queue and keeps it in step with status
// changes made on the remote side.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/imrishuroy/go-storefront-orderflow/internal/logging"
	"github.com/imrishuroy/go-storefront-orderflow/internal/orders"
	"github.com/imrishuroy/go-storefront-orderflow/internal/remote"
)

// DefaultInterval is the polling period used when none is configured.
const DefaultInterval = 10 * time.Second

// View is an order together with how its status is displayed.
type View struct {
	orders.Order
	Display Display `json:"display"`
}

type Tracker struct {
	queue   *orders.Queue
	fetcher remote.StatusFetcher
	logger  *zap.Logger
}

// New returns a Tracker. fetcher may be nil, in which case polling is disabled.
func New(queue *orders.Queue, fetcher remote.StatusFetcher, logger *zap.Logger) *Tracker {
	return &Tracker{
		queue:   queue,
		fetcher: fetcher,
		logger:  logging.OrNop(logger),
	}
}

// Refresh re-reads the local queue, newest first. It never contacts the remote service.
func (t *Tracker) Refresh(ctx context.Context) ([]View, error) {
	list, err := t.queue.List(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]View, 0, len(list))
	for _, o := range list {
		views = append(views, View{Order: o, Display: Describe(o.Status)})
	}
	return views, nil
}

// Summary counts views per category; every category is present.
func Summary(views []View) map[Category]int {
	out := make(map[Category]int, len(Categories()))
	for _, c := range Categories() {
		out[c] = 0
	}
	for _, v := range views {
		out[v.Display.Category]++
	}
	return out
}

// Polling reports whether a remote status source is wired.
func (t *Tracker) Polling() bool {
	return t.fetcher != nil
}

// PollOnce asks the remote service for the status of every synced, unfinished order and
// stores the ones that changed. Cancelling ctx stops further lookups, but a write that
// has started always completes. Lookup failures are joined into the returned error.
func (t *Tracker) PollOnce(ctx context.Context) ([]orders.Order, error) {
	if t.fetcher == nil {
		return nil, nil
	}
	list, err := t.queue.List(ctx)
	if err != nil {
		return nil, err
	}

	var changed []orders.Order
	var errs []error
	for _, o := range list {
		if ctx.Err() != nil {
			break
		}
		if !o.Synced() || o.Status.Terminal() {
			continue
		}

		status, err := t.fetcher.FetchStatus(ctx, o.RemoteID)
		if err != nil {
			errs = append(errs, fmt.Errorf("order %s: %w", o.OrderRef, err))
			continue
		}
		if !status.Valid() {
			t.logger.Warn("remote reported unknown status", zap.String("order_ref", o.OrderRef), zap.String("status", string(status)))
			continue
		}
		if status == o.Status {
			continue
		}

		// only from the status the remote answer was based on; a local cancel since List wins
		_, err = t.queue.Transition(context.WithoutCancel(ctx), o.OrderRef, []orders.Status{o.Status}, status)
		switch {
		case errors.Is(err, orders.ErrOrderNotFound), errors.Is(err, orders.ErrStatusMismatch):
			t.logger.Debug("order moved locally, remote status not applied", zap.String("order_ref", o.OrderRef))
			continue
		case err != nil:
			errs = append(errs, err)
			continue
		}
		t.logger.Info("order status changed",
			zap.String("order_ref", o.OrderRef),
			zap.String("from", string(o.Status)),
			zap.String("to", string(status)),
		)
		o.Status = status
		changed = append(changed, o)
	}
	return changed, errors.Join(errs...)
}

// Poll runs PollOnce every interval until ctx is cancelled. onChange, if set, receives
// the orders whose status changed in a round.
func (t *Tracker) Poll(ctx context.Context, interval time.Duration, onChange func([]orders.Order)) {
	if t.fetcher == nil {
		t.logger.Info("status polling disabled: no remote status source")
		return
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("status polling stopped")
			return
		case <-ticker.C:
			changed, err := t.PollOnce(ctx)
			if err != nil {
				t.logger.Warn("status poll incomplete", zap.Error(err))
			}
			if len(changed) > 0 && onChange != nil {
				onChange(changed)
			}
		}
	}
}
