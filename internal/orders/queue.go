package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/imrishuroy/go-storefront-orderflow/internal/logging"
	"github.com/imrishuroy/go-storefront-orderflow/internal/storage"
)

// Queue is the durable, device-local list of every order created here.
//
// Each mutation reads the whole JSON array from the slot, applies the change and
// writes the whole array back, under a per-process mutex. This is fine for tens to low
// hundreds of orders; there is no indexing and no locking across processes.
type Queue struct {
	mu     sync.Mutex
	slot   storage.Slot
	logger *zap.Logger
}

func NewQueue(slot storage.Slot, logger *zap.Logger) *Queue {
	return &Queue{
		slot:   slot,
		logger: logging.OrNop(logger),
	}
}

// Append adds a new order. It returns ErrDuplicateOrder if the reference is already queued.
func (q *Queue) Append(ctx context.Context, o Order) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	list, err := q.load(ctx)
	if err != nil {
		return &PersistenceError{Op: "append", Err: err}
	}
	if indexOf(list, o.OrderRef) >= 0 {
		return fmt.Errorf("append %s: %w", o.OrderRef, ErrDuplicateOrder)
	}
	list = append(list, o)
	if err := q.store(ctx, list); err != nil {
		return &PersistenceError{Op: "append", Err: err}
	}
	return nil
}

// Update replaces the order with the patched version. A missing reference is a silent
// no-op and reports found=false.
func (q *Queue) Update(ctx context.Context, orderRef string, p Patch) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	list, err := q.load(ctx)
	if err != nil {
		return false, &PersistenceError{Op: "update", Err: err}
	}
	i := indexOf(list, orderRef)
	if i < 0 {
		q.logger.Debug("update of unknown order ignored", zap.String("order_ref", orderRef))
		return false, nil
	}
	list[i] = p.Apply(list[i])
	if err := q.store(ctx, list); err != nil {
		return true, &PersistenceError{Op: "update", Err: err}
	}
	return true, nil
}

// Transition moves an order to status to, only if its current status is one of from.
func (q *Queue) Transition(ctx context.Context, orderRef string, from []Status, to Status) (Order, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	list, err := q.load(ctx)
	if err != nil {
		return Order{}, &PersistenceError{Op: "transition", Err: err}
	}
	i := indexOf(list, orderRef)
	if i < 0 {
		return Order{}, ErrOrderNotFound
	}
	if !slices.Contains(from, list[i].Status) {
		return list[i], ErrStatusMismatch
	}
	list[i].Status = to
	if err := q.store(ctx, list); err != nil {
		return list[i], &PersistenceError{Op: "transition", Err: err}
	}
	return list[i], nil
}

// Get returns the order with the reference, or (nil, nil) when there is none.
func (q *Queue) Get(ctx context.Context, orderRef string) (*Order, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	list, err := q.load(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "get", Err: err}
	}
	i := indexOf(list, orderRef)
	if i < 0 {
		return nil, nil
	}
	o := list[i]
	return &o, nil
}

// List returns every order, newest first. Orders created in the same instant are
// ordered by reference, highest first.
func (q *Queue) List(ctx context.Context) ([]Order, error) {
	q.mu.Lock()
	list, err := q.load(ctx)
	q.mu.Unlock()
	if err != nil {
		return nil, &PersistenceError{Op: "list", Err: err}
	}

	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].OrderRef > list[j].OrderRef
	})
	return list, nil
}

func (q *Queue) load(ctx context.Context) ([]Order, error) {
	raw, err := q.slot.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("read slot: %w", err)
	}
	if len(raw) == 0 {
		return []Order{}, nil
	}
	var list []Order
	if err := json.Unmarshal(raw, &list); err != nil {
		// an unreadable slot must not take the app down; start over with an empty list
		q.logger.Warn("order slot is not decodable, treating as empty", zap.Error(err), zap.Int("bytes", len(raw)))
		return []Order{}, nil
	}
	if list == nil {
		list = []Order{}
	}
	return list, nil
}

func (q *Queue) store(ctx context.Context, list []Order) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("marshal orders: %w", err)
	}
	if err := q.slot.Write(ctx, raw); err != nil {
		return fmt.Errorf("write slot: %w", err)
	}
	return nil
}

func indexOf(list []Order, orderRef string) int {
	for i := range list {
		if list[i].OrderRef == orderRef {
			return i
		}
	}
	return -1
}
