package idempotency

import (
	"context"
	"sync"
	"time"
)

// Guard is the in-process ledger used when a single API instance owns the queue.
type Guard struct {
	mu      sync.Mutex
	entries map[string]*Record
	lease   time.Duration
	nowFunc func() time.Time
}

func NewGuard() *Guard {
	return &Guard{
		entries: make(map[string]*Record),
		lease:   DefaultLease,
		nowFunc: time.Now,
	}
}

func (g *Guard) Begin(ctx context.Context, orderRef string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.nowFunc()
	existing := g.entries[orderRef]
	if !beginAllowed(existing, now, g.lease) {
		return refusal(existing)
	}
	g.entries[orderRef] = &Record{
		OrderRef:  orderRef,
		Status:    StatusInProgress,
		StartedAt: now.Unix(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

func (g *Guard) MarkDone(ctx context.Context, orderRef, remoteID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec := g.entry(orderRef)
	rec.Status = StatusDone
	rec.RemoteID = remoteID
	rec.UpdatedAt = g.nowFunc()
	return nil
}

func (g *Guard) MarkFailed(ctx context.Context, orderRef, note string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec := g.entry(orderRef)
	rec.Status = StatusFailed
	rec.Note = note
	rec.UpdatedAt = g.nowFunc()
	return nil
}

// Get returns a copy of the entry, or nil.
func (g *Guard) Get(ctx context.Context, orderRef string) (*Record, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.entries[orderRef]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (g *Guard) entry(orderRef string) *Record {
	rec, ok := g.entries[orderRef]
	if !ok {
		rec = &Record{OrderRef: orderRef, CreatedAt: g.nowFunc()}
		g.entries[orderRef] = rec
	}
	return rec
}
