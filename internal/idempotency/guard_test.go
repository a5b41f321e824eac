package idempotency

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestGuard_RefusesConcurrentBegin(t *testing.T) {
	g := NewGuard()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := g.Begin(ctx, "ORD-00000010"); err == nil {
				mu.Lock()
				granted++
				mu.Unlock()
			} else if !errors.Is(err, ErrSubmissionInFlight) {
				t.Errorf("unexpected error %v", err)
			}
		}()
	}
	wg.Wait()
	if granted != 1 {
		t.Fatalf("granted = %d, want 1", granted)
	}
}

func TestGuard_Lifecycle(t *testing.T) {
	g := NewGuard()
	ctx := context.Background()
	ref := "ORD-00000011"

	if err := g.Begin(ctx, ref); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	_ = g.MarkFailed(ctx, ref, "timeout")
	if err := g.Begin(ctx, ref); err != nil {
		t.Fatalf("Begin after failure: %v", err)
	}
	_ = g.MarkDone(ctx, ref, "77")
	if err := g.Begin(ctx, ref); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}
	rec, _ := g.Get(ctx, ref)
	if rec.RemoteID != "77" || rec.Status != StatusDone {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestGuard_LeaseExpiry(t *testing.T) {
	g := NewGuard()
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	g.nowFunc = func() time.Time { return now }
	ctx := context.Background()

	_ = g.Begin(ctx, "ORD-00000012")
	g.nowFunc = func() time.Time { return now.Add(DefaultLease + time.Second) }
	if err := g.Begin(ctx, "ORD-00000012"); err != nil {
		t.Fatalf("expected stale attempt to be replaceable: %v", err)
	}
}
