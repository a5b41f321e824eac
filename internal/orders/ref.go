package orders

import (
	"fmt"
	"sync"
	"time"
)

// RefGenerator issues human-readable order references of the form ORD-XXXXXXXX,
// the last eight digits of the millisecond clock.
//
// Uniqueness is best effort: references never repeat within one process (the clock is
// bumped when it has not advanced), but two devices can collide and the eight-digit
// window wraps roughly every 27.7 hours.
type RefGenerator struct {
	mu      sync.Mutex
	nowFunc func() time.Time
	last    int64
}

func NewRefGenerator(now func() time.Time) *RefGenerator {
	if now == nil {
		now = time.Now
	}
	return &RefGenerator{nowFunc: now}
}

func (g *RefGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.nowFunc().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return fmt.Sprintf("ORD-%08d", ms%100_000_000)
}
