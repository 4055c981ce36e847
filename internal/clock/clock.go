package clock

import (
	"sync"
	"time"

	"go.uber.org/fx"
)

// Clock stamps created_at, updated_at and processed_at columns.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FakeClock returns a pinned instant so projected rows are deterministic in tests.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

var Module = fx.Module("clock",
	fx.Provide(func() Clock { return SystemClock{} }),
)
