package testutils

import (
	"sync/atomic"
	"time"
)

// ManualClock only moves when told to.
type ManualClock struct {
	millis atomic.Int64
}

func NewManualClock(startMillis int64) *ManualClock {
	c := &ManualClock{}
	c.millis.Store(startMillis)
	return c
}

func (c *ManualClock) CurrentTimeMillis() int64 {
	return c.millis.Load()
}

func (c *ManualClock) Advance(d time.Duration) {
	c.millis.Add(d.Milliseconds())
}
