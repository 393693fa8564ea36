package types

import "time"

type Clock interface {
	// CurrentTimeMillis is monotonic non-decreasing, not necessarily wall clock accurate.
	CurrentTimeMillis() int64
}

type SystemClock struct {
	start     time.Time
	startUnix int64
}

func NewSystemClock() *SystemClock {
	now := time.Now()
	return &SystemClock{start: now, startUnix: now.UnixNano() / int64(time.Millisecond)}
}

func (c *SystemClock) CurrentTimeMillis() int64 {
	return c.startUnix + int64(time.Since(c.start)/time.Millisecond)
}
