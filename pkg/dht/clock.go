package dht

import (
	"time"
)

// Clock is a monotonic microsecond time source.
type Clock interface {
	NowMicros() uint64
	DelayMicros(us uint32)
}

// spinLimit is the longest delay that busy-waits instead of sleeping.
const spinLimit = time.Millisecond

type monotonicClock struct {
	start time.Time
}

// NewMonotonicClock returns a Clock backed by the runtime monotonic clock.
func NewMonotonicClock() Clock {
	return monotonicClock{start: time.Now()}
}

func (c monotonicClock) NowMicros() uint64 {
	return uint64(time.Since(c.start) / time.Microsecond)
}

func (c monotonicClock) DelayMicros(us uint32) {
	d := time.Duration(us) * time.Microsecond
	if d >= spinLimit {
		time.Sleep(d)
		return
	}
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
	}
}
