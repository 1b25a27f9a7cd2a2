package dht

// DefaultTickUs is the polling resolution used by awaitLevel.
const DefaultTickUs = 2

// awaitLevel polls the line every tick microseconds until it reads expected.
// It reports the elapsed time, or false once timeout has passed without a
// match.
func awaitLevel(l *Line, c Clock, tick, timeout uint32, expected bool) (uint32, bool) {
	start := c.NowMicros()
	for {
		c.DelayMicros(tick)
		elapsed := uint32(c.NowMicros() - start)
		if l.ReadLevel() == expected {
			return elapsed, true
		}
		if elapsed >= timeout {
			return elapsed, false
		}
	}
}
