package logstore

import "time"

// Clock supplies wall time for cache expiry and entry timestamps.
// Tests inject a fake to control TTL expiry.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}
