package harness

import "time"

// Clock supplies wall-clock timestamps for runs that spawn nothing.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the system time.
type SystemClock struct{}

// Now returns time.Now.
func (SystemClock) Now() time.Time {
	return time.Now()
}
