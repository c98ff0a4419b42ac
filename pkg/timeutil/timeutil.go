package timeutil

import (
	"sync"
	"time"
)

var (
	mu    sync.RWMutex
	clock = time.Now
)

// Now returns the current time from the active clock.
func Now() time.Time {
	mu.RLock()
	defer mu.RUnlock()
	return clock()
}

// SetClock swaps the clock used by Now and returns a restore func.
func SetClock(fn func() time.Time) func() {
	mu.Lock()
	prev := clock
	clock = fn
	mu.Unlock()
	return func() {
		mu.Lock()
		clock = prev
		mu.Unlock()
	}
}

// Fixed returns a clock that always reports t.
func Fixed(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
