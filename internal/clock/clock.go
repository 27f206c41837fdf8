// Package clock provides a monotonic time source that can be swapped for a
// manually advanced clock in tests.
package clock

import (
	"sync"
	"time"
)

// Clock supplies monotonic timestamps measured from an arbitrary epoch.
type Clock interface {
	Now() time.Duration
}

// Monotonic reads the wall clock relative to its creation time.
type Monotonic struct {
	epoch time.Time
}

// NewMonotonic returns a clock whose epoch is the moment of the call.
func NewMonotonic() *Monotonic {
	return &Monotonic{epoch: time.Now()}
}

// Now returns the elapsed time since the clock was created.
func (m *Monotonic) Now() time.Duration {
	return time.Since(m.epoch)
}

// Manual is a test clock advanced explicitly by the caller.
type Manual struct {
	mu  sync.Mutex
	now time.Duration
}

// NewManual returns a manual clock starting at the given offset.
func NewManual(start time.Duration) *Manual {
	return &Manual{now: start}
}

// Now returns the current manual time.
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.now
}

// Advance moves the clock forward by d. Negative deltas are ignored.
func (m *Manual) Advance(d time.Duration) {
	if d < 0 {
		return
	}

	m.mu.Lock()
	m.now += d
	m.mu.Unlock()
}

// Set jumps the clock to an absolute timestamp.
func (m *Manual) Set(t time.Duration) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}
