// Package clock provides time abstraction for testing and production use.
// ETA countdowns, catalog expiry and retry delays all read time through it so
// tests can pin "now" and skip real waiting.
package clock

import (
	"sync"
	"time"
)

// Clock provides an abstraction for time operations.
// Use RealClock in production and MockClock in tests.
type Clock interface {
	// Now returns the current time
	Now() time.Time
	// NowUnixMilli returns the current time as Unix milliseconds
	NowUnixMilli() int64
	// NewTimer returns a timer that fires once after d
	NewTimer(d time.Duration) Timer
}

// Timer is the subset of *time.Timer the service relies on.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

// RealClock implements Clock using actual system time.
type RealClock struct{}

// Now returns the current system time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// NowUnixMilli returns the current time as Unix milliseconds.
func (RealClock) NowUnixMilli() int64 {
	return time.Now().UnixMilli()
}

// NewTimer wraps time.NewTimer.
func (RealClock) NewTimer(d time.Duration) Timer {
	return realTimer{t: time.NewTimer(d)}
}

type realTimer struct {
	t *time.Timer
}

func (r realTimer) C() <-chan time.Time { return r.t.C }
func (r realTimer) Stop() bool          { return r.t.Stop() }

// MockClock implements Clock and provides a controllable, thread-safe time for tests.
// Timers created from a MockClock fire immediately and advance the clock by
// their duration, so code that waits finishes instantly while still observing
// the elapsed time. Every requested wait is recorded.
type MockClock struct {
	currentTime time.Time
	waits       []time.Duration
	mu          sync.Mutex
}

// NewMockClock creates a new MockClock set to the specified time.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{currentTime: t}
}

// Now returns the mock clock's current time.
func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentTime
}

// NowUnixMilli returns the mock clock's current time as Unix milliseconds.
func (m *MockClock) NowUnixMilli() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentTime.UnixMilli()
}

// NewTimer records d, advances the clock by d and returns an already fired timer.
func (m *MockClock) NewTimer(d time.Duration) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waits = append(m.waits, d)
	m.currentTime = m.currentTime.Add(d)

	ch := make(chan time.Time, 1)
	ch <- m.currentTime
	return firedTimer{c: ch}
}

// Waits returns every duration passed to NewTimer, in order.
func (m *MockClock) Waits() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]time.Duration, len(m.waits))
	copy(out, m.waits)
	return out
}

// Set changes the mock clock's current time.
func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentTime = t
}

// Advance moves the mock clock by the specified duration.
// Use positive durations to move forward, negative to move backward.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentTime = m.currentTime.Add(d)
}

type firedTimer struct {
	c chan time.Time
}

func (f firedTimer) C() <-chan time.Time { return f.c }
func (f firedTimer) Stop() bool          { return false }
