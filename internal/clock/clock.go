// Package clock abstracts time for scheduled callbacks and cancellable delays,
// so that undo windows and retry backoff can be driven deterministically in tests.
package clock

import (
	"sync"
	"time"
)

// Timer is a cancellable scheduled callback.
type Timer interface {
	// Stop prevents the callback from firing. It reports whether the call
	// stopped the timer before it fired.
	Stop() bool
}

// Clock provides the time operations the orchestration core depends on.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
	Sleep(d time.Duration)
}

// System returns a Clock backed by the real time package.
func System() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Mock is a manually advanced Clock for tests.
type Mock struct {
	mu      sync.Mutex
	current time.Time
	timers  []*mockTimer
}

// NewMock creates a Mock set to the given initial time.
func NewMock(initial time.Time) *Mock {
	return &Mock{current: initial}
}

type mockTimer struct {
	clock   *Mock
	fireAt  time.Time
	f       func()
	stopped bool
	fired   bool
}

// Stop prevents the timer's callback from firing.
func (t *mockTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Now returns the current mock time.
func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Sleep is a no-op in the mock clock.
func (m *Mock) Sleep(d time.Duration) {}

// AfterFunc schedules f to run once the mock time is advanced past d.
func (m *Mock) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := &mockTimer{
		clock:  m,
		fireAt: m.current.Add(d),
		f:      f,
	}
	m.timers = append(m.timers, t)
	return t
}

// Advance moves the mock time forward and fires any due timers. Callbacks run
// synchronously on the calling goroutine, outside the clock lock.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	m.current = m.current.Add(d)
	now := m.current

	var due []*mockTimer
	var remaining []*mockTimer
	for _, t := range m.timers {
		switch {
		case t.stopped:
			// drop
		case !now.Before(t.fireAt):
			t.fired = true
			due = append(due, t)
		default:
			remaining = append(remaining, t)
		}
	}
	m.timers = remaining
	m.mu.Unlock()

	for _, t := range due {
		if t.f != nil {
			t.f()
		}
	}
}
