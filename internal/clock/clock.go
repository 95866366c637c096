// Package clock provides the write timestamps stamped on items.
package clock

import (
	"sync"
	"time"
)

// Layout is the timestamp format for createdAt/updatedAt. Fixed-width
// millisecond precision keeps lexical and chronological order identical.
const Layout = "2006-01-02T15:04:05.000Z"

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// Monotonic wraps a Clock so successive readings never go backwards,
// even if the wall clock is stepped.
type Monotonic struct {
	mu   sync.Mutex
	src  Clock
	last time.Time
}

// NewMonotonic wraps src. A nil src uses the system clock.
func NewMonotonic(src Clock) *Monotonic {
	if src == nil {
		src = ClockFunc(time.Now)
	}
	return &Monotonic{src: src}
}

// Now returns max(previous reading, src.Now()) truncated to milliseconds in UTC.
func (m *Monotonic) Now() time.Time {
	now := m.src.Now().UTC().Truncate(time.Millisecond)

	m.mu.Lock()
	defer m.mu.Unlock()
	if now.Before(m.last) {
		now = m.last
	}
	m.last = now
	return now
}

// Format renders t with Layout.
func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

// Parse parses a timestamp written with Layout.
func Parse(s string) (time.Time, error) {
	return time.Parse(Layout, s)
}
