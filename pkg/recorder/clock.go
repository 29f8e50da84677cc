package recorder

import (
	"sync"
	"time"
)

// Clock supplies the current time for timestamps and file names
type Clock interface {
	Now() time.Time
}

// RealClock is the system clock
type RealClock struct{}

// Now returns the current system time
func (RealClock) Now() time.Time { return time.Now() }

// MockClock is a manually advanced clock for tests
type MockClock struct {
	mu      sync.Mutex
	current time.Time
}

// NewMockClock creates a MockClock set to t, or a fixed date when t is zero
func NewMockClock(t time.Time) *MockClock {
	if t.IsZero() {
		t = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return &MockClock{current: t}
}

func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Advance moves the clock forward by d
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.current.Add(d)
}
