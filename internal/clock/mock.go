package clock

import (
	"sync"
	"time"
)

// Mock is a settable clock for tests
type Mock struct {
	mu  sync.RWMutex
	now time.Time
}

// NewMock returns a mock clock frozen at the given time
func NewMock(now time.Time) *Mock {
	return &Mock{now: now.UTC()}
}

func (m *Mock) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

// Set moves the mock clock to the given time
func (m *Mock) Set(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now.UTC()
}

// Advance moves the mock clock forward by d
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// AdvanceDays moves the mock clock forward by whole days
func (m *Mock) AdvanceDays(n int) {
	m.Advance(time.Duration(n) * 24 * time.Hour)
}
