package clock

import (
	"sort"
	"sync"
	"time"
)

// Mock is a Clock whose time only advances when Add is called. Pending
// AfterFunc callbacks fire synchronously from Add, in deadline order, which
// makes timer-driven code deterministic in tests.
type Mock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*mockTimer
}

// NewMock creates a new Mock clock with the zero time as its epoch.
func NewMock() *Mock {
	return &Mock{}
}

var _ Clock = &Mock{}

func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.now
}

func (m *Mock) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := &mockTimer{
		mock:     m,
		deadline: m.now.Add(d),
		f:        f,
	}

	m.timers = append(m.timers, t)

	return t
}

// Add advances the clock by d, firing every timer whose deadline falls
// within the advance. The clock steps to each deadline before running its
// callback, so a callback that schedules a new timer inside the window sees
// it fire in the same Add. Callbacks run without the clock lock held.
func (m *Mock) Add(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		t := m.nextExpired(target)
		if t == nil {
			break
		}

		t.f()
	}

	m.mu.Lock()
	m.now = target
	m.mu.Unlock()
}

func (m *Mock) nextExpired(target time.Time) *mockTimer {
	m.mu.Lock()
	defer m.mu.Unlock()

	sort.Slice(m.timers, func(i, j int) bool {
		return m.timers[i].deadline.Before(m.timers[j].deadline)
	})

	for i, t := range m.timers {
		if !t.deadline.After(target) {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)

			if t.deadline.After(m.now) {
				m.now = t.deadline
			}

			return t
		}
	}

	return nil
}

func (m *Mock) remove(t *mockTimer) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, pending := range m.timers {
		if pending == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return true
		}
	}

	return false
}

type mockTimer struct {
	mock     *Mock
	deadline time.Time
	f        func()
}

func (t *mockTimer) Stop() bool {
	return t.mock.remove(t)
}
