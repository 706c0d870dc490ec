// Package netmon tracks connectivity and tells subscribers about transitions.
// Subscribers get the current state immediately on subscribe and then one
// callback per edge; repeated identical states are filtered out.
package netmon

import (
	"sync"
)

type Callback func(online bool)

type Monitor struct {
	mu          sync.Mutex
	online      bool
	subscribers map[int]Callback
	nextID      int
}

// NewMonitor starts with the given state; the Source feeding SetOnline is
// responsible for the initial probe.
func NewMonitor(online bool) *Monitor {
	return &Monitor{
		online:      online,
		subscribers: make(map[int]Callback),
	}
}

// Online reports the current state synchronously.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe registers fn, invokes it immediately with the current state, and
// returns an unsubscribe func that is safe to call more than once.
func (m *Monitor) Subscribe(fn Callback) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subscribers[id] = fn
	current := m.online
	m.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subscribers, id)
			m.mu.Unlock()
		})
	}
}

// SetOnline feeds a host connectivity report into the monitor. Only actual
// transitions reach subscribers.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online

	callbacks := make([]Callback, 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		callbacks = append(callbacks, fn)
	}
	m.mu.Unlock()

	for _, fn := range callbacks {
		fn(online)
	}
}
