package watch

import (
	"slices"
	"sync"
)

// Manual is a Watcher that only probes when Tick is called. Tests use it to
// drive close detection without timers.
type Manual struct {
	mu      sync.Mutex
	next    int
	watches map[int]*manualWatch
}

type manualWatch struct {
	prober  Prober
	onClose func()
}

// NewManual creates an idle manual watcher
func NewManual() *Manual {
	return &Manual{watches: make(map[int]*manualWatch)}
}

func (m *Manual) Watch(p Prober, onClose func()) func() {
	m.mu.Lock()
	id := m.next
	m.next++
	m.watches[id] = &manualWatch{prober: p, onClose: onClose}
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.watches, id)
		m.mu.Unlock()
	}
}

// Tick probes every active watch once, in registration order, and fires onClose
// for the unreachable ones
func (m *Manual) Tick() {
	m.mu.Lock()
	ids := make([]int, 0, len(m.watches))
	for id := range m.watches {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	slices.Sort(ids)

	for _, id := range ids {
		m.mu.Lock()
		w, ok := m.watches[id]
		m.mu.Unlock()
		if !ok {
			continue
		}

		if w.prober.Probe() != Unreachable {
			continue
		}

		m.mu.Lock()
		delete(m.watches, id)
		m.mu.Unlock()

		w.onClose()
	}
}

// Active returns the number of watches still probing
func (m *Manual) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.watches)
}
