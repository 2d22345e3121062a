package leader

import (
	"sync"
)

// Listener is told when this node gains or loses the coordinator role.
// Callbacks for one source are delivered one at a time, in order.
type Listener interface {
	OnAcquired()
	OnLost()
}

// Source emits coordinator edges
type Source interface {
	// Subscribe registers l and returns a func that removes it. If the
	// node is already the coordinator, l.OnAcquired is called before
	// Subscribe returns.
	Subscribe(l Listener) func()
	IsLeader() bool
}

// broadcaster dedupes edges and fans them out to listeners
type broadcaster struct {
	// deliverMu keeps callbacks ordered across concurrent edges.
	deliverMu sync.Mutex

	mu        sync.Mutex
	leader    bool
	nextID    int
	listeners map[int]Listener
	order     []int
}

func newBroadcaster() *broadcaster {
	return &broadcaster{listeners: make(map[int]Listener)}
}

func (b *broadcaster) Subscribe(l Listener) func() {
	b.deliverMu.Lock()
	defer b.deliverMu.Unlock()

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = l
	b.order = append(b.order, id)
	leader := b.leader
	b.mu.Unlock()

	if leader {
		l.OnAcquired()
	}

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.listeners, id)
		for i, v := range b.order {
			if v == id {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
}

func (b *broadcaster) IsLeader() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.leader
}

// set records the new state and notifies listeners if it is an edge.
// It reports whether an edge was delivered.
func (b *broadcaster) set(leader bool) bool {
	b.deliverMu.Lock()
	defer b.deliverMu.Unlock()

	b.mu.Lock()
	if b.leader == leader {
		b.mu.Unlock()
		return false
	}
	b.leader = leader
	listeners := make([]Listener, 0, len(b.order))
	for _, id := range b.order {
		listeners = append(listeners, b.listeners[id])
	}
	b.mu.Unlock()

	for _, l := range listeners {
		if leader {
			l.OnAcquired()
		} else {
			l.OnLost()
		}
	}
	return true
}
