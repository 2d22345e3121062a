package config

import (
	"sync"
)

// IntSetting is a live integer setting with change subscriptions
type IntSetting struct {
	name string

	// notifyMu serializes Set so subscribers observe changes in order.
	notifyMu sync.Mutex

	mu     sync.RWMutex
	value  int
	nextID int
	subs   map[int]func(old, new int)
}

// NewIntSetting creates a setting holding initial
func NewIntSetting(name string, initial int) *IntSetting {
	return &IntSetting{
		name:  name,
		value: initial,
		subs:  make(map[int]func(old, new int)),
	}
}

// Name returns the setting key
func (s *IntSetting) Name() string { return s.name }

// Get returns the current value
func (s *IntSetting) Get() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set stores v and notifies subscribers if it differs from the current value
func (s *IntSetting) Set(v int) bool {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	old := s.value
	if old == v {
		s.mu.Unlock()
		return false
	}
	s.value = v
	subs := make([]func(old, new int), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(old, v)
	}
	return true
}

// Subscribe registers fn for future changes and returns an unsubscribe func
func (s *IntSetting) Subscribe(fn func(old, new int)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}
