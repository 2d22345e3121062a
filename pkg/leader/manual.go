package leader

// Manual is a Source driven by explicit calls. Standalone nodes acquire it
// once at start-up.
type Manual struct {
	*broadcaster
}

// NewManual creates a Manual source in the not-coordinator state
func NewManual() *Manual {
	return &Manual{broadcaster: newBroadcaster()}
}

// Acquire makes this node the coordinator. It reports false if it already was.
func (m *Manual) Acquire() bool { return m.set(true) }

// Lose drops the coordinator role. It reports false if the node did not hold it.
func (m *Manual) Lose() bool { return m.set(false) }
