package cluster

import (
	"context"

	"github.com/cuemby/steward/pkg/storage"
)

// Local serves the same calls as Node for a standalone node: it is the
// only member, always caught up, and writes straight to its store.
type Local struct {
	nodeID string
	storage.Store
}

// NewLocal wraps store for node nodeID
func NewLocal(nodeID string, store storage.Store) *Local {
	return &Local{nodeID: nodeID, Store: store}
}

// NodeID returns the local node id
func (l *Local) NodeID() string { return l.nodeID }

// Members returns this node alone, as leader
func (l *Local) Members() ([]Member, error) {
	return []Member{{ID: l.nodeID, Leader: true}}, nil
}

// Barrier has nothing to wait for
func (l *Local) Barrier(ctx context.Context) error {
	return ctx.Err()
}
