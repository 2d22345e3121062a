package cluster

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/cuemby/steward/pkg/storage"
	"github.com/hashicorp/raft"
)

// Command ops
const (
	OpIndex  = "index"
	OpDelete = "delete"
)

// Command represents a metadata change in the Raft log
type Command struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"data"`
}

type deleteRequest struct {
	Index string `json:"index"`
	ID    string `json:"id"`
}

// FSM applies committed metadata commands to the local document store
type FSM struct {
	mu    sync.RWMutex
	store storage.Store
}

// NewFSM creates a new FSM instance
func NewFSM(store storage.Store) *FSM {
	return &FSM{store: store}
}

// Apply applies a Raft log entry to the FSM. It returns the
// *storage.IndexResponse of an index command, nil for a delete, or an error.
func (f *FSM) Apply(entry *raft.Log) interface{} {
	var cmd Command
	if err := json.Unmarshal(entry.Data, &cmd); err != nil {
		return fmt.Errorf("failed to unmarshal command: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// Log application cannot be cancelled once committed.
	ctx := context.Background()

	switch cmd.Op {
	case OpIndex:
		var req storage.IndexRequest
		if err := json.Unmarshal(cmd.Data, &req); err != nil {
			return err
		}
		resp, err := f.store.Index(ctx, &req)
		if err != nil {
			return err
		}
		return resp

	case OpDelete:
		var req deleteRequest
		if err := json.Unmarshal(cmd.Data, &req); err != nil {
			return err
		}
		return f.store.Delete(ctx, req.Index, req.ID)

	default:
		return fmt.Errorf("unknown command: %s", cmd.Op)
	}
}

// Snapshot captures every document in the store
func (f *FSM) Snapshot() (raft.FSMSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	dump, err := f.store.Dump()
	if err != nil {
		return nil, fmt.Errorf("failed to dump store: %w", err)
	}
	return &Snapshot{Indices: dump}, nil
}

// Restore replaces the store contents with a snapshot
func (f *FSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()

	var snapshot Snapshot
	if err := json.NewDecoder(rc).Decode(&snapshot); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.store.Load(snapshot.Indices); err != nil {
		return fmt.Errorf("failed to restore store: %w", err)
	}
	return nil
}

// Snapshot is a point-in-time copy of the metadata store, index → id → source
type Snapshot struct {
	Indices map[string]map[string]json.RawMessage `json:"indices"`
}

// Persist writes the snapshot to the given SnapshotSink
func (s *Snapshot) Persist(sink raft.SnapshotSink) error {
	err := func() error {
		if err := json.NewEncoder(sink).Encode(s); err != nil {
			return err
		}
		return sink.Close()
	}()

	if err != nil {
		sink.Cancel()
	}

	return err
}

// Release releases the snapshot resources
func (s *Snapshot) Release() {}
