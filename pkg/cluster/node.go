package cluster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/cuemby/steward/pkg/log"
	"github.com/cuemby/steward/pkg/storage"
	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
	"github.com/rs/zerolog"
)

var (
	// ErrNotLeader is returned for writes issued on a follower
	ErrNotLeader = errors.New("not the raft leader")
	// ErrNotStarted is returned before Start succeeded
	ErrNotStarted = errors.New("raft not initialized")
)

const defaultApplyTimeout = 5 * time.Second

// Peer is another voter of the cluster
type Peer struct {
	ID      string
	Address string
}

// Config holds configuration for creating a Node
type Config struct {
	NodeID   string
	BindAddr string
	DataDir  string
	Peers    []Peer

	// InMemory keeps the raft log, stable store, snapshots and transport
	// in memory. The document store still lives in DataDir.
	InMemory bool
}

// Member is one voter as seen by this node
type Member struct {
	ID      string `json:"id"`
	Address string `json:"address"`
	Leader  bool   `json:"leader"`
}

// Node is a raft voter replicating the metadata document store
type Node struct {
	cfg    Config
	logger zerolog.Logger

	raft     *raft.Raft
	fsm      *FSM
	store    *storage.BoltStore
	notifyCh chan bool
	closers  []func() error
}

// NewNode opens the document store. Call Start to join raft.
func NewNode(cfg Config) (*Node, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store, err := storage.NewBoltStore(cfg.DataDir, &storage.BoltOptions{NoSync: cfg.InMemory})
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	return &Node{
		cfg:      cfg,
		logger:   log.WithComponent("cluster").With().Str("node_id", cfg.NodeID).Logger(),
		fsm:      NewFSM(store),
		store:    store,
		notifyCh: make(chan bool, 1),
	}, nil
}

func (n *Node) raftConfig() *raft.Config {
	config := raft.DefaultConfig()
	config.LocalID = raft.ServerID(n.cfg.NodeID)

	// Tuned for LAN failover in a few seconds
	config.HeartbeatTimeout = 500 * time.Millisecond
	config.ElectionTimeout = 500 * time.Millisecond
	config.CommitTimeout = 50 * time.Millisecond
	config.LeaderLeaseTimeout = 250 * time.Millisecond

	config.NotifyCh = n.notifyCh
	config.LogOutput = log.WithComponent("raft")
	config.LogLevel = "INFO"
	return config
}

// Start creates the raft instance and bootstraps the static peer set if
// this node has no raft state yet.
func (n *Node) Start() error {
	config := n.raftConfig()
	rlog := log.WithComponent("raft")

	var (
		transport     raft.Transport
		logStore      raft.LogStore
		stableStore   raft.StableStore
		snapshotStore raft.SnapshotStore
	)

	if n.cfg.InMemory {
		_, inmem := raft.NewInmemTransport(raft.ServerAddress(n.cfg.BindAddr))
		transport = inmem
		mem := raft.NewInmemStore()
		logStore, stableStore = mem, mem
		snapshotStore = raft.NewInmemSnapshotStore()
	} else {
		addr, err := net.ResolveTCPAddr("tcp", n.cfg.BindAddr)
		if err != nil {
			return fmt.Errorf("failed to resolve bind address: %w", err)
		}

		tcp, err := raft.NewTCPTransport(n.cfg.BindAddr, addr, 3, 10*time.Second, rlog)
		if err != nil {
			return fmt.Errorf("failed to create transport: %w", err)
		}
		transport = tcp
		n.closers = append(n.closers, tcp.Close)

		snapshotStore, err = raft.NewFileSnapshotStore(n.cfg.DataDir, 2, rlog)
		if err != nil {
			return fmt.Errorf("failed to create snapshot store: %w", err)
		}

		boltLog, err := raftboltdb.NewBoltStore(filepath.Join(n.cfg.DataDir, "raft-log.db"))
		if err != nil {
			return fmt.Errorf("failed to create log store: %w", err)
		}
		n.closers = append(n.closers, boltLog.Close)

		boltStable, err := raftboltdb.NewBoltStore(filepath.Join(n.cfg.DataDir, "raft-stable.db"))
		if err != nil {
			return fmt.Errorf("failed to create stable store: %w", err)
		}
		n.closers = append(n.closers, boltStable.Close)
		logStore, stableStore = boltLog, boltStable
	}

	hasState, err := raft.HasExistingState(logStore, stableStore, snapshotStore)
	if err != nil {
		return fmt.Errorf("failed to inspect raft state: %w", err)
	}

	r, err := raft.NewRaft(config, n.fsm, logStore, stableStore, snapshotStore, transport)
	if err != nil {
		return fmt.Errorf("failed to create raft: %w", err)
	}
	n.raft = r

	if hasState {
		n.logger.Info().Msg("Resuming existing raft state")
		return nil
	}

	servers := []raft.Server{{ID: config.LocalID, Address: transport.LocalAddr()}}
	for _, p := range n.cfg.Peers {
		servers = append(servers, raft.Server{ID: raft.ServerID(p.ID), Address: raft.ServerAddress(p.Address)})
	}

	future := r.BootstrapCluster(raft.Configuration{Servers: servers})
	if err := future.Error(); err != nil && !errors.Is(err, raft.ErrCantBootstrap) {
		return fmt.Errorf("failed to bootstrap cluster: %w", err)
	}

	n.logger.Info().Int("voters", len(servers)).Msg("Bootstrapped raft cluster")
	return nil
}

// NodeID returns the local raft server id
func (n *Node) NodeID() string { return n.cfg.NodeID }

// LeaderCh receives true when this node becomes leader and false when it
// steps down. Feed it to leader.NewRaftSource.
func (n *Node) LeaderCh() <-chan bool { return n.notifyCh }

// Store returns the local document store
func (n *Node) Store() storage.Store { return n.store }

// IsLeader returns true if this node is the raft leader
func (n *Node) IsLeader() bool {
	if n.raft == nil {
		return false
	}
	return n.raft.State() == raft.Leader
}

// LeaderAddr returns the address of the current leader
func (n *Node) LeaderAddr() string {
	if n.raft == nil {
		return ""
	}
	addr, _ := n.raft.LeaderWithID()
	return string(addr)
}

// Members returns the current voter set
func (n *Node) Members() ([]Member, error) {
	if n.raft == nil {
		return nil, ErrNotStarted
	}

	future := n.raft.GetConfiguration()
	if err := future.Error(); err != nil {
		return nil, fmt.Errorf("failed to get configuration: %w", err)
	}

	_, leaderID := n.raft.LeaderWithID()
	servers := future.Configuration().Servers
	members := make([]Member, 0, len(servers))
	for _, s := range servers {
		members = append(members, Member{
			ID:      string(s.ID),
			Address: string(s.Address),
			Leader:  s.ID == leaderID,
		})
	}
	return members, nil
}

// Barrier blocks until every log entry committed before the call has been
// applied locally. Only the leader can issue it.
func (n *Node) Barrier(ctx context.Context) error {
	if n.raft == nil {
		return ErrNotStarted
	}
	if err := n.raft.Barrier(timeoutFrom(ctx, 10*time.Second)).Error(); err != nil {
		if errors.Is(err, raft.ErrNotLeader) {
			return ErrNotLeader
		}
		return fmt.Errorf("barrier failed: %w", err)
	}
	return nil
}

// Stats returns raft internals for diagnostics
func (n *Node) Stats() map[string]interface{} {
	stats := make(map[string]interface{})
	if n.raft == nil {
		return stats
	}
	stats["state"] = n.raft.State().String()
	stats["last_log_index"] = n.raft.LastIndex()
	stats["applied_index"] = n.raft.AppliedIndex()
	stats["leader"] = n.LeaderAddr()
	return stats
}

// Apply submits a command to the Raft cluster and returns the FSM response
func (n *Node) Apply(ctx context.Context, cmd Command) (interface{}, error) {
	if n.raft == nil {
		return nil, ErrNotStarted
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !n.IsLeader() {
		return nil, ErrNotLeader
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal command: %w", err)
	}

	future := n.raft.Apply(data, timeoutFrom(ctx, defaultApplyTimeout))
	if err := future.Error(); err != nil {
		if errors.Is(err, raft.ErrNotLeader) || errors.Is(err, raft.ErrLeadershipLost) {
			return nil, ErrNotLeader
		}
		return nil, fmt.Errorf("failed to apply command: %w", err)
	}

	resp := future.Response()
	if err, ok := resp.(error); ok && err != nil {
		return nil, err
	}
	return resp, nil
}

// Index replicates a document write. It satisfies the coordinator's
// metadata client.
func (n *Node) Index(ctx context.Context, req *storage.IndexRequest) (*storage.IndexResponse, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal index request: %w", err)
	}

	resp, err := n.Apply(ctx, Command{Op: OpIndex, Data: data})
	if err != nil {
		return nil, err
	}
	out, ok := resp.(*storage.IndexResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected index response %T", resp)
	}
	return out, nil
}

// Delete replicates a document removal
func (n *Node) Delete(ctx context.Context, index, id string) error {
	data, err := json.Marshal(deleteRequest{Index: index, ID: id})
	if err != nil {
		return fmt.Errorf("failed to marshal delete request: %w", err)
	}
	_, err = n.Apply(ctx, Command{Op: OpDelete, Data: data})
	return err
}

// Get reads a document from the local replica, which may lag the leader
func (n *Node) Get(ctx context.Context, index, id string) (*storage.Document, error) {
	return n.store.Get(ctx, index, id)
}

// List reads every document of index from the local replica
func (n *Node) List(ctx context.Context, index string) ([]*storage.Document, error) {
	return n.store.List(ctx, index)
}

// Shutdown stops raft and closes the stores
func (n *Node) Shutdown() error {
	if n.raft != nil {
		if err := n.raft.Shutdown().Error(); err != nil {
			return fmt.Errorf("failed to shutdown raft: %w", err)
		}
		n.raft = nil
	}

	var errs []error
	for i := len(n.closers) - 1; i >= 0; i-- {
		if err := n.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	n.closers = nil

	if n.store != nil {
		if err := n.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close store: %w", err))
		}
		n.store = nil
	}
	return errors.Join(errs...)
}

func timeoutFrom(ctx context.Context, fallback time.Duration) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return fallback
	}
	if d := time.Until(deadline); d > 0 {
		return d
	}
	return time.Millisecond
}
