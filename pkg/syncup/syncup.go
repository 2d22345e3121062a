package syncup

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/cuemby/steward/pkg/cluster"
	"github.com/cuemby/steward/pkg/log"
	"github.com/cuemby/steward/pkg/storage"
	"github.com/rs/zerolog"
)

// Indices written by this package
const (
	RoutingIndex     = ".steward-routing"
	ArrangementIndex = ".steward-arrangements"

	routingDocID = "routing"
)

// Cluster is what the sync routines need from the local node. Both
// cluster.Node and cluster.Local implement it.
type Cluster interface {
	NodeID() string
	Members() ([]cluster.Member, error)
	Barrier(ctx context.Context) error
	Index(ctx context.Context, req *storage.IndexRequest) (*storage.IndexResponse, error)
}

// Routing is the routing table document: which node coordinates and which
// nodes are eligible to serve.
type Routing struct {
	Coordinator string   `json:"coordinator"`
	Nodes       []string `json:"nodes"`
	Version     int64    `json:"version"`
	UpdatedAt   int64    `json:"updated_at"`
}

// RoutingSyncer rewrites the routing document from the current membership
type RoutingSyncer struct {
	cluster Cluster
	timeout time.Duration
	logger  zerolog.Logger
	version int64
	now     func() time.Time
}

// NewRoutingSyncer creates a syncer for c
func NewRoutingSyncer(c Cluster) *RoutingSyncer {
	return &RoutingSyncer{
		cluster: c,
		timeout: 10 * time.Second,
		logger:  log.WithComponent("syncup"),
		now:     time.Now,
	}
}

// Sync writes one routing document. It is the coordinator's recurring work.
// Ticks never overlap, so version needs no lock.
func (s *RoutingSyncer) Sync(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	members, err := s.cluster.Members()
	if err != nil {
		return fmt.Errorf("failed to list members: %w", err)
	}

	nodes := make([]string, 0, len(members))
	for _, m := range members {
		nodes = append(nodes, m.ID)
	}
	sort.Strings(nodes)

	s.version++
	source, err := json.Marshal(Routing{
		Coordinator: s.cluster.NodeID(),
		Nodes:       nodes,
		Version:     s.version,
		UpdatedAt:   s.now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("failed to serialize routing: %w", err)
	}

	if _, err := s.cluster.Index(ctx, &storage.IndexRequest{
		Index:   RoutingIndex,
		ID:      routingDocID,
		Source:  source,
		Refresh: storage.RefreshNone,
	}); err != nil {
		return fmt.Errorf("failed to write routing: %w", err)
	}

	s.logger.Debug().Int("nodes", len(nodes)).Int64("version", s.version).Msg("Routing synced")
	return nil
}
