package syncup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/steward/pkg/log"
	"github.com/cuemby/steward/pkg/storage"
	"github.com/rs/zerolog"
)

// Arrangement records which nodes a coordinator redeploys onto
type Arrangement struct {
	Coordinator string   `json:"coordinator"`
	Nodes       []string `json:"nodes"`
	CreatedAt   int64    `json:"created_at"`
}

// Redeployer builds the redeploy arrangement when a node takes over as
// coordinator. As a leader.Listener it waits for the local replica to
// catch up and then reports to the start-up listener.
type Redeployer struct {
	cluster        Cluster
	barrierTimeout time.Duration
	logger         zerolog.Logger

	mu       sync.Mutex
	listener func(error)
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewRedeployer creates a redeployer for c
func NewRedeployer(c Cluster) *Redeployer {
	return &Redeployer{
		cluster:        c,
		barrierTimeout: 30 * time.Second,
		logger:         log.WithComponent("redeployer"),
	}
}

// SetStartupListener sets the func told when a start-up pass completes
func (r *Redeployer) SetStartupListener(fn func(error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listener = fn
}

// BuildArrangement writes the arrangement of nodeIDs under localID
func (r *Redeployer) BuildArrangement(ctx context.Context, nodeIDs []string, localID string) error {
	source, err := json.Marshal(Arrangement{
		Coordinator: localID,
		Nodes:       nodeIDs,
		CreatedAt:   time.Now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("failed to serialize arrangement: %w", err)
	}

	if _, err := r.cluster.Index(ctx, &storage.IndexRequest{
		Index:   ArrangementIndex,
		ID:      localID,
		Source:  source,
		Refresh: storage.RefreshWaitFor,
	}); err != nil {
		return fmt.Errorf("failed to write arrangement: %w", err)
	}

	r.logger.Info().Strs("nodes", nodeIDs).Msg("Redeploy arrangement built")
	return nil
}

// Bootstrap arranges a redeploy onto the local node only
func (r *Redeployer) Bootstrap(ctx context.Context) error {
	localID := r.cluster.NodeID()
	return r.BuildArrangement(ctx, []string{localID}, localID)
}

// OnAcquired implements leader.Listener
func (r *Redeployer) OnAcquired() {
	ctx, cancel := context.WithTimeout(context.Background(), r.barrierTimeout)

	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.cancel = cancel
	listener := r.listener
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()

		err := r.cluster.Barrier(ctx)
		if err != nil {
			r.logger.Warn().Err(err).Msg("Replica did not catch up before start-up redeploy")
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			// Leadership was lost while waiting.
			return
		}
		if listener != nil {
			listener(err)
		}
	}()
}

// OnLost implements leader.Listener
func (r *Redeployer) OnLost() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// Close abandons any start-up pass in progress and waits for it to return
func (r *Redeployer) Close() {
	r.OnLost()
	r.wg.Wait()
}
