package syncup

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cuemby/steward/pkg/cluster"
	"github.com/cuemby/steward/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCluster struct {
	mu         sync.Mutex
	members    []cluster.Member
	membersErr error
	barrier    func(ctx context.Context) error
	requests   []*storage.IndexRequest
	indexErr   error
}

func (f *fakeCluster) NodeID() string { return "node-1" }

func (f *fakeCluster) Members() ([]cluster.Member, error) {
	return f.members, f.membersErr
}

func (f *fakeCluster) Barrier(ctx context.Context) error {
	if f.barrier != nil {
		return f.barrier(ctx)
	}
	return nil
}

func (f *fakeCluster) Index(_ context.Context, req *storage.IndexRequest) (*storage.IndexResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.indexErr != nil {
		return nil, f.indexErr
	}
	f.requests = append(f.requests, req)
	return &storage.IndexResponse{Index: req.Index, ID: req.ID, Result: storage.ResultCreated}, nil
}

func (f *fakeCluster) got() []*storage.IndexRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*storage.IndexRequest(nil), f.requests...)
}

func TestRoutingSync(t *testing.T) {
	fc := &fakeCluster{members: []cluster.Member{{ID: "node-3"}, {ID: "node-1", Leader: true}, {ID: "node-2"}}}
	s := NewRoutingSyncer(fc)
	s.now = func() time.Time { return time.UnixMilli(1709287200000) }

	require.NoError(t, s.Sync(context.Background()))
	require.NoError(t, s.Sync(context.Background()))

	got := fc.got()
	require.Len(t, got, 2)
	assert.Equal(t, RoutingIndex, got[1].Index)
	assert.Equal(t, "routing", got[1].ID)

	var routing Routing
	require.NoError(t, json.Unmarshal(got[1].Source, &routing))
	assert.Equal(t, Routing{
		Coordinator: "node-1",
		Nodes:       []string{"node-1", "node-2", "node-3"},
		Version:     2,
		UpdatedAt:   1709287200000,
	}, routing)
}

func TestRoutingSyncErrors(t *testing.T) {
	boom := errors.New("boom")

	s := NewRoutingSyncer(&fakeCluster{membersErr: boom})
	assert.ErrorIs(t, s.Sync(context.Background()), boom)

	s = NewRoutingSyncer(&fakeCluster{indexErr: boom})
	assert.ErrorIs(t, s.Sync(context.Background()), boom)
}

func TestBuildArrangement(t *testing.T) {
	fc := &fakeCluster{}
	r := NewRedeployer(fc)

	require.NoError(t, r.Bootstrap(context.Background()))

	got := fc.got()
	require.Len(t, got, 1)
	assert.Equal(t, ArrangementIndex, got[0].Index)
	assert.Equal(t, "node-1", got[0].ID)

	var a Arrangement
	require.NoError(t, json.Unmarshal(got[0].Source, &a))
	assert.Equal(t, "node-1", a.Coordinator)
	assert.Equal(t, []string{"node-1"}, a.Nodes)
}

func TestRedeployerStartupListener(t *testing.T) {
	fc := &fakeCluster{}
	r := NewRedeployer(fc)
	defer r.Close()

	results := make(chan error, 1)
	r.SetStartupListener(func(err error) { results <- err })

	r.OnAcquired()
	select {
	case err := <-results:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("start-up listener not called")
	}
}

func TestRedeployerBarrierFailure(t *testing.T) {
	boom := errors.New("not leader")
	fc := &fakeCluster{barrier: func(context.Context) error { return boom }}
	r := NewRedeployer(fc)
	defer r.Close()

	results := make(chan error, 1)
	r.SetStartupListener(func(err error) { results <- err })

	r.OnAcquired()
	select {
	case err := <-results:
		assert.ErrorIs(t, err, boom)
	case <-time.After(time.Second):
		t.Fatal("start-up listener not called")
	}
}

func TestRedeployerLossAbandonsStartup(t *testing.T) {
	fc := &fakeCluster{barrier: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	r := NewRedeployer(fc)

	called := make(chan error, 1)
	r.SetStartupListener(func(err error) { called <- err })

	r.OnAcquired()
	r.OnLost()
	r.Close()

	select {
	case err := <-called:
		t.Fatalf("listener called after loss: %v", err)
	default:
	}
}
