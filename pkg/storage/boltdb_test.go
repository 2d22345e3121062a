package storage

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts *BoltOptions) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(t.TempDir(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestIndexCreateThenUpdate(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	resp, err := s.Index(ctx, &IndexRequest{Index: ".jobs", ID: "STATS_COLLECTOR", Source: json.RawMessage(`{"v":1}`)})
	require.NoError(t, err)
	assert.Equal(t, ResultCreated, resp.Result)

	resp, err = s.Index(ctx, &IndexRequest{Index: ".jobs", ID: "STATS_COLLECTOR", Source: json.RawMessage(`{"v":2}`), Refresh: RefreshImmediate})
	require.NoError(t, err)
	assert.Equal(t, ResultUpdated, resp.Result)

	doc, err := s.Get(ctx, ".jobs", "STATS_COLLECTOR")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(doc.Source))
}

func TestIndexImmediateWithNoSync(t *testing.T) {
	s := newTestStore(t, &BoltOptions{NoSync: true})

	_, err := s.Index(context.Background(), &IndexRequest{Index: "a", ID: "1", Source: json.RawMessage(`{}`), Refresh: RefreshImmediate})
	assert.NoError(t, err)
}

func TestIndexValidation(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *IndexRequest
	}{
		{"nil request", nil},
		{"no index", &IndexRequest{ID: "1", Source: json.RawMessage(`{}`)}},
		{"no id", &IndexRequest{Index: "a", Source: json.RawMessage(`{}`)}},
		{"bad json", &IndexRequest{Index: "a", ID: "1", Source: json.RawMessage(`{`)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Index(ctx, tt.req)
			assert.Error(t, err)
		})
	}
}

func TestIndexCancelledContext(t *testing.T) {
	s := newTestStore(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Index(ctx, &IndexRequest{Index: "a", ID: "1", Source: json.RawMessage(`{}`)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	_, err := s.Get(ctx, "missing-index", "x")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Index(ctx, &IndexRequest{Index: "a", ID: "1", Source: json.RawMessage(`{}`)})
	require.NoError(t, err)
	_, err = s.Get(ctx, "a", "2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAndDelete(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3"} {
		_, err := s.Index(ctx, &IndexRequest{Index: "a", ID: id, Source: json.RawMessage(`{}`)})
		require.NoError(t, err)
	}

	docs, err := s.List(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, docs, 3)

	require.NoError(t, s.Delete(ctx, "a", "2"))
	require.NoError(t, s.Delete(ctx, "nope", "2"))

	docs, err = s.List(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	docs, err = s.List(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDumpAndLoad(t *testing.T) {
	src := newTestStore(t, nil)
	dst := newTestStore(t, nil)
	ctx := context.Background()

	_, err := src.Index(ctx, &IndexRequest{Index: "jobs", ID: "a", Source: json.RawMessage(`{"x":1}`)})
	require.NoError(t, err)
	_, err = src.Index(ctx, &IndexRequest{Index: "routing", ID: "b", Source: json.RawMessage(`{"y":2}`)})
	require.NoError(t, err)
	_, err = dst.Index(ctx, &IndexRequest{Index: "stale", ID: "z", Source: json.RawMessage(`{}`)})
	require.NoError(t, err)

	dump, err := src.Dump()
	require.NoError(t, err)
	require.NoError(t, dst.Load(dump))

	got, err := dst.Dump()
	require.NoError(t, err)
	assert.Equal(t, dump, got)

	_, err = dst.Get(ctx, "stale", "z")
	assert.ErrorIs(t, err, ErrNotFound)
}
