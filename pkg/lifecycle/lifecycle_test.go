package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownRunsHooksInReverseOrder(t *testing.T) {
	r := NewRegistry()

	var order []string
	for _, name := range []string{"store", "raft", "coordinator"} {
		name := name
		require.NoError(t, r.OnBeforeShutdown(name, func(context.Context) error {
			order = append(order, name)
			return nil
		}))
	}

	require.NoError(t, r.Shutdown(context.Background()))
	assert.Equal(t, []string{"coordinator", "raft", "store"}, order)
}

func TestShutdownContinuesPastFailures(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")

	ran := false
	require.NoError(t, r.OnBeforeShutdown("last", func(context.Context) error {
		ran = true
		return nil
	}))
	require.NoError(t, r.OnBeforeShutdown("failing", func(context.Context) error { return boom }))

	err := r.Shutdown(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failing")
	assert.True(t, ran)
}

func TestShutdownOnce(t *testing.T) {
	r := NewRegistry()

	calls := 0
	require.NoError(t, r.OnBeforeShutdown("counter", func(context.Context) error {
		calls++
		return nil
	}))

	require.NoError(t, r.Shutdown(context.Background()))
	require.NoError(t, r.Shutdown(context.Background()))
	assert.Equal(t, 1, calls)

	err := r.OnBeforeShutdown("late", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrShuttingDown)
}
