package threadpool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleRunsOnce(t *testing.T) {
	p := New()
	defer func() { _ = p.Shutdown(context.Background()) }()

	var runs atomic.Int32
	h := p.Schedule(20*time.Millisecond, "once", func() { runs.Add(1) })

	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
	assert.True(t, h.IsCancelled(), "one-shot handle is spent after running")
	assert.Equal(t, 0, p.Pending())
}

func TestCancelBeforeFire(t *testing.T) {
	p := New()
	defer func() { _ = p.Shutdown(context.Background()) }()

	var runs atomic.Int32
	h := p.Schedule(50*time.Millisecond, "cancelled", func() { runs.Add(1) })

	assert.True(t, h.Cancel())
	assert.False(t, h.Cancel(), "second cancel is a no-op")
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), runs.Load())
}

func TestFixedDelayRepeatsUntilCancelled(t *testing.T) {
	p := New()
	defer func() { _ = p.Shutdown(context.Background()) }()

	var runs atomic.Int32
	h := p.ScheduleWithFixedDelay(10*time.Millisecond, "recurring", func() { runs.Add(1) })

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	require.True(t, h.Cancel())

	// Allow an in-flight run to finish, then the count must stay put.
	time.Sleep(30 * time.Millisecond)
	settled := runs.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, runs.Load())
}

func TestFixedDelayFirstRunWaitsInterval(t *testing.T) {
	p := New()
	defer func() { _ = p.Shutdown(context.Background()) }()

	start := time.Now()
	first := make(chan time.Duration, 1)
	h := p.ScheduleWithFixedDelay(40*time.Millisecond, "delayed", func() {
		select {
		case first <- time.Since(start):
		default:
		}
	})
	defer h.Cancel()

	select {
	case elapsed := <-first:
		assert.GreaterOrEqual(t, elapsed, 40*time.Millisecond)
	case <-time.After(time.Second):
		t.Fatal("recurring task never ran")
	}
}

func TestPanicDoesNotStopRecurrence(t *testing.T) {
	p := New()
	defer func() { _ = p.Shutdown(context.Background()) }()

	var runs atomic.Int32
	h := p.ScheduleWithFixedDelay(10*time.Millisecond, "panicky", func() {
		runs.Add(1)
		panic("boom")
	})
	defer h.Cancel()

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestShutdown(t *testing.T) {
	p := New(WithMaxConcurrent(1))

	var runs atomic.Int32
	p.Schedule(time.Hour, "far", func() { runs.Add(1) })
	p.ScheduleWithFixedDelay(time.Hour, "far-recurring", func() { runs.Add(1) })
	assert.Equal(t, 2, p.Pending())

	require.NoError(t, p.Shutdown(context.Background()))
	assert.Equal(t, 0, p.Pending())
	assert.ErrorIs(t, p.Shutdown(context.Background()), ErrShutdown)

	h := p.Schedule(0, "late", func() { runs.Add(1) })
	assert.True(t, h.IsCancelled())
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), runs.Load())
}

func TestShutdownWaitsForRunningTask(t *testing.T) {
	p := New()

	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	p.Schedule(0, "slow", func() {
		close(started)
		<-release
		finished.Store(true)
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Shutdown(ctx), context.DeadlineExceeded)

	close(release)
	assert.Eventually(t, finished.Load, time.Second, 5*time.Millisecond)
}
