package coordinator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cuemby/steward/pkg/threadpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPool(t *testing.T) *threadpool.Pool {
	t.Helper()
	pool := threadpool.New()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = pool.Shutdown(ctx)
	})
	return pool
}

func TestControllerFiresOncePerInterval(t *testing.T) {
	sched := &fakeScheduler{}
	ctrl := NewController(sched, syncTask)
	work := &counter{}

	require.True(t, ctrl.Start(10*time.Second, work.work))
	armed := sched.armed(syncTask)
	require.Len(t, armed, 1)
	assert.True(t, armed[0].recurring)
	assert.Equal(t, 10*time.Second, armed[0].delay, "first fire is one interval after start")
	assert.Equal(t, int64(0), work.count())

	armed[0].fire()
	assert.Equal(t, int64(1), work.count())
	armed[0].fire()
	assert.Equal(t, int64(2), work.count())
}

func TestControllerRecursOnPool(t *testing.T) {
	ctrl := NewController(newPool(t), syncTask)
	work := &counter{}

	require.True(t, ctrl.Start(20*time.Millisecond, work.work))
	require.Eventually(t, func() bool { return work.count() >= 3 }, 5*time.Second, 10*time.Millisecond)

	ctrl.Stop()
	stopped := work.count()
	time.Sleep(100 * time.Millisecond)
	assert.LessOrEqual(t, work.count(), stopped+1, "at most an in-flight tick finishes after Stop")
}

func TestControllerStartIsNoopWhenActive(t *testing.T) {
	sched := &fakeScheduler{}
	ctrl := NewController(sched, syncTask)
	work := &counter{}

	assert.True(t, ctrl.Start(time.Second, work.work))
	assert.False(t, ctrl.Start(2*time.Second, work.work))

	assert.Len(t, sched.armed(syncTask), 1)
	assert.Equal(t, time.Second, ctrl.Interval())
}

func TestControllerNonPositiveIntervalDisables(t *testing.T) {
	sched := &fakeScheduler{}
	ctrl := NewController(sched, syncTask)
	work := &counter{}

	assert.False(t, ctrl.Start(0, work.work))
	assert.False(t, ctrl.Start(-time.Second, work.work))
	assert.False(t, ctrl.Active())
	assert.Empty(t, sched.all(syncTask))
}

func TestControllerStopIdempotent(t *testing.T) {
	sched := &fakeScheduler{}
	ctrl := NewController(sched, syncTask)

	assert.False(t, ctrl.Stop(), "never started")

	ctrl.Start(time.Second, (&counter{}).work)
	assert.True(t, ctrl.Stop())
	assert.False(t, ctrl.Stop())
	assert.False(t, ctrl.Active())
	assert.Equal(t, time.Duration(0), ctrl.Interval())
}

func TestControllerRestartIsAtomic(t *testing.T) {
	sched := &fakeScheduler{}
	ctrl := NewController(sched, syncTask)
	oldWork, newWork := &counter{}, &counter{}

	ctrl.Start(10*time.Second, oldWork.work)
	old := sched.armed(syncTask)[0]

	assert.True(t, ctrl.Restart(30*time.Second, newWork.work))
	assert.True(t, old.IsCancelled())

	old.fire()
	assert.Equal(t, int64(0), oldWork.count(), "old timer is stale after restart")

	armed := sched.armed(syncTask)
	require.Len(t, armed, 1)
	assert.Equal(t, 30*time.Second, armed[0].delay)
	armed[0].fire()
	assert.Equal(t, int64(1), newWork.count())
}

func TestControllerRestartWithRealTimers(t *testing.T) {
	ctrl := NewController(newPool(t), syncTask)
	oldWork, newWork := &counter{}, &counter{}

	ctrl.Start(20*time.Millisecond, oldWork.work)
	require.Eventually(t, func() bool { return oldWork.count() >= 2 }, 5*time.Second, 5*time.Millisecond)

	ctrl.Restart(time.Hour, newWork.work)
	after := oldWork.count()

	time.Sleep(100 * time.Millisecond)
	assert.LessOrEqual(t, oldWork.count(), after+1, "only a tick admitted before Restart may finish")
	assert.Equal(t, int64(0), newWork.count())
	assert.Equal(t, time.Hour, ctrl.Interval())
}

func TestControllerRestartToZeroStops(t *testing.T) {
	sched := &fakeScheduler{}
	ctrl := NewController(sched, syncTask)

	ctrl.Start(time.Second, (&counter{}).work)
	assert.False(t, ctrl.Restart(0, (&counter{}).work))
	assert.False(t, ctrl.Active())
	assert.Empty(t, sched.armed(syncTask))
}

func TestControllerSurvivesFailingWork(t *testing.T) {
	ctrl := NewController(newPool(t), syncTask)

	failing := &counter{err: errors.New("routing sync failed")}
	ctrl.Start(10*time.Millisecond, failing.work)
	require.Eventually(t, func() bool { return failing.count() >= 3 }, 5*time.Second, 5*time.Millisecond)
	ctrl.Stop()

	var panics atomic.Int64
	ctrl.Start(10*time.Millisecond, func(context.Context) error {
		panics.Add(1)
		panic("boom")
	})
	require.Eventually(t, func() bool { return panics.Load() >= 3 }, 5*time.Second, 5*time.Millisecond)
	assert.True(t, ctrl.Active())
	ctrl.Stop()
}
