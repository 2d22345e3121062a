package leader

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	mu    sync.Mutex
	edges []string
}

func (r *recorder) OnAcquired() { r.add("acquired") }
func (r *recorder) OnLost()     { r.add("lost") }

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edges = append(r.edges, e)
}

func (r *recorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.edges...)
}

func TestManualDedupesEdges(t *testing.T) {
	m := NewManual()
	rec := &recorder{}
	m.Subscribe(rec)

	assert.True(t, m.Acquire())
	assert.False(t, m.Acquire())
	assert.True(t, m.IsLeader())
	assert.True(t, m.Lose())
	assert.False(t, m.Lose())

	assert.Equal(t, []string{"acquired", "lost"}, rec.get())
}

func TestSubscribeReplaysCurrentLeadership(t *testing.T) {
	m := NewManual()
	m.Acquire()

	rec := &recorder{}
	m.Subscribe(rec)
	assert.Equal(t, []string{"acquired"}, rec.get())
}

func TestUnsubscribe(t *testing.T) {
	m := NewManual()
	first, second := &recorder{}, &recorder{}
	unsubscribe := m.Subscribe(first)
	m.Subscribe(second)

	unsubscribe()
	m.Acquire()

	assert.Empty(t, first.get())
	assert.Equal(t, []string{"acquired"}, second.get())
}

func TestRaftSource(t *testing.T) {
	ch := make(chan bool, 4)
	src := NewRaftSource(ch)
	rec := &recorder{}
	src.Subscribe(rec)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		src.Run(ctx)
		close(done)
	}()

	ch <- true
	ch <- true
	ch <- false
	ch <- true

	assert.Eventually(t, func() bool { return len(rec.get()) == 3 }, time.Second, 10*time.Millisecond)
	assert.True(t, src.IsLeader())

	cancel()
	<-done

	assert.Equal(t, []string{"acquired", "lost", "acquired", "lost"}, rec.get(), "stopping the source drops leadership")
	assert.False(t, src.IsLeader())
}

func TestRaftSourceClosedChannel(t *testing.T) {
	ch := make(chan bool)
	src := NewRaftSource(ch)
	close(ch)

	done := make(chan struct{})
	go func() {
		src.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return on closed channel")
	}
}
