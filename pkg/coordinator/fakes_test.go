package coordinator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cuemby/steward/pkg/storage"
	"github.com/cuemby/steward/pkg/threadpool"
)

type fakeTask struct {
	name      string
	delay     time.Duration
	recurring bool
	task      threadpool.Task
	cancelled atomic.Bool
}

func (t *fakeTask) Cancel() bool      { return t.cancelled.CompareAndSwap(false, true) }
func (t *fakeTask) IsCancelled() bool { return t.cancelled.Load() }

// fire runs the task as the timer would, even if it was cancelled, so
// tests can play a late timer.
func (t *fakeTask) fire() { t.task() }

// fakeScheduler records tasks and runs them only when a test fires them
type fakeScheduler struct {
	mu    sync.Mutex
	tasks []*fakeTask
}

func (f *fakeScheduler) Schedule(delay time.Duration, name string, task threadpool.Task) threadpool.Cancellable {
	return f.add(&fakeTask{name: name, delay: delay, task: task})
}

func (f *fakeScheduler) ScheduleWithFixedDelay(interval time.Duration, name string, task threadpool.Task) threadpool.Cancellable {
	return f.add(&fakeTask{name: name, delay: interval, recurring: true, task: task})
}

func (f *fakeScheduler) add(t *fakeTask) *fakeTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, t)
	return t
}

// armed returns the tasks named name that are not cancelled
func (f *fakeScheduler) armed(name string) []*fakeTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*fakeTask
	for _, t := range f.tasks {
		if t.name == name && !t.IsCancelled() {
			out = append(out, t)
		}
	}
	return out
}

func (f *fakeScheduler) all(name string) []*fakeTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*fakeTask
	for _, t := range f.tasks {
		if t.name == name {
			out = append(out, t)
		}
	}
	return out
}

// fakeClient is an in-memory MetadataClient
type fakeClient struct {
	mu       sync.Mutex
	requests []*storage.IndexRequest
	err      error
	block    chan struct{}
}

func (c *fakeClient) Index(ctx context.Context, req *storage.IndexRequest) (*storage.IndexResponse, error) {
	if c.block != nil {
		select {
		case <-c.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}
	return &storage.IndexResponse{Index: req.Index, ID: req.ID, Result: storage.ResultCreated}, nil
}

func (c *fakeClient) got() []*storage.IndexRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*storage.IndexRequest(nil), c.requests...)
}

var errIndexUnavailable = errors.New("index unavailable")

// counter is a Work that counts its runs
type counter struct {
	n   atomic.Int64
	err error
}

func (c *counter) work(context.Context) error {
	c.n.Add(1)
	return c.err
}

func (c *counter) count() int64 { return c.n.Load() }
