package threadpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cuemby/steward/pkg/log"
	"github.com/cuemby/steward/pkg/metrics"
	"github.com/rs/zerolog"
)

// ErrShutdown is returned by Shutdown when it is called twice
var ErrShutdown = errors.New("thread pool is shut down")

// Task is a unit of work run off the caller's goroutine
type Task func()

// Cancellable is the handle of a scheduled task
type Cancellable interface {
	// Cancel prevents future executions. It returns true if this call did
	// the cancelling. A run already in progress is allowed to finish.
	Cancel() bool
	IsCancelled() bool
}

// Scheduler schedules one-shot and recurring tasks
type Scheduler interface {
	Schedule(delay time.Duration, name string, task Task) Cancellable
	ScheduleWithFixedDelay(interval time.Duration, name string, task Task) Cancellable
}

// Pool runs scheduled tasks on goroutines, at most MaxConcurrent at a time
type Pool struct {
	sem    chan struct{}
	logger zerolog.Logger

	mu      sync.Mutex
	pending map[*scheduled]struct{}
	closed  bool
	wg      sync.WaitGroup
}

// Option configures a Pool
type Option func(*Pool)

// WithMaxConcurrent bounds the number of tasks running at once
func WithMaxConcurrent(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.sem = make(chan struct{}, n)
		}
	}
}

// New creates a Pool
func New(opts ...Option) *Pool {
	p := &Pool{
		sem:     make(chan struct{}, 8),
		logger:  log.WithComponent("threadpool"),
		pending: make(map[*scheduled]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type kind string

const (
	kindOnce      kind = "once"
	kindRecurring kind = "recurring"
)

type scheduled struct {
	pool     *Pool
	name     string
	kind     kind
	interval time.Duration
	task     Task

	cancelled atomic.Bool
	mu        sync.Mutex
	timer     *time.Timer
}

// Cancel implements Cancellable
func (s *scheduled) Cancel() bool {
	if !s.cancelled.CompareAndSwap(false, true) {
		return false
	}
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	s.pool.forget(s)
	return true
}

// IsCancelled implements Cancellable
func (s *scheduled) IsCancelled() bool {
	return s.cancelled.Load()
}

// Schedule runs task once after delay
func (p *Pool) Schedule(delay time.Duration, name string, task Task) Cancellable {
	return p.arm(&scheduled{pool: p, name: name, kind: kindOnce, task: task}, delay)
}

// ScheduleWithFixedDelay runs task repeatedly. The first run starts after
// interval, and each following run starts interval after the previous one
// finished, so runs of the same task never overlap.
func (p *Pool) ScheduleWithFixedDelay(interval time.Duration, name string, task Task) Cancellable {
	return p.arm(&scheduled{pool: p, name: name, kind: kindRecurring, interval: interval, task: task}, interval)
}

func (p *Pool) arm(s *scheduled, delay time.Duration) Cancellable {
	if delay < 0 {
		delay = 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.logger.Debug().Str("task", s.name).Msg("Pool is shut down, task not scheduled")
		s.cancelled.Store(true)
		return s
	}
	p.pending[s] = struct{}{}
	metrics.ThreadPoolScheduled.Set(float64(len(p.pending)))

	s.mu.Lock()
	s.timer = time.AfterFunc(delay, func() { p.fire(s) })
	s.mu.Unlock()
	return s
}

func (p *Pool) forget(s *scheduled) {
	p.mu.Lock()
	delete(p.pending, s)
	metrics.ThreadPoolScheduled.Set(float64(len(p.pending)))
	p.mu.Unlock()
}

func (p *Pool) fire(s *scheduled) {
	if s.IsCancelled() {
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.wg.Add(1)
	p.mu.Unlock()
	defer p.wg.Done()

	p.sem <- struct{}{}
	p.run(s)
	<-p.sem

	if s.kind == kindOnce {
		s.cancelled.Store(true)
		p.forget(s)
		return
	}

	s.mu.Lock()
	if !s.IsCancelled() {
		s.timer.Reset(s.interval)
	}
	s.mu.Unlock()
}

func (p *Pool) run(s *scheduled) {
	if s.IsCancelled() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			metrics.ThreadPoolTasksTotal.WithLabelValues(string(s.kind), "panic").Inc()
			p.logger.Error().
				Str("task", s.name).
				Str("panic", fmt.Sprint(r)).
				Msg("Scheduled task panicked")
		}
	}()
	s.task()
	metrics.ThreadPoolTasksTotal.WithLabelValues(string(s.kind), "ok").Inc()
}

// Pending returns the number of armed tasks
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Shutdown cancels every armed task and waits for running ones to finish
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrShutdown
	}
	p.closed = true
	armed := make([]*scheduled, 0, len(p.pending))
	for s := range p.pending {
		armed = append(armed, s)
	}
	p.mu.Unlock()

	for _, s := range armed {
		s.Cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Debug().Int("cancelled", len(armed)).Msg("Thread pool stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("thread pool shutdown: %w", ctx.Err())
	}
}
