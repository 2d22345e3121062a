package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/steward/pkg/log"
	"github.com/cuemby/steward/pkg/metrics"
	"github.com/cuemby/steward/pkg/threadpool"
	"github.com/rs/zerolog"
)

// Work is the routine a Controller runs on every tick
type Work func(ctx context.Context) error

// Controller owns at most one recurring timer
type Controller struct {
	pool   threadpool.Scheduler
	name   string
	logger zerolog.Logger

	mu         sync.Mutex
	handle     threadpool.Cancellable
	interval   time.Duration
	generation uint64
}

// NewController creates a stopped controller scheduling on pool. name labels
// the recurring task in logs.
func NewController(pool threadpool.Scheduler, name string) *Controller {
	return &Controller{
		pool:   pool,
		name:   name,
		logger: log.WithComponent("recurrence").With().Str("task", name).Logger(),
	}
}

// Start schedules work every interval, first run one interval from now. It
// does nothing if a timer is already armed or interval is not positive, and
// reports whether it armed a timer.
func (c *Controller) Start(interval time.Duration, work Work) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startLocked(interval, work)
}

// Stop cancels the armed timer. A tick already running is left to finish.
// It reports whether there was a timer to cancel.
func (c *Controller) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopLocked()
}

// Restart replaces the armed timer, if any, with one at the new interval.
// No tick of the old timer starts after Restart returns.
func (c *Controller) Restart(interval time.Duration, work Work) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	metrics.RecurrenceRestartsTotal.Inc()
	return c.startLocked(interval, work)
}

// Active reports whether a timer is armed
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle != nil
}

// Interval returns the period of the armed timer, or zero
func (c *Controller) Interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle == nil {
		return 0
	}
	return c.interval
}

func (c *Controller) startLocked(interval time.Duration, work Work) bool {
	if c.handle != nil {
		c.logger.Debug().Dur("interval", c.interval).Msg("Recurrence already active")
		return false
	}
	if interval <= 0 {
		c.logger.Info().Msg("Recurrence interval is not positive, scheduling disabled")
		return false
	}

	c.generation++
	gen := c.generation
	c.interval = interval
	c.handle = c.pool.ScheduleWithFixedDelay(interval, c.name, func() { c.tick(gen, work) })
	metrics.RecurrenceActive.Set(1)

	c.logger.Info().Dur("interval", interval).Msg("Recurrence started")
	return true
}

func (c *Controller) stopLocked() bool {
	if c.handle == nil {
		return false
	}
	c.handle.Cancel()
	c.handle = nil
	c.generation++
	metrics.RecurrenceActive.Set(0)

	c.logger.Info().Msg("Recurrence stopped")
	return true
}

func (c *Controller) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle != nil && c.generation == gen
}

func (c *Controller) tick(gen uint64, work Work) {
	if !c.current(gen) {
		metrics.SyncTicksTotal.WithLabelValues("stale").Inc()
		return
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.SyncTickDuration)

	err := c.runWork(work)
	var p *panicError
	switch {
	case err == nil:
		metrics.SyncTicksTotal.WithLabelValues("ok").Inc()
	case errors.As(err, &p):
		metrics.SyncTicksTotal.WithLabelValues("panic").Inc()
		c.logger.Error().Str("panic", fmt.Sprint(p.value)).Msg("Recurring task panicked")
	default:
		metrics.SyncTicksTotal.WithLabelValues("error").Inc()
		c.logger.Error().Err(err).Msg("Recurring task failed")
	}
}

type panicError struct {
	value interface{}
}

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.value) }

func (c *Controller) runWork(work Work) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return work(context.Background())
}
