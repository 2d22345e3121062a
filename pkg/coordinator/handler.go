package coordinator

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/cuemby/steward/pkg/config"
	"github.com/cuemby/steward/pkg/events"
	"github.com/cuemby/steward/pkg/leader"
	"github.com/cuemby/steward/pkg/lifecycle"
	"github.com/cuemby/steward/pkg/log"
	"github.com/cuemby/steward/pkg/metrics"
	"github.com/cuemby/steward/pkg/threadpool"
	"github.com/rs/zerolog"
)

// State is the handler's view of this node's role
type State int

const (
	NotCoordinator State = iota
	Coordinator
)

func (s State) String() string {
	switch s {
	case Coordinator:
		return "coordinator"
	default:
		return "not-coordinator"
	}
}

// Option configures a Handler
type Option func(*Handler)

// WithBootstrap sets the routine run once per term, either by the delayed
// one-shot or by the start-up listener, whichever comes first.
func WithBootstrap(fn Work) Option {
	return func(h *Handler) { h.bootstrap = fn }
}

// WithRegistrar enables stats collector job registration on acquisition
func WithRegistrar(r *Registrar) Option {
	return func(h *Handler) { h.registrar = r }
}

// WithEvents publishes coordinator events to p
func WithEvents(p events.Publisher) Option {
	return func(h *Handler) {
		if p != nil {
			h.events = p
		}
	}
}

// WithIntervalUnit sets what one unit of the configured interval means.
// The default is one second.
func WithIntervalUnit(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.unit = d
		}
	}
}

// WithStatsCollector overrides the stats collector schedule and lock
func WithStatsCollector(intervalMinutes int, lockDurationSeconds int64) Option {
	return func(h *Handler) {
		h.statsInterval = intervalMinutes
		h.statsLock = lockDurationSeconds
	}
}

// WithNodeID tags logs and events with the local node id
func WithNodeID(id string) Option {
	return func(h *Handler) { h.nodeID = id }
}

// Handler reacts to leadership edges, interval changes and shutdown by
// driving a Controller. All transitions are serialized.
type Handler struct {
	ctrl          *Controller
	pool          threadpool.Scheduler
	work          Work
	bootstrap     Work
	registrar     *Registrar
	events        events.Publisher
	unit          time.Duration
	nodeID        string
	statsInterval int
	statsLock     int64
	logger        zerolog.Logger
	guard         termGuard

	mu       sync.Mutex
	state    State
	interval int
	term     uint64
	pending  threadpool.Cancellable
	detach   []func()
	// closed is set by BeforeShutdown; nothing re-arms the recurrence after it
	closed bool
}

// NewHandler creates a handler in the NotCoordinator state. initialInterval
// is the sync up interval in units (seconds by default); negative values
// disable the recurrence.
func NewHandler(ctrl *Controller, pool threadpool.Scheduler, work Work, initialInterval int, opts ...Option) *Handler {
	if initialInterval < 0 {
		initialInterval = 0
	}
	h := &Handler{
		ctrl:          ctrl,
		pool:          pool,
		work:          work,
		events:        events.Discard,
		unit:          time.Second,
		statsInterval: DefaultStatsIntervalMinutes,
		statsLock:     DefaultStatsLockDurationSeconds,
		interval:      initialInterval,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = log.WithComponent("coordinator").With().Str("node_id", h.nodeID).Logger()

	metrics.IsCoordinator.Set(0)
	metrics.SyncUpIntervalSeconds.Set(float64(initialInterval))
	return h
}

// Attach subscribes the handler to its collaborators. Any of them may be nil.
func (h *Handler) Attach(src leader.Source, setting *config.IntSetting, hooks *lifecycle.Registry) error {
	if hooks != nil {
		if err := hooks.OnBeforeShutdown("coordinator", h.BeforeShutdown); err != nil {
			return err
		}
	}

	var detach []func()
	if setting != nil {
		detach = append(detach, setting.Subscribe(h.OnIntervalChanged))
		if cur := setting.Get(); cur != h.Interval() {
			h.OnIntervalChanged(h.Interval(), cur)
		}
	}
	if src != nil {
		detach = append(detach, src.Subscribe(h))
	}

	h.mu.Lock()
	h.detach = append(h.detach, detach...)
	h.mu.Unlock()
	return nil
}

// State returns the current role
func (h *Handler) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Interval returns the recorded sync up interval in units
func (h *Handler) Interval() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interval
}

// Term returns how many times this node has acquired the coordinator role
func (h *Handler) Term() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.term
}

func (h *Handler) duration(interval int) time.Duration {
	return time.Duration(interval) * h.unit
}

// OnAcquired implements leader.Listener
func (h *Handler) OnAcquired() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		h.logger.Info().Msg("Shutting down, ignoring coordinator role")
		return
	}
	if h.state == Coordinator {
		h.mu.Unlock()
		return
	}
	h.state = Coordinator
	h.term++
	term := h.term
	interval := h.interval

	if h.bootstrap != nil {
		h.pending = h.pool.Schedule(h.duration(interval), "bootstrap", func() {
			h.runBootstrap(PathDelayed, term)
		})
	}
	h.registerStatsJob()
	h.ctrl.Start(h.duration(interval), h.work)
	h.mu.Unlock()

	metrics.IsCoordinator.Set(1)
	metrics.CoordinatorTransitionsTotal.WithLabelValues("acquired").Inc()
	metrics.UpdateComponent("coordinator", true, Coordinator.String())
	h.logger.Info().Uint64("term", term).Int("interval", interval).Msg("Acquired coordinator role")
	h.publish(events.EventCoordinatorAcquired, "Node became coordinator", map[string]string{
		"term": strconv.FormatUint(term, 10),
	})
}

// OnLost implements leader.Listener
func (h *Handler) OnLost() {
	h.mu.Lock()
	wasCoordinator := h.state == Coordinator
	h.state = NotCoordinator
	if h.pending != nil {
		h.pending.Cancel()
		h.pending = nil
	}
	h.ctrl.Stop()
	term := h.term
	h.mu.Unlock()

	if !wasCoordinator {
		return
	}

	metrics.IsCoordinator.Set(0)
	metrics.CoordinatorTransitionsTotal.WithLabelValues("lost").Inc()
	metrics.UpdateComponent("coordinator", true, NotCoordinator.String())
	h.logger.Info().Uint64("term", term).Msg("Lost coordinator role")
	h.publish(events.EventCoordinatorLost, "Node is no longer coordinator", map[string]string{
		"term": strconv.FormatUint(term, 10),
	})
}

// OnIntervalChanged records the new interval and, while coordinator,
// restarts the recurrence with it. Zero or negative stops it.
func (h *Handler) OnIntervalChanged(oldInterval, newInterval int) {
	if newInterval < 0 {
		newInterval = 0
	}

	h.mu.Lock()
	h.interval = newInterval
	active := false
	if h.state == Coordinator && !h.closed {
		active = h.ctrl.Restart(h.duration(newInterval), h.work)
	}
	h.mu.Unlock()

	metrics.SyncUpIntervalSeconds.Set(float64(newInterval))
	h.logger.Info().
		Int("old", oldInterval).
		Int("new", newInterval).
		Bool("active", active).
		Msg("Sync up interval changed")
	h.publish(events.EventIntervalChanged, "Sync up interval changed", map[string]string{
		"old": strconv.Itoa(oldInterval),
		"new": strconv.Itoa(newInterval),
	})
}

// BeforeShutdown stops the recurrence whatever the current role. Later
// acquisitions, interval changes and start-up callbacks no longer start it.
func (h *Handler) BeforeShutdown(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	if h.pending != nil {
		h.pending.Cancel()
		h.pending = nil
	}
	h.ctrl.Stop()
	return nil
}

// StartupListener is called by the redeployer when its start-up pass
// completes. On success it runs the bootstrap unless this term already
// had one. Either way the recurrence is started if this node is still the
// coordinator.
func (h *Handler) StartupListener(err error) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		h.logger.Debug().Msg("Shutting down, start-up callback ignored")
		return
	}

	if err != nil {
		h.logger.Warn().Err(err).Msg("Start-up redeploy failed, starting recurrence anyway")
	} else {
		h.RunBootstrap(PathStartup)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == Coordinator && !h.closed {
		h.ctrl.Start(h.duration(h.interval), h.work)
	}
}

// RunBootstrap runs the bootstrap for the current term if no other path
// has claimed it. It reports whether the bootstrap ran.
func (h *Handler) RunBootstrap(path BootstrapPath) bool {
	h.mu.Lock()
	term := h.term
	h.mu.Unlock()
	return h.runBootstrap(path, term)
}

func (h *Handler) runBootstrap(path BootstrapPath, term uint64) bool {
	h.mu.Lock()
	if h.state != Coordinator || h.term != term || h.closed {
		h.mu.Unlock()
		metrics.BootstrapRunsTotal.WithLabelValues(string(path), "skipped").Inc()
		h.logger.Debug().Str("path", string(path)).Msg("Not coordinator for this term, bootstrap skipped")
		return false
	}
	if path == PathDelayed {
		h.pending = nil
	}
	if !h.guard.claim(term) {
		h.mu.Unlock()
		metrics.BootstrapRunsTotal.WithLabelValues(string(path), "duplicate").Inc()
		h.logger.Info().Str("path", string(path)).Uint64("term", term).Msg("Bootstrap already ran for this term")
		return false
	}
	if h.pending != nil {
		h.pending.Cancel()
		h.pending = nil
	}
	fn := h.bootstrap
	h.mu.Unlock()

	outcome := "ok"
	if fn != nil {
		if err := fn(context.Background()); err != nil {
			outcome = "error"
			h.logger.Error().Err(err).Str("path", string(path)).Msg("Bootstrap failed")
		}
	}
	metrics.BootstrapRunsTotal.WithLabelValues(string(path), outcome).Inc()
	h.logger.Info().Str("path", string(path)).Uint64("term", term).Str("outcome", outcome).Msg("Bootstrap finished")
	h.publish(events.EventBootstrapCompleted, "Bootstrap finished", map[string]string{
		"path":    string(path),
		"term":    strconv.FormatUint(term, 10),
		"outcome": outcome,
	})
	return true
}

// registerStatsJob must be called with mu held. The write itself happens
// on another goroutine.
func (h *Handler) registerStatsJob() {
	if h.registrar == nil {
		return
	}
	d, err := StatsCollectorDescriptor(h.statsInterval, h.statsLock)
	if err != nil {
		metrics.JobRegistrationsTotal.WithLabelValues("STATS_COLLECTOR", "failure").Inc()
		h.logger.Error().Err(err).Msg("Failed to build stats collector job")
		return
	}
	h.registrar.RegisterAsync(d)
}

// Close detaches from every collaborator, stops the recurrence and waits
// for outstanding registrations.
func (h *Handler) Close(ctx context.Context) error {
	h.mu.Lock()
	detach := h.detach
	h.detach = nil
	h.mu.Unlock()

	for _, fn := range detach {
		fn()
	}

	var errs []error
	if err := h.BeforeShutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if h.registrar != nil {
		if err := h.registrar.Wait(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *Handler) publish(t events.EventType, msg string, meta map[string]string) {
	if h.nodeID != "" {
		meta["node_id"] = h.nodeID
	}
	h.events.Publish(&events.Event{Type: t, Message: msg, Metadata: meta})
}
