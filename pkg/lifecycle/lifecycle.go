package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cuemby/steward/pkg/log"
	"github.com/rs/zerolog"
)

// ErrShuttingDown is returned when a hook is registered after Shutdown started
var ErrShuttingDown = errors.New("lifecycle: shutdown in progress")

// Hook runs before the node shuts down
type Hook func(ctx context.Context) error

type namedHook struct {
	name string
	fn   Hook
}

// Registry collects before-shutdown hooks
type Registry struct {
	logger zerolog.Logger

	mu       sync.Mutex
	hooks    []namedHook
	shutdown bool
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{logger: log.WithComponent("lifecycle")}
}

// OnBeforeShutdown registers fn under name
func (r *Registry) OnBeforeShutdown(name string, fn Hook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.shutdown {
		return fmt.Errorf("%w: cannot register %s", ErrShuttingDown, name)
	}
	r.hooks = append(r.hooks, namedHook{name: name, fn: fn})
	return nil
}

// Shutdown runs every hook once, most recently registered first. A failing
// hook does not stop the others. Only the first call runs the hooks.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if r.shutdown {
		r.mu.Unlock()
		return nil
	}
	r.shutdown = true
	hooks := r.hooks
	r.hooks = nil
	r.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		r.logger.Debug().Str("hook", h.name).Msg("Running shutdown hook")
		if err := h.fn(ctx); err != nil {
			r.logger.Error().Err(err).Str("hook", h.name).Msg("Shutdown hook failed")
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
		}
	}
	return errors.Join(errs...)
}
