package coordinator

import (
	"sync/atomic"
)

// BootstrapPath names who triggered a bootstrap run
type BootstrapPath string

const (
	// PathDelayed is the one-shot scheduled when leadership is acquired
	PathDelayed BootstrapPath = "delayed"
	// PathStartup is the redeployer's start-up completion callback
	PathStartup BootstrapPath = "startup"
)

// termGuard lets one bootstrap run per coordinator term. It stores the
// last term that was claimed; terms only grow, so a new term needs no reset.
type termGuard struct {
	claimed atomic.Uint64
}

// claim reports whether the caller is the first to claim term
func (g *termGuard) claim(term uint64) bool {
	for {
		cur := g.claimed.Load()
		if cur >= term {
			return false
		}
		if g.claimed.CompareAndSwap(cur, term) {
			return true
		}
	}
}
