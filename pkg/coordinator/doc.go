/*
Package coordinator runs cluster-wide maintenance on the elected coordinator
node only.

# Architecture

	leader.Source ──edges──▶ Handler ──Start/Stop/Restart──▶ Controller ──▶ threadpool
	config.IntSetting ─(old,new)─▶ │                                           │
	lifecycle.Registry ─before-shutdown─▶ │                           Work (routing sync)
	                                 ├─RegisterAsync─▶ Registrar ──▶ MetadataClient
	                                 └─one-shot───────▶ bootstrap (once per term)

Controller owns at most one fixed-delay timer. Every armed timer carries a
generation number; Stop and Restart bump it under the controller lock, so a
timer that fires late finds itself stale and does not run the work. A tick
that was already admitted finishes. Work errors and panics are logged and
counted and the recurrence keeps going.

Handler is a two-state machine, NotCoordinator and Coordinator. On
acquisition it:

  - schedules the bootstrap one-shot, delayed by the current interval
  - registers the STATS_COLLECTOR job descriptor in .steward-jobs on its own
    goroutine (5 minute interval, 20 second lock, no jitter, refresh
    immediate). Failures are logged and not retried.
  - starts the Controller at the current interval unless it is running

On loss it stops the Controller and cancels the pending one-shot. Interval
changes are recorded in any state and restart the Controller only while
coordinator; an interval of zero stops it. All transitions hold the handler
lock, which is always taken before the controller lock, so a loss and an
interval change arriving together always end with the Controller stopped.

# Bootstrap

The bootstrap can be triggered twice per term: by the delayed one-shot and
by StartupListener, which the redeployer calls once its start-up pass is
done. A term guard lets the first caller run it; the other is logged and
counted as a duplicate. Each acquisition starts a new term, so the guard
never needs resetting.

# Usage

	pool := threadpool.New()
	ctrl := coordinator.NewController(pool, "sync-up")
	h := coordinator.NewHandler(ctrl, pool, syncer.Sync, cfg.SyncUpJobIntervalSeconds,
		coordinator.WithRegistrar(coordinator.NewRegistrar(node, broker)),
		coordinator.WithBootstrap(redeployer.Bootstrap),
		coordinator.WithEvents(broker),
	)
	_ = h.Attach(source, interval, hooks)
*/
package coordinator
