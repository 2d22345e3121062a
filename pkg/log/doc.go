/*
Package log provides structured logging for Steward using zerolog.

The package wraps a single global zerolog.Logger. Components never build
their own loggers from scratch; they derive a child logger carrying a
"component" field once at construction time and keep it as a struct field.

# Configuration

	log.Init(log.Config{
		Level:      log.ParseLevel(cfg.Log.Level),
		JSONOutput: cfg.Log.JSON,
		Output:     os.Stdout,
	})

Levels:
  - debug: timer arming, config reload decisions, skipped bootstrap paths
  - info: coordinator transitions, recurrence start/stop, job registration
  - warn: coerced config values, watcher restarts
  - error: failed ticks, failed registration writes, raft errors

Until Init is called the global logger writes JSON to stderr, which keeps
package tests quiet enough while still surfacing errors.

# Context Loggers

	ctrlLog := log.WithComponent("recurrence")
	ctrlLog.Info().Dur("interval", interval).Msg("Starting sync up job")

	jobLog := log.WithJob("STATS_COLLECTOR", "stats-collector")
	jobLog.Error().Err(err).Msg("Failed to index stats collection job")

	nodeLog := log.WithNodeID("node-1")
	nodeLog.Info().Msg("Raft node bootstrapped")

Fields used across the codebase: component, node_id, job_name, job_type,
interval, generation, path.
*/
package log
