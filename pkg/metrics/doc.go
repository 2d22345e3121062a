/*
Package metrics provides Prometheus metrics and health endpoints for Steward.

All collectors are package-level variables registered with the default
registry in init(). Handler serves them in the Prometheus text format.

# Metric Catalog

Coordinator:

	steward_is_coordinator                    gauge, 1 while this node is coordinator
	steward_coordinator_transitions_total     counter{direction=acquired|lost}
	steward_bootstrap_runs_total              counter{path=delayed|startup, outcome=ok|error|duplicate|skipped}

Recurrence:

	steward_recurrence_active                 gauge, 1 while the sync up timer is armed
	steward_sync_up_interval_seconds          gauge, configured interval (0 = disabled)
	steward_recurrence_restarts_total         counter
	steward_sync_ticks_total                  counter{result=ok|error|panic|stale}
	steward_sync_tick_duration_seconds        histogram

Jobs:

	steward_job_registrations_total           counter{job_type, result=success|failure}

Thread pool:

	steward_threadpool_tasks_total            counter{kind=once|recurring, result=ok|panic}
	steward_threadpool_scheduled              gauge, armed timers

Raft and metadata store:

	steward_raft_peers_total                  gauge
	steward_raft_log_index                    gauge
	steward_raft_applied_index                gauge
	steward_metadata_documents_total          gauge{index}

# Timing

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.SyncTickDuration)

# Health

Components report through RegisterComponent and UpdateComponent. /health
is healthy when every component is; /ready additionally requires the
critical components (raft, store and coordinator by default, overridable
with SetCriticalComponents) to be registered and healthy; /live always
answers 200 while the process serves HTTP.
*/
package metrics
