package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Coordinator metrics
	IsCoordinator = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "steward_is_coordinator",
			Help: "Whether this node is the elected coordinator (1 = coordinator, 0 = not)",
		},
	)

	CoordinatorTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steward_coordinator_transitions_total",
			Help: "Total number of coordinator transitions by direction",
		},
		[]string{"direction"},
	)

	// Recurrence metrics
	RecurrenceActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "steward_recurrence_active",
			Help: "Whether the sync up recurrence timer is armed (1 = armed, 0 = stopped)",
		},
	)

	SyncUpIntervalSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "steward_sync_up_interval_seconds",
			Help: "Currently configured sync up job interval in seconds (0 = disabled)",
		},
	)

	RecurrenceRestartsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "steward_recurrence_restarts_total",
			Help: "Total number of recurrence restarts caused by interval changes",
		},
	)

	SyncTicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steward_sync_ticks_total",
			Help: "Total number of sync up ticks by result",
		},
		[]string{"result"},
	)

	SyncTickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "steward_sync_tick_duration_seconds",
			Help:    "Duration of sync up ticks in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Job registration metrics
	JobRegistrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steward_job_registrations_total",
			Help: "Total number of job descriptor registrations by job type and result",
		},
		[]string{"job_type", "result"},
	)

	BootstrapRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steward_bootstrap_runs_total",
			Help: "Total number of bootstrap attempts by path and outcome",
		},
		[]string{"path", "outcome"},
	)

	// Thread pool metrics
	ThreadPoolTasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steward_threadpool_tasks_total",
			Help: "Total number of thread pool task executions by kind and result",
		},
		[]string{"kind", "result"},
	)

	ThreadPoolScheduled = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "steward_threadpool_scheduled",
			Help: "Number of armed timers in the thread pool",
		},
	)

	// Raft metrics
	RaftPeers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "steward_raft_peers_total",
			Help: "Total number of Raft peers in the cluster",
		},
	)

	RaftLogIndex = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "steward_raft_log_index",
			Help: "Last Raft log index",
		},
	)

	RaftAppliedIndex = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "steward_raft_applied_index",
			Help: "Last applied Raft log index",
		},
	)

	// Metadata store metrics
	MetadataDocumentsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "steward_metadata_documents_total",
			Help: "Number of documents in the local metadata store by index",
		},
		[]string{"index"},
	)
)

func init() {
	prometheus.MustRegister(IsCoordinator)
	prometheus.MustRegister(CoordinatorTransitionsTotal)
	prometheus.MustRegister(RecurrenceActive)
	prometheus.MustRegister(SyncUpIntervalSeconds)
	prometheus.MustRegister(RecurrenceRestartsTotal)
	prometheus.MustRegister(SyncTicksTotal)
	prometheus.MustRegister(SyncTickDuration)
	prometheus.MustRegister(JobRegistrationsTotal)
	prometheus.MustRegister(BootstrapRunsTotal)
	prometheus.MustRegister(ThreadPoolTasksTotal)
	prometheus.MustRegister(ThreadPoolScheduled)
	prometheus.MustRegister(RaftPeers)
	prometheus.MustRegister(RaftLogIndex)
	prometheus.MustRegister(RaftAppliedIndex)
	prometheus.MustRegister(MetadataDocumentsTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
