package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTimerDuration(t *testing.T) {
	first := NewTimer()
	time.Sleep(20 * time.Millisecond)
	second := NewTimer()
	time.Sleep(20 * time.Millisecond)

	assert.GreaterOrEqual(t, first.Duration(), 40*time.Millisecond)
	assert.Greater(t, first.Duration(), second.Duration())
}

func TestTimerObserveDuration(t *testing.T) {
	ticks := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_tick_duration_seconds",
		Help:    "Test tick duration",
		Buckets: prometheus.DefBuckets,
	})

	NewTimer().ObserveDuration(ticks)
	NewTimer().ObserveDuration(ticks)

	assert.Equal(t, 1, testutil.CollectAndCount(ticks))
}

func TestTimerObserveDurationVec(t *testing.T) {
	runs := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "test_bootstrap_duration_seconds",
			Help:    "Test bootstrap duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	NewTimer().ObserveDurationVec(runs, "delayed")
	NewTimer().ObserveDurationVec(runs, "startup")

	assert.Equal(t, 2, testutil.CollectAndCount(runs))
}

func TestCollectorsRegistered(t *testing.T) {
	SyncTicksTotal.WithLabelValues("ok").Add(0)
	families, err := prometheus.DefaultGatherer.Gather()
	assert.NoError(t, err)

	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	for _, want := range []string{"steward_is_coordinator", "steward_sync_ticks_total", "steward_sync_up_interval_seconds"} {
		assert.True(t, names[want], want)
	}
}
