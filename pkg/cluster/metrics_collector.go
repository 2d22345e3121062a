package cluster

import (
	"context"
	"time"

	"github.com/cuemby/steward/pkg/metrics"
)

// MetricsCollector periodically exports raft and metadata store gauges
type MetricsCollector struct {
	node     *Node
	indices  []string
	interval time.Duration
	stopCh   chan struct{}
}

// NewMetricsCollector creates a collector reporting document counts for indices
func NewMetricsCollector(node *Node, indices ...string) *MetricsCollector {
	return &MetricsCollector{
		node:     node,
		indices:  indices,
		interval: 15 * time.Second,
		stopCh:   make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *MetricsCollector) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *MetricsCollector) Stop() {
	close(c.stopCh)
}

func (c *MetricsCollector) collect() {
	c.collectRaftMetrics()
	c.collectDocumentMetrics()
}

func (c *MetricsCollector) collectRaftMetrics() {
	stats := c.node.Stats()
	if lastIndex, ok := stats["last_log_index"].(uint64); ok {
		metrics.RaftLogIndex.Set(float64(lastIndex))
	}
	if appliedIndex, ok := stats["applied_index"].(uint64); ok {
		metrics.RaftAppliedIndex.Set(float64(appliedIndex))
	}

	members, err := c.node.Members()
	if err != nil {
		metrics.UpdateComponent("raft", false, err.Error())
		return
	}
	metrics.RaftPeers.Set(float64(len(members)))

	if c.node.LeaderAddr() == "" {
		metrics.UpdateComponent("raft", false, "no leader")
		return
	}
	metrics.UpdateComponent("raft", true, "")
}

func (c *MetricsCollector) collectDocumentMetrics() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, index := range c.indices {
		docs, err := c.node.List(ctx, index)
		if err != nil {
			metrics.UpdateComponent("store", false, err.Error())
			return
		}
		metrics.MetadataDocumentsTotal.WithLabelValues(index).Set(float64(len(docs)))
	}
	metrics.UpdateComponent("store", true, "")
}
