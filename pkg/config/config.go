package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// MaxSyncUpIntervalSeconds is the largest accepted sync up interval
const MaxSyncUpIntervalSeconds = 86400

// ErrInvalidConfig is wrapped by Validate errors
var ErrInvalidConfig = errors.New("invalid config")

// Config is the node configuration file
type Config struct {
	NodeID      string `yaml:"node_id"`
	BindAddr    string `yaml:"bind_addr"`
	DataDir     string `yaml:"data_dir"`
	Peers       []Peer `yaml:"peers"`
	MetricsAddr string `yaml:"metrics_addr"`

	// Standalone runs without raft: the node is always the coordinator.
	Standalone bool `yaml:"standalone"`

	Log LogConfig `yaml:"log"`

	// SyncUpJobIntervalSeconds is the live-reloadable sync up period.
	// Zero disables the sync up job.
	SyncUpJobIntervalSeconds int `yaml:"sync_up_job_interval_seconds"`

	StatsCollector StatsCollectorConfig `yaml:"stats_collector"`
	ThreadPool     ThreadPoolConfig     `yaml:"thread_pool"`
}

// Peer is another voter of the raft cluster
type Peer struct {
	ID      string `yaml:"id"`
	Address string `yaml:"address"`
}

// LogConfig configures pkg/log
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// StatsCollectorConfig shapes the stats collector job descriptor
type StatsCollectorConfig struct {
	IntervalMinutes     int   `yaml:"interval_minutes"`
	LockDurationSeconds int64 `yaml:"lock_duration_seconds"`
}

// ThreadPoolConfig bounds the coordinator thread pool
type ThreadPoolConfig struct {
	MaxConcurrent int `yaml:"max_concurrent"`
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.NodeID == "" {
		c.NodeID = "node-" + uuid.New().String()[:8]
	}
	if c.BindAddr == "" {
		c.BindAddr = "127.0.0.1:7946"
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = "127.0.0.1:9090"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.StatsCollector.IntervalMinutes == 0 {
		c.StatsCollector.IntervalMinutes = 5
	}
	if c.StatsCollector.LockDurationSeconds == 0 {
		c.StatsCollector.LockDurationSeconds = 20
	}
	if c.ThreadPool.MaxConcurrent == 0 {
		c.ThreadPool.MaxConcurrent = 8
	}
}

// Parse decodes a YAML document, rejecting unknown keys, and applies defaults.
// An absent sync_up_job_interval_seconds keeps the default of 10 seconds.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{SyncUpJobIntervalSeconds: 10}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// Load reads and parses the file at path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Validate checks fields that cannot be coerced into something safe
func (c *Config) Validate() error {
	if strings.TrimSpace(c.NodeID) == "" {
		return fmt.Errorf("%w: node_id is empty", ErrInvalidConfig)
	}
	if !c.Standalone {
		if _, _, err := net.SplitHostPort(c.BindAddr); err != nil {
			return fmt.Errorf("%w: bind_addr %q: %v", ErrInvalidConfig, c.BindAddr, err)
		}
	}
	seen := map[string]bool{c.NodeID: true}
	for _, p := range c.Peers {
		if p.ID == "" || p.Address == "" {
			return fmt.Errorf("%w: peers need both id and address", ErrInvalidConfig)
		}
		if seen[p.ID] {
			return fmt.Errorf("%w: duplicate peer id %q", ErrInvalidConfig, p.ID)
		}
		seen[p.ID] = true
	}
	if c.StatsCollector.IntervalMinutes < 0 {
		return fmt.Errorf("%w: stats_collector.interval_minutes must be > 0", ErrInvalidConfig)
	}
	if c.StatsCollector.LockDurationSeconds < 0 {
		return fmt.Errorf("%w: stats_collector.lock_duration_seconds must be > 0", ErrInvalidConfig)
	}
	return nil
}

// SyncUpInterval returns the sync up interval with out-of-range values
// mapped to zero, which disables the job. coerced reports whether that
// happened.
func (c *Config) SyncUpInterval() (seconds int, coerced bool) {
	return NormalizeInterval(c.SyncUpJobIntervalSeconds)
}

// NormalizeInterval maps negative or oversized intervals to zero
func NormalizeInterval(seconds int) (int, bool) {
	if seconds < 0 || seconds > MaxSyncUpIntervalSeconds {
		return 0, true
	}
	return seconds, false
}
