package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cuemby/steward/pkg/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestConfigCheck(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte("node_id: node-1\nsync_up_job_interval_seconds: 90000\n"), 0o600))
	assert.NoError(t, execute(t, "config", "check", good), "out of range interval is coerced, not rejected")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("sync_up_interval: 10\n"), 0o600))
	assert.Error(t, execute(t, "config", "check", bad))
}

func TestJobParse(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "job.json")
	require.NoError(t, os.WriteFile(good, []byte(`{
		"name": "STATS_COLLECTOR",
		"enabled": true,
		"schedule": {"interval": {"start_time": 1709287200000, "period": 5, "unit": "Minutes"}},
		"enabled_time": 1709287200000,
		"last_update_time": 1709287200000,
		"lock_duration_seconds": 20,
		"type": "STATS_COLLECTOR"
	}`), 0o600))
	assert.NoError(t, execute(t, "job", "parse", good))

	unknown := filepath.Join(dir, "unknown.json")
	require.NoError(t, os.WriteFile(unknown, []byte(`{"name":"x","type":"REINDEX"}`), 0o600))
	assert.ErrorIs(t, execute(t, "job", "parse", unknown), jobs.ErrNoSuchJobType)
}

func TestJobRender(t *testing.T) {
	assert.NoError(t, execute(t, "job", "render"))
	assert.Error(t, execute(t, "job", "render", "--interval-minutes", "0"))
}
