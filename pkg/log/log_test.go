package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("debug"))
	assert.Equal(t, ErrorLevel, ParseLevel("error"))
	assert.Equal(t, InfoLevel, ParseLevel(""))
	assert.Equal(t, InfoLevel, ParseLevel("DEBUG"))
}

func TestInitJSON(t *testing.T) {
	prev, prevLevel := Logger, zerolog.GlobalLevel()
	defer func() {
		Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	}()

	var buf bytes.Buffer
	Init(Config{Level: WarnLevel, JSONOutput: true, Output: &buf})

	component := WithComponent("test")
	component.Info().Msg("dropped")
	job := WithJob("STATS_COLLECTOR", "stats-collector")
	job.Warn().Msg("kept")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "STATS_COLLECTOR", entry["job_name"])
	assert.Equal(t, "stats-collector", entry["job_type"])
	assert.Equal(t, "warn", entry["level"])
}
