package common

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := SetupLogger(&LoggingOpts{Level: "warn", JSON: true, Output: &buf})
	require.NoError(t, err)

	log.Info("dropped")
	log.Warn("kept", "clients", 10)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	require.Equal(t, "kept", record["msg"])
	require.Equal(t, float64(10), record["clients"])
	require.Equal(t, Version, record["version"])
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, level)

	level, err = ParseLevel("")
	require.NoError(t, err)
	require.Equal(t, slog.LevelInfo, level)

	_, err = ParseLevel("verbose")
	require.Error(t, err)

	_, err = SetupLogger(&LoggingOpts{Level: "verbose"})
	require.Error(t, err)
}
