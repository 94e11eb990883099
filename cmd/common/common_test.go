package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/flashbots/schedsim/benchmark"
	"github.com/flashbots/schedsim/protocol"
	"github.com/stretchr/testify/require"
)

const exampleConfig = `
output_dir: out
log:
  level: debug
  json: true
samples: 50
workers: 4
seed: 7
http:
  listen_addr: 0.0.0.0:9000
  drain_duration: 2s
sweeps:
  - algorithm: Chaum
    clients: [1, 2, 5]
    ratio: 16
  - algorithm: Footprint
    clients: [10, 100]
    slots: 64
    bits: 8
    mode: multi
    withdraw: linear
    percentages: [0.001, 0.002]
    stop_on_convergence: true
  - algorithm: Pfitzmann
    slots_per_client: 4
    activity: 0.5
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(exampleConfig))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, "out", cfg.OutputDir)
	require.Equal(t, LogConfig{Level: "debug", JSON: true}, cfg.Log)
	require.Equal(t, 50, cfg.Samples)
	require.Equal(t, 4, cfg.Workers)
	require.Equal(t, uint64(7), cfg.Seed)
	require.Equal(t, "0.0.0.0:9000", cfg.HTTP.ListenAddr)
	require.Equal(t, 2*time.Second, cfg.HTTP.DrainDuration)
	// Unset values keep their defaults.
	require.Equal(t, DefaultConfig().HTTP.MetricsAddr, cfg.HTTP.MetricsAddr)

	require.Len(t, cfg.Sweeps, 3)
	require.Equal(t, protocol.AlgorithmChaum, cfg.Sweeps[0].Algorithm)
	require.Equal(t, []int{1, 2, 5}, cfg.Sweeps[0].Clients)
	require.Equal(t, 16, cfg.Sweeps[0].Ratio)

	fp := cfg.Sweeps[1]
	require.Equal(t, protocol.MultiSlot, fp.Mode)
	require.NotNil(t, fp.Withdraw)
	require.Equal(t, protocol.WithdrawLinear, *fp.Withdraw)
	require.Equal(t, []float64{0.001, 0.002}, fp.Percentages)
	require.True(t, fp.StopOnConvergence)

	require.NotNil(t, cfg.Sweeps[2].Activity)
	require.Equal(t, 0.5, *cfg.Sweeps[2].Activity)
	require.Equal(t, 4, cfg.Sweeps[2].SlotsPerClient)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedsim.yaml")
	require.NoError(t, os.WriteFile(path, []byte("samples: 12\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 12, cfg.Samples)
	require.Equal(t, DefaultOutputDir, cfg.OutputDir)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = ParseConfig([]byte("sweeps:\n  - mode: sideways\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "sideways")
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Samples = 0
	cfg.Workers = -1
	cfg.Log.Level = "loud"
	cfg.Sweeps = append(cfg.Sweeps, benchmark.Sweep{Algorithm: protocol.AlgorithmFootprint, Slots: 8, Bits: 12})
	err := cfg.Validate()
	require.Error(t, err)
	require.ErrorIs(t, err, protocol.ErrInvalidFootprintBits)
	for _, fragment := range []string{"samples", "workers", "loud", "sweep 0"} {
		require.Contains(t, err.Error(), fragment)
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 5
	cfg.ApplyOverrides(Overrides{Samples: 3, LogJSON: true, ListenAddr: ":1"})

	require.Equal(t, 3, cfg.Samples)
	require.True(t, cfg.Log.JSON)
	require.Equal(t, ":1", cfg.HTTP.ListenAddr)
	require.Equal(t, uint64(5), cfg.Seed)
	require.Equal(t, 1, cfg.Workers)

	runner := cfg.RunnerConfig(nil, nil)
	require.Equal(t, 3, runner.Samples)
	require.Equal(t, uint64(5), runner.Seed)

	httpCfg := cfg.HTTPServerConfig(nil)
	require.Equal(t, ":1", httpCfg.ListenAddr)
	require.Equal(t, cfg.HTTP.GracefulShutdownDuration, httpCfg.GracefulShutdownDuration)
}

func TestResolveSeed(t *testing.T) {
	cfg := DefaultConfig()
	seed := cfg.ResolveSeed()
	require.NotZero(t, seed)
	require.Equal(t, seed, cfg.ResolveSeed())
}
