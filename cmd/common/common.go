// Package common provides the configuration shared by the schedsim
// commands.
//
// A YAML file sets defaults for the sweep runner, the logger, the output
// directory and the HTTP control API, and may list sweeps to run with the
// "run" command. Command-line flags override file values.
package common

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/flashbots/schedsim/api/httpserver"
	"github.com/flashbots/schedsim/benchmark"
	rootcommon "github.com/flashbots/schedsim/common"
	"github.com/flashbots/schedsim/metrics"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// DefaultOutputDir is where round-data.csv is written.
const DefaultOutputDir = "benchmark-data"

type Config struct {
	// OutputDir receives round-data.csv.
	OutputDir string `yaml:"output_dir"`

	Log LogConfig `yaml:"log"`

	// Samples is the number of recorded cycles per sweep point.
	Samples int `yaml:"samples"`
	// Workers is the number of concurrent engines per sweep point.
	Workers int `yaml:"workers"`
	// Seed seeds every random stream. Zero picks a random seed.
	Seed uint64 `yaml:"seed"`

	HTTP HTTPConfig `yaml:"http"`

	Sweeps []benchmark.Sweep `yaml:"sweeps"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type HTTPConfig struct {
	ListenAddr               string        `yaml:"listen_addr"`
	MetricsAddr              string        `yaml:"metrics_addr"`
	EnablePprof              bool          `yaml:"enable_pprof"`
	DrainDuration            time.Duration `yaml:"drain_duration"`
	GracefulShutdownDuration time.Duration `yaml:"graceful_shutdown_duration"`
	ReadTimeout              time.Duration `yaml:"read_timeout"`
	WriteTimeout             time.Duration `yaml:"write_timeout"`
}

// DefaultConfig returns the configuration used without a config file.
func DefaultConfig() *Config {
	return &Config{
		OutputDir: DefaultOutputDir,
		Log:       LogConfig{Level: "info"},
		Samples:   benchmark.DefaultSamples,
		Workers:   1,
		HTTP: HTTPConfig{
			ListenAddr:               "127.0.0.1:8080",
			MetricsAddr:              "127.0.0.1:8090",
			DrainDuration:            5 * time.Second,
			GracefulShutdownDuration: 10 * time.Second,
			ReadTimeout:              30 * time.Second,
			WriteTimeout:             10 * time.Minute,
		},
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML on top of DefaultConfig.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var result *multierror.Error
	if c.OutputDir == "" {
		result = multierror.Append(result, fmt.Errorf("output_dir must not be empty"))
	}
	if _, err := rootcommon.ParseLevel(c.Log.Level); err != nil {
		result = multierror.Append(result, err)
	}
	if c.Samples <= 0 {
		result = multierror.Append(result, fmt.Errorf("samples must be positive, got %d", c.Samples))
	}
	if c.Workers <= 0 {
		result = multierror.Append(result, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	for i, s := range c.Sweeps {
		if _, err := s.Points(); err != nil {
			result = multierror.Append(result, fmt.Errorf("sweep %d (%s): %w", i, s.Algorithm, err))
		}
	}
	return result.ErrorOrNil()
}

// ResolveSeed replaces a zero seed with a random one and returns the seed
// in use.
func (c *Config) ResolveSeed() uint64 {
	for c.Seed == 0 {
		c.Seed = rand.Uint64()
	}
	return c.Seed
}

// Logger builds the process logger.
func (c *Config) Logger() (*slog.Logger, error) {
	return rootcommon.SetupLogger(&rootcommon.LoggingOpts{Level: c.Log.Level, JSON: c.Log.JSON})
}

// RunnerConfig returns the sweep runner settings.
func (c *Config) RunnerConfig(log *slog.Logger, collectors *metrics.Collectors) benchmark.RunnerConfig {
	return benchmark.RunnerConfig{
		Samples: c.Samples,
		Workers: c.Workers,
		Seed:    c.Seed,
		Log:     log,
		Metrics: collectors,
	}
}

// HTTPServerConfig returns the base server settings.
func (c *Config) HTTPServerConfig(log *slog.Logger) *httpserver.HTTPServerConfig {
	return &httpserver.HTTPServerConfig{
		ListenAddr:               c.HTTP.ListenAddr,
		MetricsAddr:              c.HTTP.MetricsAddr,
		EnablePprof:              c.HTTP.EnablePprof,
		Log:                      log,
		DrainDuration:            c.HTTP.DrainDuration,
		GracefulShutdownDuration: c.HTTP.GracefulShutdownDuration,
		ReadTimeout:              c.HTTP.ReadTimeout,
		WriteTimeout:             c.HTTP.WriteTimeout,
	}
}

// Overrides carries command-line values; zero values leave the file value
// untouched.
type Overrides struct {
	OutputDir   string
	LogLevel    string
	LogJSON     bool
	Samples     int
	Workers     int
	Seed        uint64
	ListenAddr  string
	MetricsAddr string
	EnablePprof bool
}

// ApplyOverrides copies every set override into the configuration.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.OutputDir != "" {
		c.OutputDir = o.OutputDir
	}
	if o.LogLevel != "" {
		c.Log.Level = o.LogLevel
	}
	if o.LogJSON {
		c.Log.JSON = true
	}
	if o.Samples != 0 {
		c.Samples = o.Samples
	}
	if o.Workers != 0 {
		c.Workers = o.Workers
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
	if o.ListenAddr != "" {
		c.HTTP.ListenAddr = o.ListenAddr
	}
	if o.MetricsAddr != "" {
		c.HTTP.MetricsAddr = o.MetricsAddr
	}
	if o.EnablePprof {
		c.HTTP.EnablePprof = true
	}
}
