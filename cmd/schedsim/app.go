package main

import (
	"fmt"

	"github.com/flashbots/schedsim/cmd/common"
	rootcommon "github.com/flashbots/schedsim/common"
	"github.com/urfave/cli/v2"
)

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "YAML configuration file",
		EnvVars: []string{"SCHEDSIM_CONFIG"},
	}
	outputDirFlag = &cli.StringFlag{
		Name:  "output-dir",
		Usage: "directory receiving round-data.csv (default \"" + common.DefaultOutputDir + "\")",
	}
	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "debug, info, warn or error",
	}
	logJSONFlag = &cli.BoolFlag{
		Name:  "log-json",
		Usage: "log in JSON",
	}
	samplesFlag = &cli.IntFlag{
		Name:  "samples",
		Usage: "recorded cycles per sweep point",
	}
	workersFlag = &cli.IntFlag{
		Name:  "workers",
		Usage: "concurrent engines per sweep point; results are reproducible only with 1",
	}
	seedFlag = &cli.Uint64Flag{
		Name:  "seed",
		Usage: "seed of every random stream; 0 picks one at random",
	}
)

// newApp builds the command tree. The shell builds a fresh one for every
// line it reads.
func newApp(s *session) *cli.App {
	app := &cli.App{
		Name:    rootcommon.PackageName,
		Usage:   "simulate slot reservation for anonymous broadcast",
		Version: rootcommon.Version,
		Flags: []cli.Flag{
			configFlag,
			outputDirFlag,
			logLevelFlag,
			logJSONFlag,
			samplesFlag,
			workersFlag,
			seedFlag,
		},
		Before:    s.before,
		Action:    s.noCommand,
		Writer:    s.out,
		ErrWriter: s.out,
		Commands: []*cli.Command{
			footprintCommand(s),
			chaumCommand(s),
			pfitzmannCommand(s),
			{
				Name:   "run",
				Usage:  "run the sweeps listed in the config file",
				Action: s.runConfigured,
			},
			{
				Name:   "write",
				Usage:  "append the queued datasets to round-data.csv",
				Action: func(c *cli.Context) error { return s.write() },
			},
			{
				Name:  "clear",
				Usage: "drop the queued datasets",
				Action: func(c *cli.Context) error {
					fmt.Fprintf(s.out, "Dropped %d dataset(s)\n", s.store.Clear())
					return nil
				},
			},
			{
				Name:      "script",
				Usage:     "execute shell commands from files",
				ArgsUsage: "FILE...",
				Action:    s.runScripts,
			},
			{
				Name:   "shell",
				Usage:  "read commands interactively",
				Action: s.runShell,
			},
			{
				Name:      "echo",
				Usage:     "print the arguments",
				ArgsUsage: "TEXT...",
				Action:    s.echo,
			},
			{
				Name:    "exit",
				Aliases: []string{"quit"},
				Usage:   "leave the shell or stop the script",
				Action:  func(c *cli.Context) error { return errExit },
			},
			serveCommand(s),
		},
	}
	// Errors are reported by main or by the shell; neither should exit the
	// process from inside a command.
	app.ExitErrHandler = func(c *cli.Context, err error) {}
	return app
}

// before loads the configuration once per session and applies the global
// flags of every invocation on top of it.
func (s *session) before(c *cli.Context) error {
	if s.cfg == nil {
		cfg := common.DefaultConfig()
		if path := c.String(configFlag.Name); path != "" {
			loaded, err := common.LoadConfig(path)
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}
			cfg = loaded
		}
		s.cfg = cfg
	}

	cfg := *s.cfg
	cfg.ApplyOverrides(common.Overrides{
		OutputDir: c.String(outputDirFlag.Name),
		LogLevel:  c.String(logLevelFlag.Name),
		LogJSON:   c.Bool(logJSONFlag.Name),
		Samples:   c.Int(samplesFlag.Name),
		Workers:   c.Int(workersFlag.Name),
		Seed:      c.Uint64(seedFlag.Name),
	})
	if err := cfg.Validate(); err != nil {
		return cli.Exit(fmt.Sprintf("invalid configuration: %v", err), 2)
	}
	s.cfg = &cfg

	if s.log == nil {
		log, err := s.cfg.Logger()
		if err != nil {
			return cli.Exit(err.Error(), 2)
		}
		s.log = log
	}
	return nil
}

func (s *session) noCommand(c *cli.Context) error {
	if c.Args().Present() {
		return fmt.Errorf("the command %q is unknown", c.Args().First())
	}
	if s.inShell {
		return nil
	}
	return cli.ShowAppHelp(c)
}

func (s *session) echo(c *cli.Context) error {
	if !c.Args().Present() {
		return fmt.Errorf("echo needs an argument")
	}
	for i, arg := range c.Args().Slice() {
		if i > 0 {
			fmt.Fprint(s.out, " ")
		}
		fmt.Fprint(s.out, arg)
	}
	fmt.Fprintln(s.out)
	return nil
}
