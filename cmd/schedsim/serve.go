package main

import (
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/flashbots/schedsim/api/httpserver"
	"github.com/flashbots/schedsim/cmd/common"
	rootcommon "github.com/flashbots/schedsim/common"
	"github.com/flashbots/schedsim/metrics"
	"github.com/urfave/cli/v2"
)

func serveCommand(s *session) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve the benchmark API over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen-addr", Usage: "API listen address"},
			&cli.StringFlag{Name: "metrics-addr", Usage: "prometheus listen address"},
			&cli.BoolFlag{Name: "pprof", Usage: "enable /debug/pprof"},
		},
		Action: s.serve,
	}
}

func (s *session) serve(c *cli.Context) error {
	s.cfg.ApplyOverrides(common.Overrides{
		ListenAddr:  c.String("listen-addr"),
		MetricsAddr: c.String("metrics-addr"),
		EnablePprof: c.Bool("pprof"),
	})

	metricsSrv, err := metrics.New(rootcommon.PackageName, s.cfg.HTTP.MetricsAddr)
	if err != nil {
		return err
	}

	// A zero seed is left unresolved so that every request draws its own.
	handlerCfg := &httpserver.SimulationHandlerConfig{
		Runner:     s.cfg.RunnerConfig(s.log, metricsSrv.Collectors()),
		Store:      s.store,
		OutputDir:  s.cfg.OutputDir,
		MaxWorkers: max(runtime.NumCPU(), s.cfg.Workers),
		Log:        s.log,
	}
	handler := httpserver.NewSimulationHandler(handlerCfg)

	httpCfg := s.cfg.HTTPServerConfig(s.log)
	httpCfg.Metrics = metricsSrv
	srv, err := httpserver.New(httpCfg, handler)
	if err != nil {
		return err
	}
	handlerCfg.Ready = srv.IsReady

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv.RunInBackground()
	<-ctx.Done()
	s.log.Info("Shutting down")
	srv.Shutdown()
	return nil
}
