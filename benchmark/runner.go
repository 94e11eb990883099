package benchmark

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/flashbots/schedsim/aggregator"
	"github.com/flashbots/schedsim/metrics"
	"github.com/flashbots/schedsim/protocol"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultMaxStalled bounds the consecutive cycles without a successful
	// reservation a worker tolerates before giving up on a point.
	DefaultMaxStalled = 10_000

	DefaultProgressInterval = 100 * time.Millisecond
)

// ErrStalled is returned when a point keeps producing cycles in which
// nobody reserved a slot, so its sample budget can never be filled.
var ErrStalled = errors.New("sweep point stalled")

// RunnerConfig configures a Runner. Zero values select the defaults.
type RunnerConfig struct {
	// Samples is the number of recorded cycles per point.
	Samples int

	// Workers is the number of engines run concurrently per point. Results
	// are reproducible for a given seed only with a single worker.
	Workers int

	// Seed derives the random stream of every (point, worker) pair.
	Seed uint64

	MaxStalled       int
	ProgressInterval time.Duration

	Log     *slog.Logger
	Metrics *metrics.Collectors

	// Progress, if set, is called from a single goroutine while a point
	// runs and once more when it is finished.
	Progress func(p Point, progress float64)

	// OnResult, if set, is called after every finished point.
	OnResult func(*Result)
}

// Result is the outcome of one sweep point.
type Result struct {
	Point   Point
	Dataset *aggregator.RoundDataset

	Duration time.Duration
}

// Runner drives engines until the sample budget of each point is filled.
type Runner struct {
	cfg RunnerConfig
	log *slog.Logger
}

func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.Samples <= 0 {
		cfg.Samples = DefaultSamples
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxStalled <= 0 {
		cfg.MaxStalled = DefaultMaxStalled
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = DefaultProgressInterval
	}
	log := cfg.Log
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{cfg: cfg, log: log}
}

// Run executes every point of the sweep in order. Points without active
// clients are skipped with a warning; any other failure aborts the sweep
// and returns the results gathered so far.
func (r *Runner) Run(ctx context.Context, sweep Sweep) ([]*Result, error) {
	points, err := sweep.Points()
	if err != nil {
		return nil, fmt.Errorf("invalid sweep: %w", err)
	}

	r.log.Info("Starting sweep", "algorithm", sweep.Algorithm, "points", len(points), "samples", r.cfg.Samples, "workers", r.cfg.Workers)
	results := make([]*Result, 0, len(points))
	for _, p := range points {
		res, err := r.RunPoint(ctx, p)
		if errors.Is(err, protocol.ErrNoActiveClients) {
			r.log.Warn("Skipping point without active clients", "point", p.Index, "clients", p.Meta.Clients, "activity", p.Meta.Activity)
			continue
		}
		if err != nil {
			return results, err
		}
		results = append(results, res)
		if r.cfg.OnResult != nil {
			r.cfg.OnResult(res)
		}
	}
	return results, nil
}

// RunPoint fills the sample budget of a single point.
func (r *Runner) RunPoint(ctx context.Context, p Point) (*Result, error) {
	tracker := aggregator.NewSampleTracker(r.cfg.Samples)
	dataset := aggregator.NewRoundDataset(p.Meta)

	workers := make([]*worker, r.cfg.Workers)
	for i := range workers {
		w := &worker{runner: r, point: p, dataset: dataset, tracker: &reportingTracker{Tracker: tracker}}
		rng := rand.New(rand.NewPCG(r.cfg.Seed, streamID(p.Index, i)))
		engine, err := p.NewEngine(rng, w.tracker, dataset)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		w.engine = engine
		workers[i] = w
	}

	log := r.log.With("point", p.Index, "algorithm", p.Meta.Algorithm, "clients", p.Meta.Clients, "slots", p.Meta.Slots)
	log.Info("Running sweep point", "samples", tracker.Samples(), "workers", len(workers))
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for _, w := range workers {
		g.Go(func() error { return w.run(gctx) })
	}

	stop := r.reportProgress(p, tracker)
	err := g.Wait()
	stop()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	if r.cfg.Progress != nil {
		r.cfg.Progress(p, tracker.Progress())
	}

	res := &Result{
		Point:    p,
		Dataset:  dataset,
		Duration: time.Since(start),
	}
	r.cfg.Metrics.ObservePoint(string(p.Meta.Algorithm), res.Duration)

	summary := dataset.Summarize()
	log.Info("Sweep point finished",
		"samples", summary.Samples,
		"unsuccessful", summary.Unsuccessful,
		"meanData", summary.MeanData,
		"meanRequiredRounds", summary.MeanRequiredRounds,
		"duration", res.Duration)
	return res, nil
}

// reportProgress polls the tracker until the returned stop function is
// called. stop waits for the poller to exit.
func (r *Runner) reportProgress(p Point, tracker *aggregator.SampleTracker) (stop func()) {
	if r.cfg.Progress == nil {
		return func() {}
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(r.cfg.ProgressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				r.cfg.Progress(p, tracker.Progress())
			}
		}
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}

// streamID gives every (point, worker) pair its own PCG stream.
func streamID(point, worker int) uint64 {
	return uint64(point)<<32 | uint64(uint32(worker))
}

type worker struct {
	runner  *Runner
	point   Point
	dataset *aggregator.RoundDataset
	engine  protocol.Engine
	tracker *reportingTracker
}

func (w *worker) run(ctx context.Context) error {
	cfg := w.runner.cfg
	algorithm := string(w.engine.Algorithm())
	stalled := 0
	for !w.tracker.IsFinished() {
		if err := ctx.Err(); err != nil {
			return err
		}

		w.tracker.reported = false
		out, err := w.engine.Schedule()
		switch {
		case errors.Is(err, protocol.ErrNoSuccessfulReservations):
			w.dataset.AddUnsuccessful()
			cfg.Metrics.ObserveCycle(algorithm, metrics.ResultNoReservations, out.RequiredRounds, out.Data)
			w.runner.log.Debug("Cycle without reservations", "point", w.point.Index, "collisions", out.Collisions, "emptySlots", out.EmptySlots)
			stalled++
			if stalled >= cfg.MaxStalled {
				return fmt.Errorf("%d consecutive cycles without a reservation: %w", stalled, ErrStalled)
			}
			continue
		case err != nil:
			return err
		}

		stalled = 0
		result := metrics.ResultUnrecorded
		if w.tracker.reported {
			result = metrics.ResultRecorded
		}
		cfg.Metrics.ObserveCycle(algorithm, result, out.RequiredRounds, out.Data)
	}
	return nil
}

// reportingTracker remembers whether the engine's last cycle was recorded.
// Each worker owns one.
type reportingTracker struct {
	protocol.Tracker
	reported bool
}

func (t *reportingTracker) ReportRound() bool {
	t.reported = t.Tracker.ReportRound()
	return t.reported
}
