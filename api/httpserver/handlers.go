package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"runtime"
	"time"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/flashbots/schedsim/aggregator"
	"github.com/flashbots/schedsim/benchmark"
	"github.com/flashbots/schedsim/protocol"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/atomic"
)

const (
	// DefaultMaxSamples caps the per-point sample budget of a request.
	DefaultMaxSamples = 10_000
	// DefaultMaxClients caps every client count of a requested sweep.
	DefaultMaxClients = 100_000
	// DefaultMaxSlots caps the slot count of every requested point.
	DefaultMaxSlots = 10_000_000
)

// SimulationHandlerConfig configures the simulation routes.
type SimulationHandlerConfig struct {
	// Runner holds the defaults for requests that leave samples, workers
	// or seed unset.
	Runner benchmark.RunnerConfig

	// Store queues datasets of requests that ask to keep them.
	Store *aggregator.Store

	// OutputDir is where queued datasets are written.
	OutputDir string

	MaxSamples int
	// MaxWorkers defaults to the number of CPUs.
	MaxWorkers int
	MaxClients int
	MaxSlots   int

	// Ready, if set, is consulted before a benchmark starts. A draining
	// server answers 503.
	Ready func() bool

	Log *slog.Logger
}

// SimulationHandler serves the benchmark API under /api/v1. Only one
// benchmark runs at a time.
type SimulationHandler struct {
	cfg  *SimulationHandlerConfig
	log  *slog.Logger
	busy atomic.Bool
}

func NewSimulationHandler(cfg *SimulationHandlerConfig) *SimulationHandler {
	if cfg.MaxSamples <= 0 {
		cfg.MaxSamples = DefaultMaxSamples
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = runtime.NumCPU()
	}
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = DefaultMaxClients
	}
	if cfg.MaxSlots <= 0 {
		cfg.MaxSlots = DefaultMaxSlots
	}
	if cfg.Store == nil {
		cfg.Store = aggregator.NewStore()
	}
	return &SimulationHandler{cfg: cfg, log: cfg.Log}
}

func (h *SimulationHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
		r.Use(func(next http.Handler) http.Handler {
			return httplogger.LoggingMiddlewareSlog(h.log, next)
		})

		r.Get("/algorithms", h.handleAlgorithms)
		r.Post("/benchmarks", h.handleBenchmark)
		r.Get("/datasets", h.handleListDatasets)
		r.Post("/datasets/write", h.handleWriteDatasets)
		r.Delete("/datasets", h.handleClearDatasets)
	})
}

// AlgorithmsResponse lists the accepted enumeration values.
type AlgorithmsResponse struct {
	Algorithms         []protocol.Algorithm `json:"algorithms"`
	WithdrawBehaviours []string             `json:"withdraw_behaviours"`
	Modes              []string             `json:"modes"`
	DefaultClients     []int                `json:"default_clients"`
}

// BenchmarkRequest is a sweep plus optional runner overrides.
type BenchmarkRequest struct {
	benchmark.Sweep

	Samples int    `json:"samples,omitempty"`
	Workers int    `json:"workers,omitempty"`
	Seed    uint64 `json:"seed,omitempty"`

	// Keep queues the datasets for a later write.
	Keep bool `json:"keep,omitempty"`
}

// PointResult is the summary of one finished sweep point.
type PointResult struct {
	aggregator.Summary
	DurationMs float64 `json:"duration_ms"`
}

type BenchmarkResponse struct {
	Seed    uint64        `json:"seed"`
	Results []PointResult `json:"results"`
}

type DatasetsResponse struct {
	Pending []aggregator.Summary `json:"pending"`
}

type WriteResponse struct {
	Path string `json:"path"`
	Rows int    `json:"rows"`
}

type ClearResponse struct {
	Cleared int `json:"cleared"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *SimulationHandler) handleAlgorithms(w http.ResponseWriter, r *http.Request) {
	resp := AlgorithmsResponse{
		Algorithms:     protocol.Algorithms,
		Modes:          []string{protocol.SingleSlot.String(), protocol.MultiSlot.String()},
		DefaultClients: benchmark.DefaultClients,
	}
	for _, b := range []protocol.WithdrawBehaviour{protocol.WithdrawStatic, protocol.WithdrawLinear, protocol.WithdrawReactive} {
		resp.WithdrawBehaviours = append(resp.WithdrawBehaviours, b.String())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SimulationHandler) handleBenchmark(w http.ResponseWriter, r *http.Request) {
	var req BenchmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	runnerCfg := h.cfg.Runner
	if req.Samples != 0 {
		runnerCfg.Samples = req.Samples
	}
	if req.Workers != 0 {
		runnerCfg.Workers = req.Workers
	}
	if req.Seed != 0 {
		runnerCfg.Seed = req.Seed
	}
	for runnerCfg.Seed == 0 {
		runnerCfg.Seed = rand.Uint64()
	}
	if err := h.checkLimits(req, runnerCfg); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if h.cfg.Ready != nil && !h.cfg.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "server is draining"})
		return
	}
	if !h.busy.CompareAndSwap(false, true) {
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: "a benchmark is already running"})
		return
	}
	defer h.busy.Store(false)

	if runnerCfg.Log == nil {
		runnerCfg.Log = h.log
	}
	results, err := benchmark.NewRunner(runnerCfg).Run(r.Context(), req.Sweep)
	switch {
	case r.Context().Err() != nil:
		h.log.Info("Benchmark request cancelled", "algorithm", req.Algorithm)
		return
	case errors.Is(err, benchmark.ErrStalled):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	if req.Keep {
		for _, res := range results {
			h.cfg.Store.Add(res.Dataset)
		}
	}

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("X-Seed", fmt.Sprint(runnerCfg.Seed))
		w.WriteHeader(http.StatusOK)
		for i, res := range results {
			if err := res.Dataset.WriteCSV(w, i == 0); err != nil {
				h.log.Error("Writing CSV response failed", "err", err)
				return
			}
		}
		return
	}

	resp := BenchmarkResponse{Seed: runnerCfg.Seed, Results: make([]PointResult, 0, len(results))}
	for _, res := range results {
		resp.Results = append(resp.Results, PointResult{
			Summary:    res.Dataset.Summarize(),
			DurationMs: float64(res.Duration) / float64(time.Millisecond),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// checkLimits rejects invalid sweeps and requests that exceed the
// configured resource limits.
func (h *SimulationHandler) checkLimits(req BenchmarkRequest, runnerCfg benchmark.RunnerConfig) error {
	if runnerCfg.Samples > h.cfg.MaxSamples {
		return fmt.Errorf("at most %d samples per point", h.cfg.MaxSamples)
	}
	if runnerCfg.Workers > h.cfg.MaxWorkers {
		return fmt.Errorf("at most %d workers", h.cfg.MaxWorkers)
	}
	points, err := req.Sweep.Points()
	if err != nil {
		return err
	}
	for _, p := range points {
		if p.Meta.Clients > h.cfg.MaxClients {
			return fmt.Errorf("%d clients: at most %d per point", p.Meta.Clients, h.cfg.MaxClients)
		}
		if p.Meta.Slots > h.cfg.MaxSlots {
			return fmt.Errorf("%d slots: at most %d per point", p.Meta.Slots, h.cfg.MaxSlots)
		}
	}
	return nil
}

func (h *SimulationHandler) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	resp := DatasetsResponse{Pending: []aggregator.Summary{}}
	for _, d := range h.cfg.Store.Pending() {
		resp.Pending = append(resp.Pending, d.Summarize())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SimulationHandler) handleWriteDatasets(w http.ResponseWriter, r *http.Request) {
	path, rows, err := h.cfg.Store.Write(h.cfg.OutputDir)
	if err != nil {
		h.log.Error("Writing datasets failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	h.log.Info("Datasets written", "path", path, "rows", rows)
	writeJSON(w, http.StatusOK, WriteResponse{Path: path, Rows: rows})
}

func (h *SimulationHandler) handleClearDatasets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ClearResponse{Cleared: h.cfg.Store.Clear()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
