package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/flashbots/schedsim/common"
	"github.com/flashbots/schedsim/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/atomic"
)

// RouteRegistrar is implemented by handlers mounted on a BaseServer.
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

// HTTPServerConfig contains the listener and lifecycle settings of a
// BaseServer.
type HTTPServerConfig struct {
	ListenAddr string

	// MetricsAddr is where /metrics is served. Empty disables the listener;
	// collectors are still registered.
	MetricsAddr string

	EnablePprof bool

	Log *slog.Logger

	// DrainDuration is how long Shutdown keeps serving after readiness is
	// dropped, so that clients polling /readyz stop sending benchmarks.
	DrainDuration time.Duration

	// GracefulShutdownDuration bounds the wait for in-flight requests.
	GracefulShutdownDuration time.Duration

	ReadTimeout time.Duration

	// WriteTimeout bounds the response of a synchronous benchmark, which is
	// written only after the whole sweep has run.
	WriteTimeout time.Duration

	// Metrics is served on MetricsAddr. If nil, New creates one.
	Metrics *metrics.MetricsServer
}

// BaseServer serves the registered handlers next to the liveness,
// readiness and drain endpoints.
type BaseServer struct {
	cfg     *HTTPServerConfig
	isReady atomic.Bool
	log     *slog.Logger

	srv        *http.Server
	metricsSrv *metrics.MetricsServer
}

func New(cfg *HTTPServerConfig, routeRegistrars ...RouteRegistrar) (*BaseServer, error) {
	metricsSrv := cfg.Metrics
	if metricsSrv == nil {
		var err error
		metricsSrv, err = metrics.New(common.PackageName, cfg.MetricsAddr)
		if err != nil {
			return nil, err
		}
	}

	srv := &BaseServer{
		cfg:        cfg,
		log:        cfg.Log,
		metricsSrv: metricsSrv,
	}
	srv.srv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.createRouter(routeRegistrars),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	srv.isReady.Store(true)
	return srv, nil
}

func (srv *BaseServer) createRouter(routeRegistrars []RouteRegistrar) http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)

	for _, registrar := range routeRegistrars {
		registrar.RegisterRoutes(mux)
	}

	mux.Group(func(r chi.Router) {
		r.Use(srv.httpLogger)
		r.Get("/livez", srv.handleLivenessCheck)
		r.Get("/readyz", srv.handleReadinessCheck)
		r.Get("/drain", srv.handleDrain)
		r.Get("/undrain", srv.handleUndrain)
	})

	if srv.cfg.EnablePprof {
		srv.log.Info("pprof API enabled")
		mux.Mount("/debug", middleware.Profiler())
	}
	return mux
}

func (srv *BaseServer) httpLogger(next http.Handler) http.Handler {
	return httplogger.LoggingMiddlewareSlog(srv.log, next)
}

type statusResponse struct {
	Status string `json:"status"`
}

func (srv *BaseServer) handleLivenessCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "alive"})
}

func (srv *BaseServer) handleReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if !srv.isReady.Load() {
		writeJSON(w, http.StatusServiceUnavailable, statusResponse{Status: "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ready"})
}

// handleDrain stops new benchmarks from being accepted. Running ones are
// left to finish.
func (srv *BaseServer) handleDrain(w http.ResponseWriter, r *http.Request) {
	if !srv.isReady.Swap(false) {
		writeJSON(w, http.StatusOK, statusResponse{Status: "already draining"})
		return
	}
	srv.log.Info("Server marked as not ready")
	writeJSON(w, http.StatusOK, statusResponse{Status: "draining"})
}

func (srv *BaseServer) handleUndrain(w http.ResponseWriter, r *http.Request) {
	if srv.isReady.Swap(true) {
		writeJSON(w, http.StatusOK, statusResponse{Status: "already ready"})
		return
	}
	srv.log.Info("Server marked as ready")
	writeJSON(w, http.StatusOK, statusResponse{Status: "ready"})
}

// Handler returns the router.
func (srv *BaseServer) Handler() http.Handler {
	return srv.srv.Handler
}

func (srv *BaseServer) Metrics() *metrics.MetricsServer {
	return srv.metricsSrv
}

// IsReady reports whether the server accepts new benchmarks.
func (srv *BaseServer) IsReady() bool {
	return srv.isReady.Load()
}

// RunInBackground starts the API listener and, if configured, the metrics
// listener.
func (srv *BaseServer) RunInBackground() {
	if srv.cfg.MetricsAddr != "" {
		go srv.listen("metrics", srv.cfg.MetricsAddr, srv.metricsSrv.ListenAndServe)
	}
	go srv.listen("api", srv.cfg.ListenAddr, srv.srv.ListenAndServe)
}

func (srv *BaseServer) listen(name, addr string, serve func() error) {
	srv.log.Info("Listening", "server", name, "addr", addr)
	if err := serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		srv.log.Error("Listener stopped", "server", name, "err", err)
	}
}

// Shutdown drops readiness, waits DrainDuration and then stops both
// listeners, giving in-flight requests up to GracefulShutdownDuration.
func (srv *BaseServer) Shutdown() {
	if srv.isReady.Swap(false) && srv.cfg.DrainDuration > 0 {
		srv.log.Info("Draining before shutdown", "duration", srv.cfg.DrainDuration)
		time.Sleep(srv.cfg.DrainDuration)
	}

	ctx, cancel := context.WithTimeout(context.Background(), srv.cfg.GracefulShutdownDuration)
	defer cancel()
	srv.stop(ctx, "api", srv.srv.Shutdown)
	if srv.cfg.MetricsAddr != "" {
		srv.stop(ctx, "metrics", srv.metricsSrv.Shutdown)
	}
}

func (srv *BaseServer) stop(ctx context.Context, name string, shutdown func(context.Context) error) {
	if err := shutdown(ctx); err != nil {
		srv.log.Error("Shutdown did not complete", "server", name, "err", err)
		return
	}
	srv.log.Info("Stopped", "server", name)
}
