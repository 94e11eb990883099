package httpserver

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flashbots/schedsim/metrics"
	"github.com/stretchr/testify/require"
)

func TestNew_SharesMetricsServer(t *testing.T) {
	m, err := metrics.New("schedsim", "")
	require.NoError(t, err)

	srv, err := New(&HTTPServerConfig{Log: slog.New(slog.NewTextHandler(io.Discard, nil)), Metrics: m})
	require.NoError(t, err)
	require.Same(t, m, srv.Metrics())
	require.True(t, srv.IsReady())
}

func TestPprofRoutes(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	for _, enabled := range []bool{false, true} {
		srv, err := New(&HTTPServerConfig{Log: log, EnablePprof: enabled})
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/cmdline", nil))
		if enabled {
			require.Equal(t, http.StatusOK, rec.Code)
		} else {
			require.Equal(t, http.StatusNotFound, rec.Code)
		}
	}
}

func TestShutdown_DropsReadiness(t *testing.T) {
	srv, err := New(&HTTPServerConfig{Log: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)

	srv.Shutdown()
	require.False(t, srv.IsReady())
}
