package httpserver

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flashbots/schedsim/aggregator"
	"github.com/flashbots/schedsim/benchmark"
	"github.com/flashbots/schedsim/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*httptest.Server
	base    *BaseServer
	handler *SimulationHandler
	store   *aggregator.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := aggregator.NewStore()

	ts := &testServer{store: store}
	ts.handler = NewSimulationHandler(&SimulationHandlerConfig{
		Store:      store,
		OutputDir:  t.TempDir(),
		MaxSamples: 1000,
		MaxWorkers: 2,
		MaxClients: 100,
		Ready:      func() bool { return ts.base.IsReady() },
		Log:        log,
	})

	base, err := New(&HTTPServerConfig{Log: log}, ts.handler)
	require.NoError(t, err)
	ts.base = base
	ts.Server = httptest.NewServer(base.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.URL+path, r)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func chaumRequest(keep bool) BenchmarkRequest {
	return BenchmarkRequest{
		Sweep:   benchmark.Sweep{Algorithm: protocol.AlgorithmChaum, Clients: []int{1, 2}},
		Samples: 10,
		Seed:    5,
		Keep:    keep,
	}
}

func TestHealthAndDrain(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/livez", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "alive", decode[statusResponse](t, resp).Status)

	resp = ts.do(t, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/drain", nil)
	require.Equal(t, "draining", decode[statusResponse](t, resp).Status)
	resp = ts.do(t, http.MethodGet, "/drain", nil)
	require.Equal(t, "already draining", decode[statusResponse](t, resp).Status)
	require.False(t, ts.base.IsReady())

	resp = ts.do(t, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/v1/benchmarks", chaumRequest(false))
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/undrain", nil)
	require.Equal(t, "ready", decode[statusResponse](t, resp).Status)
	resp = ts.do(t, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAlgorithms(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/api/v1/algorithms", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	algs := decode[AlgorithmsResponse](t, resp)
	require.Equal(t, protocol.Algorithms, algs.Algorithms)
	require.Equal(t, []string{"Static", "Linear", "Reactive"}, algs.WithdrawBehaviours)
	require.Equal(t, []string{"single", "multi"}, algs.Modes)
	require.Equal(t, benchmark.DefaultClients, algs.DefaultClients)
}

func TestBenchmark_JSON(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/v1/benchmarks", chaumRequest(false))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[BenchmarkResponse](t, resp)

	require.Equal(t, uint64(5), result.Seed)
	require.Len(t, result.Results, 2)
	for i, clients := range []int{1, 2} {
		r := result.Results[i]
		assert.Equal(t, protocol.AlgorithmChaum, r.Algorithm)
		assert.Equal(t, clients, r.Clients)
		assert.Equal(t, clients*benchmark.DefaultChaumRatio, r.Slots)
		assert.Equal(t, 10, r.Samples)
		assert.Equal(t, 1.0, r.MeanRequiredRounds)
	}
	// A lone client always reserves, so every cycle is recorded.
	assert.Zero(t, result.Results[0].Unsuccessful)
	assert.Empty(t, ts.store.Pending())
}

func TestBenchmark_CSV(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/v1/benchmarks?format=csv", chaumRequest(false))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	require.Equal(t, "5", resp.Header.Get("X-Seed"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	require.Len(t, lines, 21)
	require.Equal(t, strings.Join(aggregator.Header, ","), lines[0])
	require.True(t, strings.HasPrefix(lines[1], "Chaum,32,1,32,1,1,"))
}

func TestBenchmark_Rejected(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		body   interface{}
		status int
	}{
		{"not a sweep", []int{1, 2}, http.StatusBadRequest},
		{"unknown mode", map[string]interface{}{"algorithm": "Footprint", "mode": "sideways"}, http.StatusBadRequest},
		{"footprint with nine bits", BenchmarkRequest{Sweep: benchmark.Sweep{Algorithm: protocol.AlgorithmFootprint, Slots: 8, Bits: 9}}, http.StatusBadRequest},
		{"too many samples", BenchmarkRequest{Sweep: benchmark.Sweep{Algorithm: protocol.AlgorithmChaum}, Samples: 5000}, http.StatusBadRequest},
		{"unknown algorithm", BenchmarkRequest{Sweep: benchmark.Sweep{Algorithm: "Aloha"}}, http.StatusBadRequest},
		{"zero activity", map[string]interface{}{"algorithm": "Chaum", "clients": []int{1}, "activity": 0}, http.StatusBadRequest},
		{"too many workers", map[string]interface{}{"algorithm": "Chaum", "clients": []int{1}, "workers": 100000000}, http.StatusBadRequest},
		{"too many clients", BenchmarkRequest{Sweep: benchmark.Sweep{Algorithm: protocol.AlgorithmChaum, Clients: []int{1, 101}}}, http.StatusBadRequest},
		{"too many slots", BenchmarkRequest{Sweep: benchmark.Sweep{Algorithm: protocol.AlgorithmFootprint, Clients: []int{1}, Slots: DefaultMaxSlots + 1, Bits: 8}}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.do(t, http.MethodPost, "/api/v1/benchmarks", tt.body)
			require.Equal(t, tt.status, resp.StatusCode)
			require.NotEmpty(t, decode[ErrorResponse](t, resp).Error)
		})
	}
}

func TestBenchmark_Busy(t *testing.T) {
	ts := newTestServer(t)
	ts.handler.busy.Store(true)

	resp := ts.do(t, http.MethodPost, "/api/v1/benchmarks", chaumRequest(false))
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	ts.handler.busy.Store(false)
	resp = ts.do(t, http.MethodPost, "/api/v1/benchmarks", chaumRequest(false))
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDatasets(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/api/v1/datasets", nil)
	require.Empty(t, decode[DatasetsResponse](t, resp).Pending)

	resp = ts.do(t, http.MethodPost, "/api/v1/benchmarks", chaumRequest(true))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/v1/datasets", nil)
	pending := decode[DatasetsResponse](t, resp).Pending
	require.Len(t, pending, 2)
	require.Equal(t, 1, pending[0].Clients)
	require.Equal(t, 10, pending[0].Samples)

	resp = ts.do(t, http.MethodPost, "/api/v1/datasets/write", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	written := decode[WriteResponse](t, resp)
	require.Equal(t, 20, written.Rows)
	require.Equal(t, aggregator.RoundDataFile, filepath.Base(written.Path))
	_, err := os.Stat(written.Path)
	require.NoError(t, err)

	resp = ts.do(t, http.MethodDelete, "/api/v1/datasets", nil)
	require.Equal(t, 0, decode[ClearResponse](t, resp).Cleared)

	ts.do(t, http.MethodPost, "/api/v1/benchmarks", chaumRequest(true))
	resp = ts.do(t, http.MethodDelete, "/api/v1/datasets", nil)
	require.Equal(t, 2, decode[ClearResponse](t, resp).Cleared)
}
