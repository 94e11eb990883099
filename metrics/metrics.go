// Package metrics exposes prometheus collectors for simulation activity and
// the HTTP server that serves them.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cycle results used as the "result" label.
const (
	ResultRecorded       = "recorded"
	ResultUnrecorded     = "unrecorded"
	ResultNoReservations = "no_reservations"
)

// Collectors groups the simulation metrics. A nil *Collectors is valid and
// records nothing.
type Collectors struct {
	// Cycles counts engine cycles by algorithm and result.
	Cycles *prometheus.CounterVec
	// RequiredRounds observes the rounds a recorded cycle needed.
	RequiredRounds *prometheus.HistogramVec
	// DataPerReservation observes bits sent per successful reservation.
	DataPerReservation *prometheus.HistogramVec
	// Points counts finished sweep points.
	Points *prometheus.CounterVec
	// PointDuration observes the wall time of a sweep point.
	PointDuration *prometheus.HistogramVec
}

func NewCollectors(namespace string) *Collectors {
	return &Collectors{
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Number of reservation cycles run",
		}, []string{"algorithm", "result"}),
		RequiredRounds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_required_rounds",
			Help:      "Rounds needed by a recorded reservation cycle",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"algorithm"}),
		DataPerReservation: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_data_bits",
			Help:      "Bits sent per successful reservation",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 12),
		}, []string{"algorithm"}),
		Points: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_points_total",
			Help:      "Number of finished sweep points",
		}, []string{"algorithm"}),
		PointDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_point_duration_seconds",
			Help:      "Wall time of a sweep point",
			Buckets:   prometheus.DefBuckets,
		}, []string{"algorithm"}),
	}
}

func (c *Collectors) collectors() []prometheus.Collector {
	return []prometheus.Collector{c.Cycles, c.RequiredRounds, c.DataPerReservation, c.Points, c.PointDuration}
}

// Register registers every collector with reg.
func (c *Collectors) Register(reg prometheus.Registerer) error {
	var result *multierror.Error
	for _, col := range c.collectors() {
		if err := reg.Register(col); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// ObserveCycle records one engine cycle. requiredRounds and data are only
// observed for recorded cycles.
func (c *Collectors) ObserveCycle(algorithm, result string, requiredRounds int, data float64) {
	if c == nil {
		return
	}
	c.Cycles.WithLabelValues(algorithm, result).Inc()
	if result == ResultRecorded {
		c.RequiredRounds.WithLabelValues(algorithm).Observe(float64(requiredRounds))
		c.DataPerReservation.WithLabelValues(algorithm).Observe(data)
	}
}

// ObservePoint records a finished sweep point.
func (c *Collectors) ObservePoint(algorithm string, d time.Duration) {
	if c == nil {
		return
	}
	c.Points.WithLabelValues(algorithm).Inc()
	c.PointDuration.WithLabelValues(algorithm).Observe(d.Seconds())
}

// MetricsServer serves a private registry holding the Go runtime, process
// and simulation collectors on /metrics.
type MetricsServer struct {
	registry   *prometheus.Registry
	collectors *Collectors
	srv        *http.Server
}

// New builds a metrics server for addr. The server is not started.
func New(namespace, addr string) (*MetricsServer, error) {
	registry := prometheus.NewRegistry()
	c := NewCollectors(namespace)

	var result *multierror.Error
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		result = multierror.Append(result, err)
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		result = multierror.Append(result, err)
	}
	if err := c.Register(registry); err != nil {
		result = multierror.Append(result, err)
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	return &MetricsServer{
		registry:   registry,
		collectors: c,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

func (m *MetricsServer) Collectors() *Collectors { return m.collectors }

func (m *MetricsServer) Registry() *prometheus.Registry { return m.registry }

// Handler returns the /metrics handler, for tests and embedding.
func (m *MetricsServer) Handler() http.Handler { return m.srv.Handler }

func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}
