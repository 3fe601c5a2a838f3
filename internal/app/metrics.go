package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/samvad-hq/overlod-admin/internal/monitor"
)

// watchMetrics counts monitor outcomes across passes.
type watchMetrics struct {
	checks *prometheus.CounterVec
	passes prometheus.Counter
}

func newWatchMetrics(reg prometheus.Registerer) (*watchMetrics, error) {
	m := &watchMetrics{
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "overlod",
			Subsystem: "watch",
			Name:      "checks_total",
			Help:      "Source checks by outcome.",
		}, []string{"outcome"}),
		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "overlod",
			Subsystem: "watch",
			Name:      "passes_total",
			Help:      "Completed monitoring passes.",
		}),
	}
	for _, c := range []prometheus.Collector{m.checks, m.passes} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register watch metrics: %w", err)
		}
	}
	return m, nil
}

func (m *watchMetrics) observe(report monitor.Report) {
	if m == nil {
		return
	}
	m.passes.Inc()
	for _, c := range report.Checks {
		m.checks.WithLabelValues(string(c.Outcome)).Inc()
	}
}

// metricsServer exposes /metrics for a registry.
type metricsServer struct {
	srv *http.Server
	ln  net.Listener
}

func startMetricsServer(addr string, gatherer prometheus.Gatherer) (*metricsServer, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() { _ = srv.Serve(ln) }()
	return &metricsServer{srv: srv, ln: ln}, nil
}

// Addr is the bound address, useful when addr used port 0.
func (m *metricsServer) Addr() string { return m.ln.Addr().String() }

func (m *metricsServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
