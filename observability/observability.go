// Package observability exposes auth operation counters and health checks
// on a separate HTTP listener.
package observability

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	auth "github.com/yapyap/go-auth"
)

// Metrics counts auth operations by outcome.
type Metrics struct {
	Operations *prometheus.CounterVec
}

var _ auth.Metrics = (*Metrics)(nil)

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "yapyap_auth_operations_total",
				Help: "Total number of auth operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
	}
	reg.MustRegister(m.Operations)
	return m
}

func (m *Metrics) RecordOutcome(operation, outcome string) {
	m.Operations.WithLabelValues(operation, outcome).Inc()
}

// ReadinessChecker reports whether dependencies are reachable.
type ReadinessChecker func(ctx context.Context) error

type Server struct {
	addr       string
	registry   *prometheus.Registry
	metrics    *Metrics
	isReady    ReadinessChecker
	logger     auth.Logger
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

func NewServer(addr string, ready ReadinessChecker, logger auth.Logger) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &Server{
		addr:     addr,
		registry: registry,
		metrics:  NewMetrics(registry),
		isReady:  ready,
		logger:   logger,
	}
}

func (s *Server) Metrics() *Metrics {
	return s.metrics
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("/healthz/readiness", s.handleReadiness)
	return mux
}

// Start serves in the background. The returned channel reports a serve
// failure and is closed on shutdown.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, errors.New("observability server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.listener = listener

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = srv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if s.logger != nil {
		s.logger.Info("observability server started", "addr", listener.Addr().String())
	}
	return errCh, nil
}

func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.running.Store(true)
		return fmt.Errorf("shutdown observability server: %w", err)
	}
	return nil
}

func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if s.isReady != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.isReady(ctx); err != nil {
			http.Error(w, "not ready: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready\n"))
}
