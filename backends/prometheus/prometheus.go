// Package prometheus exposes the monitor's snapshots as Prometheus gauges.
package prometheus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scitags/hostwatch/monitor"
)

var logger = slog.New(slog.DiscardHandler)

type PrometheusBackend struct {
	Config

	// Publish and scrapes race over the vectors while resetting.
	mu sync.Mutex
	m  *metrics

	reg    *prometheus.Registry
	server *http.Server
}

func (b *PrometheusBackend) String() string {
	return "Prometheus"
}

func NewPrometheusBackend(c *Config) (*PrometheusBackend, error) {
	if c.Log {
		logger = slog.Default().With("t", "prometheus")
	} else {
		logger = slog.New(slog.DiscardHandler)
	}

	logger.Debug("initialising the prometheus backend")

	b := PrometheusBackend{Config: *c, m: newMetrics()}

	// Create a non-global registry.
	b.reg = prometheus.NewRegistry()

	if err := b.m.register(b.reg); err != nil {
		return nil, fmt.Errorf("error registering the metrics: %v", err)
	}

	handler := http.NewServeMux()
	handler.Handle("/metrics", b.lock(promhttp.HandlerFor(b.reg, promhttp.HandlerOpts{Registry: b.reg})))

	b.server = &http.Server{
		Addr:    net.JoinHostPort(b.BindAddress, fmt.Sprint(b.Port)),
		Handler: handler,
	}

	return &b, nil
}

func (b *PrometheusBackend) lock(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		h.ServeHTTP(w, r)
	})
}

// Start begins serving /metrics in the background.
func (b *PrometheusBackend) Start() {
	logger.Debug("running the prometheus backend", "addr", b.server.Addr)

	go func() {
		if err := b.server.ListenAndServe(); err != nil {
			logger.Info("stopped listening", "err", err)
		}
	}()
}

// Publish implements monitor.Sink. Series of records gone from the snapshot
// disappear as every vector is rebuilt from scratch.
func (b *PrometheusBackend) Publish(s monitor.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.m.reset()

	for _, i := range s.Interfaces {
		b.m.updateInterface(i)
	}

	for _, sock := range s.Sockets {
		if err := b.m.updateSocket(sock); err != nil {
			logger.Warn("error decoding tcp_info", "inode", sock.Inode, "err", err)
		}
	}

	for _, p := range s.Processes {
		b.m.updateProcess(p, s.ClockTicks, s.MemTotalKB)
	}

	logger.Debug("published snapshot", "interfaces", len(s.Interfaces),
		"sockets", len(s.Sockets), "processes", len(s.Processes))
}

func (b *PrometheusBackend) Cleanup() error {
	logger.Debug("cleaning up the prometheus backend")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
