package main

import (
	"fmt"
	"log/slog"

	"github.com/scitags/hostwatch/backends/prometheus"
	"github.com/scitags/hostwatch/monitor"
	"github.com/scitags/hostwatch/plugins/api"
)

// sink is a monitor.Sink serving what it's handed on its own.
type sink interface {
	monitor.Sink
	fmt.Stringer
	Start()
	Cleanup() error
}

func createSinks(c *Config) ([]sink, error) {
	sinks := []sink{}

	if c.Plugins != nil && c.Plugins.Api != nil {
		sinks = append(sinks, api.New(c.Plugins.Api))
	}

	if c.Backends != nil && c.Backends.Prometheus != nil {
		b, err := prometheus.NewPrometheusBackend(c.Backends.Prometheus)
		if err != nil {
			return nil, fmt.Errorf("error setting up the prometheus backend: %w", err)
		}
		sinks = append(sinks, b)
	}

	if len(sinks) == 0 {
		slog.Warn("no sinks configured")
	}

	return sinks, nil
}

func cleanupSinks(sinks []sink) {
	for _, s := range sinks {
		if err := s.Cleanup(); err != nil {
			slog.Error("error cleaning up sink", "sink", s, "err", err)
		}
	}
}
