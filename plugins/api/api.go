// Package api serves the latest monitor snapshot over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/scitags/hostwatch/monitor"
	"github.com/scitags/hostwatch/types"
)

var logger = types.ComponentLogger("api", false)

// SetLogger replaces the discarding default logger.
func SetLogger(l *slog.Logger) {
	logger = l
}

type ApiPlugin struct {
	server *echo.Echo

	conf Config

	mu       sync.RWMutex
	snapshot *monitor.Snapshot
}

func New(conf *Config) *ApiPlugin {
	p := &ApiPlugin{conf: DefaultConfig}
	if conf != nil {
		p.conf = *conf
	}

	p.server = echo.New()

	// Prevent the banner from showing up in the log
	p.server.HideBanner = true
	p.server.HidePort = true

	// Configure the middleware for extending the context of the
	// different handlers. Every request gets the snapshot current
	// at the time it arrived.
	p.server.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p.mu.RLock()
			snap := p.snapshot
			p.mu.RUnlock()
			return next(&extendedContext{c, p.server.Routes(), snap})
		}
	})

	// Configure the methods for each path
	p.server.GET("/", handleRoot)
	p.server.GET("/interfaces", handleInterfaces)
	p.server.GET("/sockets", handleSockets)
	p.server.GET("/sockets/:inode", handleSocket)
	p.server.GET("/processes", handleProcesses)
	p.server.GET("/processes/:pid", handleProcess)

	return p
}

func (p *ApiPlugin) String() string {
	return "api"
}

// Handler exposes the router, mainly for tests.
func (p *ApiPlugin) Handler() http.Handler {
	return p.server
}

// Publish implements monitor.Sink.
func (p *ApiPlugin) Publish(s monitor.Snapshot) {
	p.mu.Lock()
	p.snapshot = &s
	p.mu.Unlock()
}

// Start begins serving in the background.
func (p *ApiPlugin) Start() {
	addr := net.JoinHostPort(p.conf.BindAddress, fmt.Sprint(p.conf.BindPort))
	logger.Debug("running the api plugin", "addr", addr)

	go func() {
		if err := p.server.Start(addr); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("couldn't start the API server", "err", err)
		}
	}()
}

func (p *ApiPlugin) Cleanup() error {
	logger.Debug("cleaning up the api plugin")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down the API server: %w", err)
	}
	return nil
}
