// Package monitor drives the periodic observation cycle: interface
// discovery, socket enumeration and process resolution, publishing a
// consistent snapshot of the three maps to every registered Sink.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mdlayher/netlink"

	"github.com/scitags/hostwatch/inventory"
	"github.com/scitags/hostwatch/resolver"
	"github.com/scitags/hostwatch/sampler"
	"github.com/scitags/hostwatch/settings"
	"github.com/scitags/hostwatch/sockdiag"
	"github.com/scitags/hostwatch/types"
)

var logger = types.ComponentLogger("monitor", false)

// SetLogger replaces the discarding default logger.
func SetLogger(l *slog.Logger) {
	logger = l
}

// Snapshot is an immutable copy of the maps taken at the end of a cycle.
type Snapshot struct {
	Taken      time.Time
	Interfaces []types.NetworkInterface
	Sockets    []types.TCPSocket
	Processes  []types.Process

	// Needed to turn process samples into rates.
	ClockTicks int64
	MemTotalKB uint64
}

// Process looks a pid up in the snapshot.
func (s Snapshot) Process(pid int) (types.Process, bool) {
	for _, p := range s.Processes {
		if p.PID == pid {
			return p, true
		}
	}
	return types.Process{}, false
}

// Sink consumes snapshots. Publish is called from the monitor's goroutine
// and must not block for long.
type Sink interface {
	Publish(Snapshot)
}

// Report summarises a cycle.
type Report struct {
	Discovered bool `structs:"discovered"`

	// DiscoveryErr holds the reason interface discovery failed. The rest of
	// the cycle goes ahead with the interfaces found so far.
	DiscoveryErr error `structs:"discoveryErr"`

	Interfaces int            `structs:"interfaces"`
	Admitted   int            `structs:"admitted"`
	Sockets    int            `structs:"sockets"`
	Evicted    int            `structs:"evicted"`
	Processes  int            `structs:"processes"`
	Gone       []int          `structs:"gone"`
	Resolution resolver.Stats `structs:"resolution"`
	Took       time.Duration  `structs:"took"`
}

type Monitor struct {
	conf     Config
	settings *settings.Settings
	sampler  *sampler.Sampler

	routeConn *netlink.Conn
	diagConn  *netlink.Conn

	interfaces *types.InterfaceMap
	sockets    *types.SocketMap
	processes  *types.ProcessMap

	sinks []Sink
	now   func() time.Time

	lastDiscovery time.Time

	mu     sync.RWMutex
	latest Snapshot
}

type Option func(*Monitor)

// WithRouteConn makes the monitor use c for interface discovery.
func WithRouteConn(c *netlink.Conn) Option {
	return func(m *Monitor) { m.routeConn = c }
}

// WithDiagConn makes the monitor use c for socket enumeration.
func WithDiagConn(c *netlink.Conn) Option {
	return func(m *Monitor) { m.diagConn = c }
}

// WithSinks registers sinks to publish snapshots to.
func WithSinks(sinks ...Sink) Option {
	return func(m *Monitor) { m.sinks = append(m.sinks, sinks...) }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

func New(conf *Config, s *settings.Settings, opts ...Option) (*Monitor, error) {
	if conf == nil {
		conf = &DefaultConfig
	}

	smp, err := sampler.New(s)
	if err != nil {
		return nil, err
	}

	m := &Monitor{
		conf:       *conf,
		settings:   s,
		sampler:    smp,
		interfaces: types.NewInterfaceMap(),
		sockets:    types.NewSocketMap(),
		processes:  types.NewProcessMap(),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.routeConn == nil {
		if m.routeConn, err = inventory.Dial(); err != nil {
			return nil, fmt.Errorf("error opening the route socket: %w", err)
		}
	}

	if m.diagConn == nil {
		if m.diagConn, err = sockdiag.Dial(); err != nil {
			m.routeConn.Close()
			return nil, fmt.Errorf("error opening the sock_diag socket: %w", err)
		}
	}

	return m, nil
}

// AddSink registers a sink after construction.
func (m *Monitor) AddSink(s Sink) {
	m.sinks = append(m.sinks, s)
}

// Cycle runs a single observation pass and publishes its result.
func (m *Monitor) Cycle(ctx context.Context) (Report, error) {
	var r Report
	start := m.now()

	if m.lastDiscovery.IsZero() || start.Sub(m.lastDiscovery) >= m.conf.interfacePeriod() {
		if err := inventory.Discover(ctx, m.routeConn, m.interfaces); err != nil {
			if ctx.Err() != nil {
				return r, ctx.Err()
			}
			// Retried on the next cycle as lastDiscovery is left alone.
			r.DiscoveryErr = fmt.Errorf("error discovering interfaces: %w", err)
			logger.Warn("interface discovery failed", "err", r.DiscoveryErr)
		} else {
			m.lastDiscovery = start
			r.Discovered = true
		}
	}
	r.Interfaces = m.interfaces.Len()

	if err := ctx.Err(); err != nil {
		return r, err
	}

	if m.conf.Evict {
		m.sockets.Mark()
	}

	admitted, err := sockdiag.QueryWithConfig(ctx, m.diagConn, m.sockets, m.conf.SockDiag)
	if err != nil {
		return r, fmt.Errorf("error querying sockets: %w", err)
	}
	r.Admitted = admitted

	if m.conf.Evict {
		r.Evicted = m.sockets.Sweep()
	}
	r.Sockets = m.sockets.Len()

	if err := ctx.Err(); err != nil {
		return r, err
	}

	if m.conf.Evict {
		m.processes.Mark()
	}

	r.Resolution, err = resolver.Resolve(ctx, m.sockets, m.processes, m.sampler)
	if err != nil {
		return r, fmt.Errorf("error resolving processes: %w", err)
	}

	if m.conf.Evict {
		r.Gone = m.processes.Sweep()
		for _, pid := range r.Gone {
			m.sampler.Forget(pid)
		}
	}
	r.Processes = m.processes.Len()

	snap := Snapshot{
		Taken:      m.now(),
		Interfaces: m.interfaces.Snapshot(),
		Sockets:    m.sockets.Snapshot(),
		Processes:  m.processes.Snapshot(),
		ClockTicks: m.settings.ClockTicks,
		MemTotalKB: m.settings.MemTotalKB,
	}

	m.mu.Lock()
	m.latest = snap
	m.mu.Unlock()

	for _, s := range m.sinks {
		s.Publish(snap)
	}

	r.Took = snap.Taken.Sub(start)
	logger.Debug("cycle done", "discovered", r.Discovered, "sockets", r.Sockets, "evicted", r.Evicted,
		"processes", r.Processes, "gone", len(r.Gone), "took", r.Took)

	return r, nil
}

// Run cycles every configured interval until ctx is done. Failed cycles are
// logged and the next one goes ahead as planned.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.conf.interval())
	defer ticker.Stop()

	for {
		if _, err := m.Cycle(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			logger.Warn("cycle failed", "err", err)
		}

		select {
		case <-ctx.Done():
			logger.Debug("cleanly exiting the monitor")
			return nil
		case <-ticker.C:
		}
	}
}

// Snapshot returns the latest published snapshot.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}

// Close releases the netlink sockets.
func (m *Monitor) Close() error {
	return errors.Join(m.routeConn.Close(), m.diagConn.Close())
}
