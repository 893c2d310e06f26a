package prometheus

import (
	"context"
	"fmt"
	"reflect"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/scitags/hostwatch/types"
)

// Metric labels (note these are **always** strings):
//
//	src: local endpoint as <addr:port>
//	dst: remote endpoint as <addr:port>
//	state: TCP state as printed by ss(8)
//	pid: owning process, 0 if unresolved
var socketLabels = []string{"src", "dst", "state", "pid"}

var processLabels = []string{"pid", "name"}

var interfaceLabels = []string{"name", "addr", "gw", "mac"}

type metrics struct {
	Rtt    *prometheus.GaugeVec
	RttVar *prometheus.GaugeVec

	Cwnd *prometheus.GaugeVec

	Retrans *prometheus.GaugeVec // Not a CounterVec: the kernel holds the count.

	BytesAcked    *prometheus.GaugeVec
	BytesReceived *prometheus.GaugeVec

	CPU    *prometheus.GaugeVec
	Memory *prometheus.GaugeVec
	RSS    *prometheus.GaugeVec

	Interface *prometheus.GaugeVec
}

func newMetrics() *metrics {
	m := &metrics{
		Rtt: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hostwatch_socket_rtt_us",
			Help: "Smoothed round-trip time [us]",
		}, socketLabels),
		RttVar: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hostwatch_socket_rttvar_us",
			Help: "Round-trip time variance [us]",
		}, socketLabels),

		Cwnd: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hostwatch_socket_cwnd",
			Help: "Sending congestion window [segments]",
		}, socketLabels),

		Retrans: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hostwatch_socket_retrans_total",
			Help: "Total retransmitted segments",
		}, socketLabels),

		BytesAcked: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hostwatch_socket_bytes_acked_total", // _total as it's a kernel counter
			Help: "Total number of bytes acked (RFC4898 tcpEStatsAppHCThruOctetsAcked)",
		}, socketLabels),
		BytesReceived: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hostwatch_socket_bytes_received_total", // _total as it's a kernel counter
			Help: "Total number of bytes received (RFC4898 tcpEStatsAppHCThruOctetsReceived)",
		}, socketLabels),

		CPU: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hostwatch_process_cpu_ratio",
			Help: "Share of a core used between the last two samples",
		}, processLabels),
		Memory: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hostwatch_process_memory_ratio",
			Help: "Resident set size over total memory",
		}, processLabels),
		RSS: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hostwatch_process_rss_kb",
			Help: "Resident set size [KiB]",
		}, processLabels),

		Interface: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hostwatch_interface_info",
			Help: "Routable interfaces, always 1",
		}, interfaceLabels),
	}

	return m
}

// (Nastily) use reflection to avoid having to manually register everything.
func (m *metrics) register(req prometheus.Registerer) error {
	v := reflect.ValueOf(*m)

	i := 0
	for i = 0; i < v.NumField(); i++ {
		vv, ok := v.Field(i).Interface().(prometheus.Collector)
		if !ok {
			return fmt.Errorf("error casting the interface for index %d", i)
		}
		if err := req.Register(vv); err != nil {
			return fmt.Errorf("error registering index %d: %w", i, err)
		}
	}
	logger.Log(context.Background(), types.LevelTrace, "registered collectors", "i", i)

	return nil
}

// reset drops every series, reflection again doing the legwork.
func (m *metrics) reset() {
	v := reflect.ValueOf(*m)
	for i := 0; i < v.NumField(); i++ {
		if gv, ok := v.Field(i).Interface().(*prometheus.GaugeVec); ok {
			gv.Reset()
		}
	}
}

func socketLabelsFor(s types.TCPSocket) prometheus.Labels {
	return prometheus.Labels{
		"src":   s.Local(),
		"dst":   s.Remote(),
		"state": s.State.String(),
		"pid":   strconv.Itoa(s.PID),
	}
}

func (m *metrics) updateSocket(s types.TCPSocket) error {
	info, err := s.TCPInfo()
	if err != nil {
		return err
	}
	if info == nil {
		return nil
	}

	labels := socketLabelsFor(s)

	m.Rtt.With(labels).Set(float64(info.Rtt))
	m.RttVar.With(labels).Set(float64(info.Rttvar))

	m.Cwnd.With(labels).Set(float64(info.SndCwnd))

	m.Retrans.With(labels).Set(float64(info.TotalRetrans))

	m.BytesAcked.With(labels).Set(float64(info.BytesAcked))
	m.BytesReceived.With(labels).Set(float64(info.BytesReceived))

	return nil
}

func (m *metrics) updateProcess(p types.Process, clockTicks int64, memTotalKB uint64) {
	labels := prometheus.Labels{
		"pid":  strconv.Itoa(p.PID),
		"name": p.Name,
	}

	m.CPU.With(labels).Set(p.CPUUtilization(clockTicks))
	m.Memory.With(labels).Set(p.MemoryFraction(memTotalKB))
	m.RSS.With(labels).Set(float64(p.RSSKB))
}

func (m *metrics) updateInterface(i types.NetworkInterface) {
	m.Interface.With(prometheus.Labels{
		"name": i.Name,
		"addr": types.FormatIPv4(i.Address),
		"gw":   types.FormatIPv4(i.Gateway),
		"mac":  types.FormatMAC(i.HardwareAddr),
	}).Set(1)
}
