package types

import (
	"fmt"
)

// State is the enumeration of TCP states. See [0, 1].
//
// 0: https://datatracker.ietf.org/doc/draft-ietf-tcpm-rfc793bis/
// 1: https://elixir.bootlin.com/linux/v5.14/source/include/uapi/linux/tcp.h
type State uint8

func (x State) String() string {
	s, ok := stateName[x]
	if !ok {
		return fmt.Sprintf("UNKNOWN_STATE_%d", x)
	}
	return s
}

// commLen is the size of the kernel's task comm buffer, trailing NUL excluded.
const commLen = 15

// NetworkInterface is a routable interface: one named by a unicast route
// carrying a gateway. Addresses are in host order.
type NetworkInterface struct {
	Name         string
	HardwareAddr [6]byte
	Address      uint32
	Netmask      uint32
	Gateway      uint32
}

// Network is the interface's address masked with its netmask.
func (i NetworkInterface) Network() uint32 {
	return i.Address & i.Netmask
}

func (i NetworkInterface) String() string {
	return fmt.Sprintf("name:%-16s mac:%s ip:%-16s netmask:%-16s gateway:%-16s",
		i.Name, FormatMAC(i.HardwareAddr), FormatIPv4(i.Address), FormatIPv4(i.Netmask), FormatIPv4(i.Gateway))
}

// TCPSocket is an IPv4 TCP socket as reported by sock_diag(7), keyed by its
// inode. PID and FD are filled in by the resolver: a diagnostics dump never
// touches them.
type TCPSocket struct {
	Inode      uint32
	LocalAddr  uint32
	LocalPort  uint16
	RemoteAddr uint32
	RemotePort uint16
	State      State
	Timer      Timer
	UID        uint32
	PID        int
	FD         int

	// Raw INET_DIAG_INFO payload (i.e. a struct tcp_info) as handed by the kernel.
	Info []byte

	pass uint64
}

// Local renders the local endpoint as addr:port.
func (s TCPSocket) Local() string {
	return fmt.Sprintf("%s:%d", FormatIPv4(s.LocalAddr), s.LocalPort)
}

// Remote renders the remote endpoint as addr:port.
func (s TCPSocket) Remote() string {
	return fmt.Sprintf("%s:%d", FormatIPv4(s.RemoteAddr), s.RemotePort)
}

// TCPInfo decodes the raw INET_DIAG_INFO payload. It returns nil if the
// kernel didn't send one.
func (s TCPSocket) TCPInfo() (*TCPInfo, error) {
	if len(s.Info) == 0 {
		return nil, nil
	}
	return ParseTCPInfo(s.Info)
}

// Process is a process owning at least one tracked socket.
type Process struct {
	PID    int
	Name   string
	Exe    string
	Cgroup string

	// CPU ticks (utime + stime) and system uptime [s] for the current and
	// previous samples.
	Ticks      uint64
	PrevTicks  uint64
	Uptime     float64
	PrevUptime float64

	// Start time in ticks since boot.
	StartTicks uint64

	RSSKB uint64

	pass uint64
}

// SetName stores the process name bounded to the kernel's comm size.
func (p *Process) SetName(name string) {
	if len(name) > commLen {
		name = name[:commLen]
	}
	p.Name = name
}

// cpuEpsilon is the smallest CPU time delta [s] we consider to be non-zero.
const cpuEpsilon = 1e-9

// CPUUtilization returns the share of a core the process used between its
// last two samples. It is not clamped at 1: multithreaded processes can
// exceed a single core.
func (p Process) CPUUtilization(clockTicks int64) float64 {
	if clockTicks <= 0 {
		return 0
	}

	dt := p.Uptime - p.PrevUptime
	if dt <= 0 {
		return 0
	}

	// Counter resets.
	if p.Ticks < p.PrevTicks {
		return 0
	}

	cpu := float64(p.Ticks-p.PrevTicks) / float64(clockTicks)
	if cpu < cpuEpsilon {
		return 0
	}

	return cpu / dt
}

// MemoryFraction returns the resident set size as a fraction of the total
// system memory.
func (p Process) MemoryFraction(totalKB uint64) float64 {
	if totalKB == 0 {
		return 0
	}
	return float64(p.RSSKB) / float64(totalKB)
}
