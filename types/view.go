package types

// Views are the externally visible rendition of the host records. The
// addition of several struct tags allows for a precise control over what
// fields are marshalled: the default `structs` tag carries everything whilst
// `lean` trims the output down to what's needed to identify a flow.

// InterfaceView is the marshallable rendition of a NetworkInterface.
type InterfaceView struct {
	Name    string `structs:"name" lean:"name"`
	MAC     string `structs:"mac" lean:"-"`
	Address string `structs:"address" lean:"address"`
	Netmask string `structs:"netmask" lean:"-"`
	Network string `structs:"network" lean:"-"`
	Gateway string `structs:"gateway" lean:"gateway"`
}

func NewInterfaceView(i NetworkInterface) InterfaceView {
	return InterfaceView{
		Name:    i.Name,
		MAC:     FormatMAC(i.HardwareAddr),
		Address: FormatIPv4(i.Address),
		Netmask: FormatIPv4(i.Netmask),
		Network: FormatIPv4(i.Network()),
		Gateway: FormatIPv4(i.Gateway),
	}
}

// ProcessView is the marshallable rendition of a Process.
type ProcessView struct {
	Verbosity string `structs:"-" lean:"-"`

	PID    int     `structs:"pid" lean:"pid"`
	Name   string  `structs:"name" lean:"name"`
	Exe    string  `structs:"exe" lean:"-"`
	Cgroup string  `structs:"cgroup,omitempty" lean:"-"`
	CPU    float64 `structs:"cpu" lean:"cpu"`
	Memory float64 `structs:"memory" lean:"memory"`
	RSSKB  uint64  `structs:"rssKB" lean:"-"`
}

func NewProcessView(p Process, clockTicks int64, memTotalKB uint64) ProcessView {
	return ProcessView{
		PID:    p.PID,
		Name:   p.Name,
		Exe:    p.Exe,
		Cgroup: p.Cgroup,
		CPU:    p.CPUUtilization(clockTicks),
		Memory: p.MemoryFraction(memTotalKB),
		RSSKB:  p.RSSKB,
	}
}

// MarshalJSON implements the json.Marshaler interface, honouring Verbosity.
func (v *ProcessView) MarshalJSON() ([]byte, error) {
	return marshalTagged(v, v.Verbosity)
}

// SocketView is the marshallable rendition of a TCPSocket, optionally joined
// with its owning process.
type SocketView struct {
	Verbosity string `structs:"-" lean:"-"`

	Inode   uint32       `structs:"inode" lean:"inode"`
	Local   string       `structs:"local" lean:"local"`
	Remote  string       `structs:"remote" lean:"remote"`
	State   string       `structs:"state" lean:"state"`
	Timer   string       `structs:"timer" lean:"-"`
	UID     uint32       `structs:"uid" lean:"-"`
	PID     int          `structs:"pid" lean:"pid"`
	FD      int          `structs:"fd" lean:"-"`
	Process *ProcessView `structs:"process,omitempty" lean:"-"`
	TCPInfo *TCPInfo     `structs:"tcpInfo,omitempty" lean:"tcpInfo,omitempty"`
}

// NewSocketView builds the view of s. A tcp_info blob that fails to decode is
// simply left out.
func NewSocketView(s TCPSocket) SocketView {
	v := SocketView{
		Inode:  s.Inode,
		Local:  s.Local(),
		Remote: s.Remote(),
		State:  s.State.String(),
		Timer:  s.Timer.String(),
		UID:    s.UID,
		PID:    s.PID,
		FD:     s.FD,
	}
	if info, err := s.TCPInfo(); err == nil {
		v.TCPInfo = info
	}
	return v
}

// MarshalJSON implements the json.Marshaler interface. We'll simply leverage
// structs to play around with the struct tags: the default tag is `structs`,
// but we can choose among any other tag in validTags to decide what fields
// make it into the end result.
func (v *SocketView) MarshalJSON() ([]byte, error) {
	return marshalTagged(v, v.Verbosity)
}
