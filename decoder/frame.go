package decoder

// Frame is the result of decoding a captured Ethernet frame. It's a closed
// set: only the types in this package implement it.
type Frame interface {
	frame()
}

func (IPOnly) frame()      {}
func (ICMP) frame()        {}
func (TCP) frame()         {}
func (UDP) frame()         {}
func (Unsupported) frame() {}

// Kind classifies the ethertypes we don't decode.
type Kind uint8

const (
	KindOther Kind = iota
	KindIPv6
	KindARP
	KindRARP
)

const (
	EtherTypeIPv4 = 0x0800
	EtherTypeARP  = 0x0806
	EtherTypeRARP = 0x8035
	EtherTypeIPv6 = 0x86DD
)

func (k Kind) String() string {
	switch k {
	case KindIPv6:
		return "IPv6"
	case KindARP:
		return "ARP"
	case KindRARP:
		return "RARP"
	default:
		return "other"
	}
}

func kindOf(etherType uint16) Kind {
	switch etherType {
	case EtherTypeIPv6:
		return KindIPv6
	case EtherTypeARP:
		return KindARP
	case EtherTypeRARP:
		return KindRARP
	default:
		return KindOther
	}
}

// Unsupported is any non-IPv4 frame. Nothing past the Ethernet header is
// looked at.
type Unsupported struct {
	EtherType uint16
	Kind      Kind
}

// IP protocol numbers we decode further.
const (
	ProtocolICMP = 1
	ProtocolTCP  = 6
	ProtocolUDP  = 17
)

// IPv4Header holds the fixed part of an IPv4 header in host order.
type IPv4Header struct {
	Version     uint8
	IHL         uint8
	TOS         uint8
	TotalLength uint16
	ID          uint16

	// Flags (upper three bits) and fragment offset (lower 13 bits) as
	// they're laid out on the wire.
	FlagsFragment uint16

	TTL      uint8
	Protocol uint8
	Checksum uint16
	Src      uint32
	Dst      uint32
}

// HeaderLength is the header size in bytes, options included.
func (h IPv4Header) HeaderLength() int {
	return int(h.IHL) * 4
}

func (h IPv4Header) DontFragment() bool {
	return h.FlagsFragment&0x4000 != 0
}

func (h IPv4Header) MoreFragments() bool {
	return h.FlagsFragment&0x2000 != 0
}

// FragmentOffset is expressed in units of 8 bytes.
func (h IPv4Header) FragmentOffset() uint16 {
	return h.FlagsFragment & 0x1FFF
}

// Valid verifies the header checksum against the frame h was decoded from.
func (h IPv4Header) Valid(frame []byte) bool {
	end := ethHeaderLen + h.HeaderLength()
	if h.IHL < 5 || len(frame) < end {
		return false
	}
	return Checksum(frame[ethHeaderLen:end]) == 0
}

// IPOnly is an IPv4 datagram carrying a protocol we don't decode.
type IPOnly struct {
	IP      IPv4Header
	Payload []byte
}

// ICMP is an ICMP message. Rest is the type-dependent second word.
type ICMP struct {
	IP       IPv4Header
	Type     uint8
	Code     uint8
	Checksum uint16
	Rest     uint32
	Payload  []byte
}

// TCP flags as laid out in the 16 bits following the sequence numbers,
// with NS borrowed from the data offset byte.
const (
	FlagFIN uint16 = 1 << iota
	FlagSYN
	FlagRST
	FlagPSH
	FlagACK
	FlagURG
	FlagECE
	FlagCWR
	FlagNS
)

var flagNames = []struct {
	f uint16
	n string
}{
	{FlagNS, "NS"}, {FlagCWR, "CWR"}, {FlagECE, "ECE"}, {FlagURG, "URG"},
	{FlagACK, "ACK"}, {FlagPSH, "PSH"}, {FlagRST, "RST"}, {FlagSYN, "SYN"}, {FlagFIN, "FIN"},
}

// TCP is a TCP segment.
type TCP struct {
	IP         IPv4Header
	SrcPort    uint16
	DstPort    uint16
	Seq        uint32
	Ack        uint32
	DataOffset uint8
	Flags      uint16
	Window     uint16
	Checksum   uint16
	Urgent     uint16
	Payload    []byte
}

// HeaderLength is the segment header size in bytes, options included.
func (t TCP) HeaderLength() int {
	return int(t.DataOffset) * 4
}

// PayloadLength is derived from the IP total length, not from what was
// captured.
func (t TCP) PayloadLength() int {
	n := int(t.IP.TotalLength) - t.IP.HeaderLength() - t.HeaderLength()
	if n < 0 {
		return 0
	}
	return n
}

func (t TCP) Has(flag uint16) bool {
	return t.Flags&flag != 0
}

// FlagString renders the set flags the way tcpdump(8) lists them.
func (t TCP) FlagString() string {
	s := ""
	for _, fn := range flagNames {
		if t.Has(fn.f) {
			if s != "" {
				s += "|"
			}
			s += fn.n
		}
	}
	return s
}

// UDP is a UDP datagram.
type UDP struct {
	IP       IPv4Header
	SrcPort  uint16
	DstPort  uint16
	Length   uint16
	Checksum uint16
	Payload  []byte
}

// PayloadLength is derived from the UDP length field.
func (u UDP) PayloadLength() int {
	n := int(u.Length) - udpHeaderLen
	if n < 0 {
		return 0
	}
	return n
}
