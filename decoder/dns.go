package decoder

import "fmt"

const (
	dnsPort      = 53
	dnsHeaderLen = 12
)

// DNSHeader is the fixed header of a DNS message. See RFC 1035, section 4.1.1.
type DNSHeader struct {
	ID      uint16
	Flags   uint16
	QDCount uint16
	ANCount uint16
	NSCount uint16
	ARCount uint16
}

// Response reports whether the QR bit is set.
func (h DNSHeader) Response() bool {
	return h.Flags&0x8000 != 0
}

func (h DNSHeader) Opcode() uint8 {
	return uint8(h.Flags>>11) & 0x0F
}

func (h DNSHeader) RCode() uint8 {
	return uint8(h.Flags & 0x000F)
}

// DNS returns the DNS header carried right after the UDP header when either
// port is 53.
func (u UDP) DNS() (DNSHeader, error) {
	if u.SrcPort != dnsPort && u.DstPort != dnsPort {
		return DNSHeader{}, ErrNotDNS
	}

	b := u.Payload
	if len(b) < dnsHeaderLen {
		return DNSHeader{}, fmt.Errorf("dns header needs %d bytes, got %d: %w", dnsHeaderLen, len(b), ErrTruncated)
	}

	return DNSHeader{
		ID:      be.Uint16(b[0:2]),
		Flags:   be.Uint16(b[2:4]),
		QDCount: be.Uint16(b[4:6]),
		ANCount: be.Uint16(b[6:8]),
		NSCount: be.Uint16(b[8:10]),
		ARCount: be.Uint16(b[10:12]),
	}, nil
}
