// Package decoder turns raw captured Ethernet frames into typed views of
// their IPv4, ICMP, TCP and UDP headers. Decoding never modifies the frame:
// multi-byte fields are converted to host order as they're read.
package decoder

import (
	"encoding/binary"
	"fmt"
)

const (
	ethHeaderLen  = 14
	ipv4MinLen    = 20
	icmpHeaderLen = 8
	tcpMinLen     = 20
	udpHeaderLen  = 8
)

var be = binary.BigEndian

// Decode inspects a single frame. Payload slices in the result point into
// frame and stay valid as long as it does.
func Decode(frame []byte) (Frame, error) {
	if len(frame) < ethHeaderLen {
		return nil, fmt.Errorf("ethernet header needs %d bytes, got %d: %w", ethHeaderLen, len(frame), ErrTruncated)
	}

	etherType := be.Uint16(frame[12:14])
	if etherType != EtherTypeIPv4 {
		return Unsupported{EtherType: etherType, Kind: kindOf(etherType)}, nil
	}

	ip, err := decodeIPv4(frame)
	if err != nil {
		return nil, err
	}

	off := ethHeaderLen + ip.HeaderLength()
	end := ethHeaderLen + int(ip.TotalLength)
	if end > len(frame) || end < off {
		// Snapped captures and bogus total lengths alike: keep what's there.
		end = len(frame)
	}

	switch ip.Protocol {
	case ProtocolICMP:
		return decodeICMP(ip, frame[off:end])
	case ProtocolTCP:
		return decodeTCP(ip, frame[off:end])
	case ProtocolUDP:
		return decodeUDP(ip, frame[off:end])
	default:
		return IPOnly{IP: ip, Payload: frame[off:end]}, nil
	}
}

func decodeIPv4(frame []byte) (IPv4Header, error) {
	b := frame[ethHeaderLen:]
	if len(b) < ipv4MinLen {
		return IPv4Header{}, fmt.Errorf("ipv4 header needs %d bytes, got %d: %w", ipv4MinLen, len(b), ErrTruncated)
	}

	h := IPv4Header{
		Version:       b[0] >> 4,
		IHL:           b[0] & 0x0F,
		TOS:           b[1],
		TotalLength:   be.Uint16(b[2:4]),
		ID:            be.Uint16(b[4:6]),
		FlagsFragment: be.Uint16(b[6:8]),
		TTL:           b[8],
		Protocol:      b[9],
		Checksum:      be.Uint16(b[10:12]),
		Src:           be.Uint32(b[12:16]),
		Dst:           be.Uint32(b[16:20]),
	}

	if h.Version != 4 {
		return IPv4Header{}, fmt.Errorf("ip version %d: %w", h.Version, ErrMalformed)
	}
	if h.IHL < 5 {
		return IPv4Header{}, fmt.Errorf("ip header length %d words: %w", h.IHL, ErrMalformed)
	}
	if len(b) < h.HeaderLength() {
		return IPv4Header{}, fmt.Errorf("ipv4 header with options needs %d bytes, got %d: %w", h.HeaderLength(), len(b), ErrTruncated)
	}

	return h, nil
}

func decodeICMP(ip IPv4Header, b []byte) (Frame, error) {
	if len(b) < icmpHeaderLen {
		return nil, fmt.Errorf("icmp header needs %d bytes, got %d: %w", icmpHeaderLen, len(b), ErrTruncated)
	}

	return ICMP{
		IP:       ip,
		Type:     b[0],
		Code:     b[1],
		Checksum: be.Uint16(b[2:4]),
		Rest:     be.Uint32(b[4:8]),
		Payload:  b[icmpHeaderLen:],
	}, nil
}

func decodeTCP(ip IPv4Header, b []byte) (Frame, error) {
	if len(b) < tcpMinLen {
		return nil, fmt.Errorf("tcp header needs %d bytes, got %d: %w", tcpMinLen, len(b), ErrTruncated)
	}

	t := TCP{
		IP:         ip,
		SrcPort:    be.Uint16(b[0:2]),
		DstPort:    be.Uint16(b[2:4]),
		Seq:        be.Uint32(b[4:8]),
		Ack:        be.Uint32(b[8:12]),
		DataOffset: b[12] >> 4,
		Flags:      uint16(b[12]&0x01)<<8 | uint16(b[13]),
		Window:     be.Uint16(b[14:16]),
		Checksum:   be.Uint16(b[16:18]),
		Urgent:     be.Uint16(b[18:20]),
	}

	if t.DataOffset < 5 {
		return nil, fmt.Errorf("tcp data offset %d words: %w", t.DataOffset, ErrMalformed)
	}
	if len(b) < t.HeaderLength() {
		return nil, fmt.Errorf("tcp header with options needs %d bytes, got %d: %w", t.HeaderLength(), len(b), ErrTruncated)
	}

	t.Payload = b[t.HeaderLength():]
	return t, nil
}

func decodeUDP(ip IPv4Header, b []byte) (Frame, error) {
	if len(b) < udpHeaderLen {
		return nil, fmt.Errorf("udp header needs %d bytes, got %d: %w", udpHeaderLen, len(b), ErrTruncated)
	}

	return UDP{
		IP:       ip,
		SrcPort:  be.Uint16(b[0:2]),
		DstPort:  be.Uint16(b[2:4]),
		Length:   be.Uint16(b[4:6]),
		Checksum: be.Uint16(b[6:8]),
		Payload:  b[udpHeaderLen:],
	}, nil
}
