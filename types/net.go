package types

import (
	"encoding/binary"
	"fmt"
	"net"
	"net/netip"
)

/*
 * Even if it's abusing the naming a bit, we'll include goodies dealing with
 * IPv4 addresses here, as they're needed by the inventory, the socket
 * diagnostics and the decoder alike. Addresses are kept as host-order uint32s
 * across the board: that's what the kernel hands us once ntohl'd.
 */

func parseCidr(network string, comment string) netip.Prefix {
	prefix, err := netip.ParsePrefix(network)
	if err != nil {
		panic(fmt.Sprintf("error parsing %s (%s): %v", network, comment, err))
	}
	return prefix
}

var (
	loopbackNet = parseCidr("127.0.0.0/8", "RFC 1122, Section 3.2.1.3: Loopback")
)

// IPv4 builds a host-order address out of its four octets.
func IPv4(a, b, c, d byte) uint32 {
	return uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d)
}

// AddrFrom4 converts a network-order (i.e. wire) address into host order.
func AddrFrom4(b [4]byte) uint32 {
	return binary.BigEndian.Uint32(b[:])
}

// AddrFromIP converts a net.IP into host order. Anything not representable
// as an IPv4 address maps to 0.
func AddrFromIP(ip net.IP) uint32 {
	ip4 := ip.To4()
	if ip4 == nil {
		return 0
	}
	return binary.BigEndian.Uint32(ip4)
}

// Netip returns the netip.Addr representation of a host-order address.
func Netip(addr uint32) netip.Addr {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], addr)
	return netip.AddrFrom4(b)
}

// FormatIPv4 renders a host-order address in dotted-quad notation.
func FormatIPv4(addr uint32) string {
	return Netip(addr).String()
}

// PrefixMask returns the host-order netmask for a given prefix length.
func PrefixMask(bits uint8) uint32 {
	if bits == 0 {
		return 0
	}
	if bits >= 32 {
		return 0xFFFFFFFF
	}
	return ^uint32(0) << (32 - bits)
}

// IsLoopback will return true whenever the host-order address belongs to 127.0.0.0/8.
func IsLoopback(addr uint32) bool {
	return loopbackNet.Contains(Netip(addr))
}

// FormatMAC renders a hardware address the way ip(8) does.
func FormatMAC(mac [6]byte) string {
	return net.HardwareAddr(mac[:]).String()
}
