package netlink

import (
	ne "github.com/josharian/native"
)

// Htons converts a host-order port into network order.
func Htons(in uint16) uint16 {
	if !ne.IsBigEndian {
		return uint16((in&0xFF)<<8) | uint16((in>>8)&0xFF)
	}
	return in
}

// Ntohs converts a network-order port into host order.
func Ntohs(in uint16) uint16 {
	return Htons(in)
}

// Ntohl converts a network-order address into host order.
func Ntohl(in uint32) uint32 {
	if !ne.IsBigEndian {
		return (in&0xFF)<<24 | (in&0xFF00)<<8 | (in>>8)&0xFF00 | (in>>24)&0xFF
	}
	return in
}

// Native is the host's byte order, the one netlink headers and most
// structures use.
var Native = ne.Endian
