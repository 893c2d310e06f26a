package sockdiag

import (
	"fmt"

	"github.com/mdlayher/netlink"

	hnl "github.com/scitags/hostwatch/netlink"
	"github.com/scitags/hostwatch/types"
)

// message is the subset of struct inet_diag_msg we keep, already in host
// order. The IPv4 addresses live in the first word of the 16-byte fields.
type message struct {
	family     uint8
	state      types.State
	timer      types.Timer
	localPort  uint16
	remotePort uint16
	localAddr  uint32
	remoteAddr uint32
	uid        uint32
	inode      uint32
	info       []byte
}

// parseMessage decodes an inet_diag_msg and its trailing attributes. b is
// only ever read from.
func parseMessage(b []byte) (message, error) {
	var m message

	rb := hnl.ReadBuffer{Bytes: b}
	if err := rb.Need(sizeofMessage, "inet_diag_msg"); err != nil {
		return m, err
	}

	m.family = rb.Read()
	m.state = types.State(rb.Read())
	m.timer = types.Timer(rb.Read())
	rb.Read() // idiag_retrans

	m.localPort = hnl.Ntohs(hnl.Native.Uint16(rb.Next(2)))
	m.remotePort = hnl.Ntohs(hnl.Native.Uint16(rb.Next(2)))
	m.localAddr = hnl.Ntohl(hnl.Native.Uint32(rb.Next(4)))
	rb.Next(12)
	m.remoteAddr = hnl.Ntohl(hnl.Native.Uint32(rb.Next(4)))
	rb.Next(12)

	rb.Next(4)  // idiag_if
	rb.Next(8)  // idiag_cookie
	rb.Next(12) // idiag_expires, idiag_rqueue and idiag_wqueue
	m.uid = hnl.Native.Uint32(rb.Next(4))
	m.inode = hnl.Native.Uint32(rb.Next(4))

	if rb.Len() == 0 {
		return m, nil
	}

	ad, err := netlink.NewAttributeDecoder(rb.Next(rb.Len()))
	if err != nil {
		return m, fmt.Errorf("%w: error decoding attributes: %w", hnl.ErrProtocol, err)
	}
	ad.ByteOrder = hnl.Native

	for ad.Next() {
		if ad.Type() != hnl.INET_DIAG_INFO {
			continue
		}
		// Bytes hands back a copy.
		m.info = ad.Bytes()
	}

	if err := ad.Err(); err != nil {
		return m, fmt.Errorf("%w: error decoding attributes: %w", hnl.ErrProtocol, err)
	}

	return m, nil
}
