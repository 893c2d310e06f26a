package sockdiag

import (
	hnl "github.com/scitags/hostwatch/netlink"
)

const (
	sizeofSockID  = 0x30
	sizeofRequest = sizeofSockID + 0x8
	sizeofMessage = sizeofSockID + 0x18
)

// request is the Go counterpart of struct inet_diag_req_v2. See sock_diag(7).
// The embedded inet_diag_sockid is left zeroed: dumps ignore it.
type request struct {
	Family   uint8
	Protocol uint8
	Ext      uint8
	States   uint32
}

// MarshalBinary lays the request out in host byte order, as netlink expects.
func (r request) MarshalBinary() ([]byte, error) {
	b := make([]byte, sizeofRequest)
	b[0] = r.Family
	b[1] = r.Protocol
	b[2] = r.Ext
	// b[3] is padding.
	hnl.Native.PutUint32(b[4:8], r.States)
	return b, nil
}
