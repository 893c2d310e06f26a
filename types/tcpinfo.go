package types

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fatih/structs"
	"github.com/josharian/native"
)

// tcpInfoMinLen covers the eight single-byte leading fields of a struct tcp_info:
// anything shorter is not a tcp_info at all.
const tcpInfoMinLen = 8

var ErrShortTCPInfo = errors.New("tcp_info payload too short")

// TCPInfo is the linux defined structure returned in INET_DIAG_INFO attributes.
// It corresponds to the struct tcp_info in [0] up to tcpi_segs_in. Field naming
// follows github.com/m-lab/tcp-info.
//
// 0: https://git.kernel.org/pub/scm/linux/kernel/git/torvalds/linux.git/tree/include/uapi/linux/tcp.h
type TCPInfo struct {
	State       State `structs:"state" lean:"state"`
	CAState     uint8 `structs:"caState" lean:"-"`
	Retransmits uint8 `structs:"retransmits" lean:"retransmits"`
	Probes      uint8 `structs:"probes" lean:"-"`
	Backoff     uint8 `structs:"backoff" lean:"-"`

	// See https://elixir.bootlin.com/linux/v5.14/source/include/uapi/linux/tcp.h#L166
	// for a list of possible values.
	Options                uint8 `structs:"options" lean:"-"`
	SndWscale              uint8 `structs:"sndWscale" lean:"-"`
	RcvWscale              uint8 `structs:"rcvWscale" lean:"-"`
	DeliveryRateAppLimited uint8 `structs:"deliveryRateAppLimited" lean:"-"`
	FastopenClientFail     uint8 `structs:"fastOpenClientFail" lean:"-"`

	Rto     uint32 `structs:"rto" lean:"-"`
	Ato     uint32 `structs:"ato" lean:"-"`
	SndMss  uint32 `structs:"sndMss" lean:"sndMss"`
	RcvMss  uint32 `structs:"rcvMss" lean:"-"`
	Unacked uint32 `structs:"unAcked" lean:"-"`
	Sacked  uint32 `structs:"sAcked" lean:"-"`
	Lost    uint32 `structs:"lost" lean:"-"`
	Retrans uint32 `structs:"retrans" lean:"-"`
	Fackets uint32 `structs:"fAckets" lean:"-"`

	// Elapsed times [ms] since the last event of each kind.
	LastDataSent uint32 `structs:"lastDataSent" lean:"-"`
	LastAckSent  uint32 `structs:"lastAckSent" lean:"-"`
	LastDataRecv uint32 `structs:"lastDataRecv" lean:"-"`
	LastAckRecv  uint32 `structs:"lastAckRecv" lean:"-"`

	Pmtu         uint32 `structs:"pMtu" lean:"pMtu"`
	RcvSsthresh  uint32 `structs:"rcvSsThresh" lean:"-"`
	Rtt          uint32 `structs:"rtt" lean:"rtt"`
	Rttvar       uint32 `structs:"rttVar" lean:"rttVar"`
	SndSsthresh  uint32 `structs:"sndSsThresh" lean:"-"`
	SndCwnd      uint32 `structs:"sndCwnd" lean:"sndCwnd"`
	Advmss       uint32 `structs:"advMss" lean:"-"`
	Reordering   uint32 `structs:"reordering" lean:"-"`
	RcvRtt       uint32 `structs:"rcvRtt" lean:"-"`
	RcvSpace     uint32 `structs:"rcvSpace" lean:"-"`
	TotalRetrans uint32 `structs:"totalRetrans" lean:"totalRetrans"`

	PacingRate    uint64 `structs:"pacingRate" lean:"-"`
	MaxPacingRate uint64 `structs:"maxPacingRate" lean:"-"`

	/* RFC4898 tcpEStatsAppHCThruOctetsAcked */
	BytesAcked uint64 `structs:"bytesAcked" lean:"bytesAcked"`
	/* RFC4898 tcpEStatsAppHCThruOctetsReceived */
	BytesReceived uint64 `structs:"bytesRecv" lean:"bytesRecv"`
	/* RFC4898 tcpEStatsPerfSegsOut */
	SegsOut uint32 `structs:"segsOut" lean:"-"`
	/* RFC4898 tcpEStatsPerfSegsIn */
	SegsIn uint32 `structs:"segsIn" lean:"-"`
}

func (i *TCPInfo) String() string {
	return fmt.Sprintf("%#v", *i)
}

// infoReader walks a tcp_info payload. Once the payload runs out every read
// yields zero: older kernels send shorter structures.
type infoReader struct {
	b   []byte
	pos int
}

func (r *infoReader) u8() uint8 {
	if r.pos+1 > len(r.b) {
		r.pos = len(r.b)
		return 0
	}
	v := r.b[r.pos]
	r.pos++
	return v
}

func (r *infoReader) u32() uint32 {
	if r.pos+4 > len(r.b) {
		r.pos = len(r.b)
		return 0
	}
	v := native.Endian.Uint32(r.b[r.pos:])
	r.pos += 4
	return v
}

func (r *infoReader) u64() uint64 {
	if r.pos+8 > len(r.b) {
		r.pos = len(r.b)
		return 0
	}
	v := native.Endian.Uint64(r.b[r.pos:])
	r.pos += 8
	return v
}

// ParseTCPInfo decodes a raw struct tcp_info. The payload is left untouched.
func ParseTCPInfo(b []byte) (*TCPInfo, error) {
	if len(b) < tcpInfoMinLen {
		return nil, fmt.Errorf("got %d bytes, want at least %d: %w", len(b), tcpInfoMinLen, ErrShortTCPInfo)
	}

	r := infoReader{b: b}
	t := &TCPInfo{
		State:       State(r.u8()),
		CAState:     r.u8(),
		Retransmits: r.u8(),
		Probes:      r.u8(),
		Backoff:     r.u8(),
		Options:     r.u8(),
	}

	// Bitfields are laid out from the least significant bit onwards.
	scales := r.u8()
	t.SndWscale = scales & 0xf
	t.RcvWscale = scales >> 4

	flags := r.u8()
	t.DeliveryRateAppLimited = flags & 0x1
	t.FastopenClientFail = (flags >> 1) & 0x3

	for _, f := range []*uint32{
		&t.Rto, &t.Ato, &t.SndMss, &t.RcvMss,
		&t.Unacked, &t.Sacked, &t.Lost, &t.Retrans, &t.Fackets,
		&t.LastDataSent, &t.LastAckSent, &t.LastDataRecv, &t.LastAckRecv,
		&t.Pmtu, &t.RcvSsthresh, &t.Rtt, &t.Rttvar, &t.SndSsthresh, &t.SndCwnd,
		&t.Advmss, &t.Reordering, &t.RcvRtt, &t.RcvSpace, &t.TotalRetrans,
	} {
		*f = r.u32()
	}

	t.PacingRate = r.u64()
	t.MaxPacingRate = r.u64()
	t.BytesAcked = r.u64()
	t.BytesReceived = r.u64()
	t.SegsOut = r.u32()
	t.SegsIn = r.u32()

	return t, nil
}

// validTags encodes valid struct tags allowing for the control of the
// marshalling of views.
var validTags = map[string]struct{}{
	// When leveraging the lean tag a large portion of the TCPInfo struct
	// WILL NOT be marshaled. This is explained by how the several fields
	// have an associated `lean:"-"` tag.
	"lean": {},
}

// ValidVerbosity reports whether v selects a known marshalling tag. The empty
// string selects the default, complete one.
func ValidVerbosity(v string) bool {
	if v == "" {
		return true
	}
	_, ok := validTags[v]
	return ok
}

// marshalTagged leverages structs to play around with the struct tags in an
// effort to control the marshalling output: the verbosity picks the tag.
func marshalTagged(v interface{}, verbosity string) ([]byte, error) {
	s := structs.New(v)
	if _, ok := validTags[verbosity]; ok {
		s.TagName = verbosity
	}
	return json.Marshal(s.Map())
}
