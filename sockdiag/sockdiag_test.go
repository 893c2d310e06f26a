package sockdiag

import (
	"context"
	"encoding/binary"
	"errors"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/mdlayher/netlink"
	"github.com/mdlayher/netlink/nltest"

	hnl "github.com/scitags/hostwatch/netlink"
	"github.com/scitags/hostwatch/types"
)

func init() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		AddSource: true,
		Level:     slog.LevelError,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Remove time.
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			// Remove the directory from the source's filename.
			if a.Key == slog.SourceKey {
				source := a.Value.Any().(*slog.Source)
				source.File = filepath.Base(source.File)
			}
			return a
		},
	}))
	slog.SetDefault(logger)
}

// kernelError replies with errno the way the kernel does. nltest.Error keeps
// the request flags, and Dump's flags read as Capped|AcknowledgeTLVs on an
// error reply, so they're cleared.
func kernelError(errno syscall.Errno, reqs []netlink.Message) ([]netlink.Message, error) {
	msgs, err := nltest.Error(int(errno), reqs)
	for i := range msgs {
		msgs[i].Header.Flags = 0
	}
	return msgs, err
}

type diagEntry struct {
	family     uint8
	state      types.State
	timer      types.Timer
	src, dst   [4]byte
	sport      uint16
	dport      uint16
	uid, inode uint32
	info       []byte
}

// marshal lays an entry out as the kernel would: ports and addresses in
// network order, everything else in host order.
func (e diagEntry) marshal(t *testing.T) []byte {
	b := make([]byte, sizeofMessage)
	b[0] = e.family
	b[1] = uint8(e.state)
	b[2] = uint8(e.timer)
	binary.BigEndian.PutUint16(b[4:6], e.sport)
	binary.BigEndian.PutUint16(b[6:8], e.dport)
	copy(b[8:12], e.src[:])
	copy(b[24:28], e.dst[:])
	hnl.Native.PutUint32(b[64:68], e.uid)
	hnl.Native.PutUint32(b[68:72], e.inode)

	ae := netlink.NewAttributeEncoder()
	ae.ByteOrder = hnl.Native
	ae.Bytes(hnl.INET_DIAG_SHUTDOWN, []byte{0})
	if e.info != nil {
		ae.Bytes(hnl.INET_DIAG_INFO, e.info)
	}
	attrs, err := ae.Encode()
	if err != nil {
		t.Fatalf("error encoding attributes: %v", err)
	}

	return append(b, attrs...)
}

func dumpReply(req netlink.Message, payloads ...[]byte) ([]netlink.Message, error) {
	msgs := []netlink.Message{}
	for _, p := range payloads {
		msgs = append(msgs, netlink.Message{
			Header: netlink.Header{Type: hnl.SOCK_DIAG_BY_FAMILY, Sequence: req.Header.Sequence, PID: req.Header.PID},
			Data:   p,
		})
	}
	msgs = append(msgs, netlink.Message{Header: netlink.Header{Sequence: req.Header.Sequence, PID: req.Header.PID}})
	return nltest.Multipart(msgs)
}

var info = []byte{1, 0, 0, 0, 0, 0, 0x97, 0, 0xaa, 0xbb}

var entries = []diagEntry{
	{
		family: hnl.AF_INET, state: types.TCP_ESTABLISHED, timer: types.TIMER_ON,
		src: [4]byte{10, 0, 0, 5}, sport: 43210, dst: [4]byte{93, 184, 216, 34}, dport: 443,
		uid: 1000, inode: 1001, info: info,
	},
	{
		family: hnl.AF_INET, state: types.TCP_LISTEN,
		src: [4]byte{0, 0, 0, 0}, sport: 22,
		inode: 1002,
	},
	// Timewait sockets have no inode.
	{
		family: hnl.AF_INET, state: types.TCP_TIME_WAIT, timer: types.TIMER_TIMEWAIT,
		src: [4]byte{10, 0, 0, 5}, sport: 43200, dst: [4]byte{93, 184, 216, 34}, dport: 443,
	},
	{
		family: hnl.AF_INET, state: types.TCP_ESTABLISHED,
		src: [4]byte{127, 0, 0, 1}, sport: 5432, dst: [4]byte{10, 0, 0, 5}, dport: 40000,
		inode: 1003,
	},
	{
		family: hnl.AF_INET, state: types.TCP_ESTABLISHED,
		src: [4]byte{10, 0, 0, 5}, sport: 40000, dst: [4]byte{127, 1, 2, 3}, dport: 5432,
		inode: 1004,
	},
}

func TestQuery(t *testing.T) {
	var seen []netlink.Message
	conn := nltest.Dial(func(reqs []netlink.Message) ([]netlink.Message, error) {
		seen = append(seen, reqs...)
		payloads := [][]byte{}
		for _, e := range entries {
			payloads = append(payloads, e.marshal(t))
		}
		return dumpReply(reqs[0], payloads...)
	})
	defer conn.Close()

	sockets := types.NewSocketMap()

	// Resolved data must survive a query.
	sockets.Update(1001, func(s *types.TCPSocket) {
		s.PID, s.FD = 42, 7
	})

	n, err := Query(context.Background(), conn, sockets)
	if err != nil {
		t.Fatalf("error querying sockets: %v", err)
	}
	if n != 2 {
		t.Errorf("got %d admitted sockets, want 2", n)
	}

	want := []types.TCPSocket{
		{
			Inode:      1001,
			LocalAddr:  types.IPv4(10, 0, 0, 5),
			LocalPort:  43210,
			RemoteAddr: types.IPv4(93, 184, 216, 34),
			RemotePort: 443,
			State:      types.TCP_ESTABLISHED,
			Timer:      types.TIMER_ON,
			UID:        1000,
			PID:        42,
			FD:         7,
			Info:       info,
		},
		{
			Inode:     1002,
			LocalPort: 22,
			State:     types.TCP_LISTEN,
		},
	}
	if diff := cmp.Diff(want, sockets.Snapshot(), cmpopts.IgnoreUnexported(types.TCPSocket{})); diff != "" {
		t.Errorf("unexpected sockets (-want +got):\n%s", diff)
	}

	if len(seen) != 1 {
		t.Fatalf("got %d requests, want 1", len(seen))
	}
	req := seen[0]
	if req.Header.Type != hnl.SOCK_DIAG_BY_FAMILY || req.Header.Flags&netlink.Dump == 0 {
		t.Errorf("unexpected request header %+v", req.Header)
	}
	if len(req.Data) != sizeofRequest {
		t.Fatalf("got a %d byte request, want %d", len(req.Data), sizeofRequest)
	}
	if req.Data[0] != hnl.AF_INET || req.Data[1] != hnl.IPPROTO_TCP || req.Data[2] != 1<<(hnl.INET_DIAG_INFO-1) {
		t.Errorf("unexpected request %v", req.Data[:4])
	}
	if states := hnl.Native.Uint32(req.Data[4:8]); states != types.TCP_ALL_FLAGS {
		t.Errorf("got states %#x, want %#x", states, types.TCP_ALL_FLAGS)
	}

	ti, err := sockets.Snapshot()[0].TCPInfo()
	if err != nil {
		t.Fatalf("error parsing tcp_info: %v", err)
	}
	if ti.State != types.TCP_ESTABLISHED || ti.SndWscale != 7 || ti.RcvWscale != 9 {
		t.Errorf("unexpected tcp_info %v", ti)
	}
}

func TestQueryKeepsInfo(t *testing.T) {
	withInfo := true
	conn := nltest.Dial(func(reqs []netlink.Message) ([]netlink.Message, error) {
		e := entries[0]
		if !withInfo {
			e.info = nil
		}
		return dumpReply(reqs[0], e.marshal(t))
	})
	defer conn.Close()

	sockets := types.NewSocketMap()
	for _, w := range []bool{true, false} {
		withInfo = w
		if _, err := Query(context.Background(), conn, sockets); err != nil {
			t.Fatalf("error querying sockets: %v", err)
		}
	}

	s, _ := sockets.Get(1001)
	if !cmp.Equal(s.Info, info) {
		t.Errorf("got info %v, want %v", s.Info, info)
	}
}

func TestQueryErrors(t *testing.T) {
	tests := []struct {
		name  string
		fn    nltest.Func
		want  error
		errno syscall.Errno
	}{
		{
			name: "kernel error",
			fn: func(reqs []netlink.Message) ([]netlink.Message, error) {
				return kernelError(syscall.EINVAL, reqs)
			},
			want:  hnl.ErrProtocol,
			errno: syscall.EINVAL,
		},
		{
			name: "truncated message",
			fn: func(reqs []netlink.Message) ([]netlink.Message, error) {
				return dumpReply(reqs[0], entries[0].marshal(t)[:40])
			},
			want: hnl.ErrProtocol,
		},
		{
			name: "bogus attributes",
			fn: func(reqs []netlink.Message) ([]netlink.Message, error) {
				b := entries[1].marshal(t)[:sizeofMessage]
				return dumpReply(reqs[0], append(b, 0xff, 0xff, 0x02, 0x00, 0x00))
			},
			want: hnl.ErrProtocol,
		},
		{
			name: "transport error",
			fn: func(reqs []netlink.Message) ([]netlink.Message, error) {
				return nil, syscall.ENOBUFS
			},
			want: hnl.ErrTransport,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			conn := nltest.Dial(tc.fn)
			defer conn.Close()

			_, err := Query(context.Background(), conn, types.NewSocketMap())
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}

			errno, ok := hnl.KernelErrno(err)
			if tc.errno != 0 && (!ok || errno != tc.errno) {
				t.Errorf("got errno %v, want %v", errno, tc.errno)
			}
			if tc.errno == 0 && ok {
				t.Errorf("got unexpected errno %v", errno)
			}
		})
	}
}

func TestConfig(t *testing.T) {
	var c Config
	if err := yaml.Unmarshal([]byte("states: 2\n"), &c); err != nil {
		t.Fatalf("error unmarshalling: %v", err)
	}

	want := DefaultConfig
	want.States = 2
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("unexpected config (-want +got):\n%s", diff)
	}
}

func TestQueryLive(t *testing.T) {
	conn, err := Dial()
	if err != nil {
		t.Skipf("cannot open a sock_diag socket: %v", err)
	}
	defer conn.Close()

	l, err := net.Listen("tcp", "127.0.0.1:")
	if err != nil {
		t.Fatalf("error setting up TCP listener: %v", err)
	}
	defer l.Close()

	sockets := types.NewSocketMap()
	if _, err := Query(context.Background(), conn, sockets); err != nil {
		t.Fatalf("error querying sockets: %v", err)
	}

	for _, s := range sockets.Snapshot() {
		if types.IsLoopback(s.LocalAddr) || types.IsLoopback(s.RemoteAddr) || s.Inode == 0 {
			t.Errorf("admitted socket %s -> %s (inode %d)", s.Local(), s.Remote(), s.Inode)
		}
	}
}
