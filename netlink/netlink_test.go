package netlink

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/mdlayher/netlink"
	"github.com/mdlayher/netlink/nltest"
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

// reply builds a dump reply echoing the request's sequence and pid.
func reply(req netlink.Message, data []byte) netlink.Message {
	return netlink.Message{
		Header: netlink.Header{
			Type:     req.Header.Type,
			Sequence: req.Header.Sequence,
			PID:      req.Header.PID,
		},
		Data: data,
	}
}

func TestDump(t *testing.T) {
	var seqs []uint32
	conn := nltest.Dial(func(reqs []netlink.Message) ([]netlink.Message, error) {
		req := reqs[0]
		if want := netlink.Request | netlink.Dump; req.Header.Flags != want {
			t.Errorf("got flags %s, want %s", req.Header.Flags, want)
		}
		seqs = append(seqs, req.Header.Sequence)

		return nltest.Multipart([]netlink.Message{
			reply(req, []byte{1}),
			reply(req, []byte{2}),
			reply(req, nil),
		})
	})
	defer conn.Close()

	for i := 0; i < 2; i++ {
		msgs, err := Dump(context.Background(), conn, netlink.Message{Header: netlink.Header{Type: RTM_GETROUTE}})
		if err != nil {
			t.Fatalf("error dumping: %v", err)
		}
		if len(msgs) != 2 || msgs[0].Data[0] != 1 || msgs[1].Data[0] != 2 {
			t.Fatalf("unexpected replies: %+v", msgs)
		}
	}

	if len(seqs) != 2 || seqs[1] <= seqs[0] {
		t.Errorf("sequence numbers aren't increasing: %v", seqs)
	}
}

func TestDumpKernelError(t *testing.T) {
	conn := nltest.Dial(func(reqs []netlink.Message) ([]netlink.Message, error) {
		return kernelError(syscall.EOPNOTSUPP, reqs)
	})
	defer conn.Close()

	_, err := Dump(context.Background(), conn, netlink.Message{Header: netlink.Header{Type: SOCK_DIAG_BY_FAMILY}})
	if !errors.Is(err, ErrProtocol) || errors.Is(err, ErrTransport) {
		t.Fatalf("got %v, want %v", err, ErrProtocol)
	}

	errno, ok := KernelErrno(err)
	if !ok || errno != syscall.EOPNOTSUPP {
		t.Errorf("got errno %v (%v), want %v", errno, ok, syscall.EOPNOTSUPP)
	}
}

func TestDumpTransportError(t *testing.T) {
	conn := nltest.Dial(func(reqs []netlink.Message) ([]netlink.Message, error) {
		return nil, syscall.ENOBUFS
	})
	defer conn.Close()

	_, err := Dump(context.Background(), conn, netlink.Message{Header: netlink.Header{Type: RTM_GETADDR}})
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("got %v, want %v", err, ErrTransport)
	}

	if _, ok := KernelErrno(err); ok {
		t.Errorf("transport failures carry no kernel errno")
	}
}

func TestDumpSequenceMismatch(t *testing.T) {
	conn := nltest.Dial(func(reqs []netlink.Message) ([]netlink.Message, error) {
		m := reply(reqs[0], []byte{1})
		m.Header.Sequence++
		return []netlink.Message{m}, nil
	})
	defer conn.Close()

	_, err := Dump(context.Background(), conn, netlink.Message{Header: netlink.Header{Type: RTM_GETLINK}})
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("got %v, want %v", err, ErrProtocol)
	}
}

func TestDumpCancelled(t *testing.T) {
	conn := nltest.Dial(func(reqs []netlink.Message) ([]netlink.Message, error) {
		t.Fatalf("a cancelled dump hit the socket")
		return nil, nil
	})
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Dump(ctx, conn, netlink.Message{}); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want %v", err, context.Canceled)
	}
}

func TestByteOrder(t *testing.T) {
	b := []byte{0x1f, 0x90}
	if p := Ntohs(Native.Uint16(b)); p != 8080 {
		t.Errorf("got port %d, want 8080", p)
	}

	a := []byte{10, 0, 0, 1}
	if got := Ntohl(Native.Uint32(a)); got != 0x0A000001 {
		t.Errorf("got address %#x, want 0x0a000001", got)
	}

	if Htons(Ntohs(0xBEEF)) != 0xBEEF {
		t.Errorf("Htons isn't Ntohs' inverse")
	}
}

func TestReadBuffer(t *testing.T) {
	rb := ReadBuffer{Bytes: []byte{1, 2, 3, 4, 5}}
	if rb.Read() != 1 || rb.Len() != 4 {
		t.Fatalf("unexpected state after Read: %d left", rb.Len())
	}
	if n := rb.Next(2); n[0] != 2 || n[1] != 3 {
		t.Fatalf("unexpected Next: %v", n)
	}
	if err := rb.Need(2, "tail"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := rb.Need(3, "tail"); !errors.Is(err, ErrProtocol) {
		t.Errorf("got %v, want %v", err, ErrProtocol)
	}
}
