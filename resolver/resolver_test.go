package resolver

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/scitags/hostwatch/internal/proctest"
	"github.com/scitags/hostwatch/sampler"
	"github.com/scitags/hostwatch/settings"
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

func setup(t *testing.T) (*proctest.Tree, *sampler.Sampler, *types.SocketMap) {
	t.Helper()

	tr := proctest.New(t, 1_000_000, 101)

	tr.AddProcess(100, proctest.Stat{Comm: "nginx", UTime: 150, STime: 50, Starttime: 100, RSS: 2500}, "/usr/sbin/nginx", "")
	tr.AddFile(100, 3, "/dev/null")
	tr.AddSocket(100, 5, 77)
	tr.AddSocket(100, 6, 78)
	tr.AddSocket(100, 7, 79)
	tr.AddFile(100, 8, "pipe:[12]")

	// Vanished between the listing and the sampling.
	tr.AddEntry("200/fd")
	tr.AddSocket(200, 4, 80)

	// No descriptor table to look at.
	tr.AddEntry("300")

	tr.AddEntry("sys")

	s, err := sampler.New(settings.New(tr.Root, 1_000_000, 100, 4096))
	if err != nil {
		t.Fatalf("error creating sampler: %v", err)
	}

	sockets := types.NewSocketMap()
	for _, inode := range []uint32{77, 79, 80, 99} {
		sockets.Update(inode, func(s *types.TCPSocket) {})
	}

	return tr, s, sockets
}

func owners(sockets *types.SocketMap) map[uint32][2]int {
	o := map[uint32][2]int{}
	for _, s := range sockets.Snapshot() {
		o[s.Inode] = [2]int{s.PID, s.FD}
	}
	return o
}

func TestResolve(t *testing.T) {
	tr, s, sockets := setup(t)
	processes := types.NewProcessMap()

	stats, err := Resolve(context.Background(), sockets, processes, s)
	if err != nil {
		t.Fatalf("error resolving: %v", err)
	}

	want := Stats{Pids: 2, Descriptors: 6, Matches: 3, Skipped: 2}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Errorf("unexpected stats (-want +got):\n%s", diff)
	}

	wantOwners := map[uint32][2]int{
		77: {100, 5},
		79: {100, 7},
		80: {200, 4},
		99: {0, 0},
	}
	if diff := cmp.Diff(wantOwners, owners(sockets)); diff != "" {
		t.Errorf("unexpected owners (-want +got):\n%s", diff)
	}

	if processes.Len() != 1 {
		t.Fatalf("got %d processes, want 1", processes.Len())
	}
	p, ok := processes.Get(100)
	if !ok || p.Name != "nginx" || p.Exe != "/usr/sbin/nginx" || p.Ticks != 200 {
		t.Errorf("unexpected process %+v", p)
	}

	// A second pass refreshes what's known.
	tr.SetUptime(103)
	tr.SetStat(100, proctest.Stat{Comm: "nginx", UTime: 300, STime: 50, Starttime: 100, RSS: 2500})

	if _, err := Resolve(context.Background(), sockets, processes, s); err != nil {
		t.Fatalf("error resolving: %v", err)
	}

	p, _ = processes.Get(100)
	if p.PrevTicks != 200 || p.Ticks != 350 {
		t.Errorf("got ticks %d -> %d, want 200 -> 350", p.PrevTicks, p.Ticks)
	}
	if u := s.CPUUtilization(p); u < 0.749 || u > 0.751 {
		t.Errorf("got utilization %f, want 0.75", u)
	}
}

func TestResolveProcRoot(t *testing.T) {
	tr, s, sockets := setup(t)

	if err := os.RemoveAll(tr.Root); err != nil {
		t.Fatalf("error removing the proc root: %v", err)
	}

	_, err := Resolve(context.Background(), sockets, types.NewProcessMap(), s)
	if !errors.Is(err, ErrProcRoot) {
		t.Errorf("got %v, want %v", err, ErrProcRoot)
	}
}

func TestResolveCancelled(t *testing.T) {
	_, s, sockets := setup(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	processes := types.NewProcessMap()
	if _, err := Resolve(ctx, sockets, processes, s); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want %v", err, context.Canceled)
	}
	if processes.Len() != 0 {
		t.Errorf("a cancelled resolution sampled %d processes", processes.Len())
	}
}

func TestParseSocketInode(t *testing.T) {
	tests := []struct {
		target string
		inode  uint32
		ok     bool
	}{
		{"socket:[77]", 77, true},
		{"socket:[4294967295]", 4294967295, true},
		{"socket:[4294967296]", 0, false},
		{"socket:[]", 0, false},
		{"socket:[77", 0, false},
		{"pipe:[77]", 0, false},
		{"/dev/null", 0, false},
	}

	for _, tc := range tests {
		inode, ok := parseSocketInode(tc.target)
		if inode != tc.inode || ok != tc.ok {
			t.Errorf("%q: got (%d, %t), want (%d, %t)", tc.target, inode, ok, tc.inode, tc.ok)
		}
	}
}
