package settings

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizeRoot(t *testing.T) {
	tests := map[string]string{
		"":           "/proc/",
		"/proc":      "/proc/",
		"/host/proc": "/host/proc/",
		"/tmp/x/":    "/tmp/x/",
	}

	for in, want := range tests {
		if got := New(in, 0, 0, 0).ProcRoot; got != want {
			t.Errorf("%q: got %q, want %q", in, got, want)
		}
	}
}

func TestLoadFromEnv(t *testing.T) {
	root := t.TempDir()
	meminfo := "MemTotal:       16318412 kB\nMemFree:         1024000 kB\n"
	if err := os.WriteFile(filepath.Join(root, "meminfo"), []byte(meminfo), 0o644); err != nil {
		t.Fatalf("error writing meminfo: %v", err)
	}

	t.Setenv(ProcRootEnv, root)

	s, err := Load()
	if err != nil {
		t.Fatalf("error loading settings: %v", err)
	}

	want := &Settings{ProcRoot: root + "/", MemTotalKB: 16318412, ClockTicks: s.ClockTicks, PageSize: s.PageSize}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("unexpected settings (-want +got):\n%s", diff)
	}

	if s.ClockTicks <= 0 || s.PageSize <= 0 {
		t.Errorf("got clock ticks %d and page size %d", s.ClockTicks, s.PageSize)
	}

	if p := s.Path("42", "stat"); p != root+"/42/stat" {
		t.Errorf("got path %q", p)
	}
}

func TestLoadNoMemTotal(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "meminfo"), []byte("MemFree: 10 kB\n"), 0o644); err != nil {
		t.Fatalf("error writing meminfo: %v", err)
	}

	if _, err := LoadRoot(root); !errors.Is(err, ErrMemTotal) {
		t.Errorf("got %v, want %v", err, ErrMemTotal)
	}
}
