// Package settings gathers the host parameters every other component needs:
// where the process filesystem lives and how to interpret what it says.
package settings

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/procfs"
	"github.com/tklauser/go-sysconf"

	"github.com/scitags/hostwatch/types"
)

const (
	// ProcRootEnv overrides the default process filesystem root.
	ProcRootEnv = "PROC_ROOT"

	DefaultProcRoot = "/proc/"
)

var (
	ErrMemTotal = errors.New("couldn't get the total system memory")

	logger = types.ComponentLogger("settings", false)
)

// SetLogger replaces the discarding default logger.
func SetLogger(l *slog.Logger) {
	logger = l
}

// Settings is built once and handed to each component explicitly.
type Settings struct {
	// ProcRoot always carries a trailing slash.
	ProcRoot string

	// MemTotalKB is the total system memory in KiB as reported by meminfo.
	MemTotalKB uint64

	// ClockTicks is sysconf(_SC_CLK_TCK).
	ClockTicks int64

	// PageSize is sysconf(_SC_PAGESIZE) in bytes.
	PageSize int64
}

// New builds a Settings value without querying the host.
func New(root string, memTotalKB uint64, clockTicks, pageSize int64) *Settings {
	return &Settings{
		ProcRoot:   normalizeRoot(root),
		MemTotalKB: memTotalKB,
		ClockTicks: clockTicks,
		PageSize:   pageSize,
	}
}

// Load reads the proc root from the environment and queries the host for
// the rest.
func Load() (*Settings, error) {
	return LoadRoot(os.Getenv(ProcRootEnv))
}

// LoadRoot is like Load but with an explicit proc root. An empty root means
// the default one.
func LoadRoot(root string) (*Settings, error) {
	s := &Settings{ProcRoot: normalizeRoot(root)}

	fs, err := procfs.NewFS(s.ProcRoot)
	if err != nil {
		return nil, fmt.Errorf("error opening procfs at %q: %w", s.ProcRoot, err)
	}

	mi, err := fs.Meminfo()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMemTotal, err)
	}
	if mi.MemTotal == nil {
		return nil, fmt.Errorf("%w: no MemTotal in meminfo", ErrMemTotal)
	}
	s.MemTotalKB = *mi.MemTotal

	s.ClockTicks, err = sysconf.Sysconf(sysconf.SC_CLK_TCK)
	if err != nil {
		return nil, fmt.Errorf("error getting the clock ticks: %w", err)
	}

	s.PageSize, err = sysconf.Sysconf(sysconf.SC_PAGESIZE)
	if err != nil {
		return nil, fmt.Errorf("error getting the page size: %w", err)
	}

	logger.Debug("loaded settings", "procRoot", s.ProcRoot, "memTotalKB", s.MemTotalKB,
		"clockTicks", s.ClockTicks, "pageSize", s.PageSize)

	return s, nil
}

// Path joins elems below the proc root.
func (s *Settings) Path(elems ...string) string {
	return s.ProcRoot + strings.Join(elems, "/")
}

func (s *Settings) String() string {
	return fmt.Sprintf("procRoot: %s, memTotalKB: %d, clockTicks: %d, pageSize: %d",
		s.ProcRoot, s.MemTotalKB, s.ClockTicks, s.PageSize)
}

func normalizeRoot(root string) string {
	if root == "" {
		return DefaultProcRoot
	}
	if !strings.HasSuffix(root, "/") {
		root += "/"
	}
	return root
}
