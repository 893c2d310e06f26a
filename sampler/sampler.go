// Package sampler takes CPU and memory snapshots of processes out of procfs.
package sampler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/containerd/cgroups"
	"github.com/prometheus/procfs"

	"github.com/scitags/hostwatch/settings"
	"github.com/scitags/hostwatch/types"
)

// MinRefreshInterval is the smallest uptime delta [s] worth a new sample:
// anything shorter yields noisy rates.
const MinRefreshInterval = 0.5

var logger = types.ComponentLogger("sampler", false)

// SetLogger replaces the discarding default logger.
func SetLogger(l *slog.Logger) {
	logger = l
}

type Sampler struct {
	settings *settings.Settings
	fs       procfs.FS

	// Executable paths are assumed immutable for the life of a process.
	exes map[int]string
}

func New(s *settings.Settings) (*Sampler, error) {
	fs, err := procfs.NewFS(s.ProcRoot)
	if err != nil {
		return nil, fmt.Errorf("error opening procfs at %q: %w", s.ProcRoot, err)
	}

	return &Sampler{settings: s, fs: fs, exes: map[int]string{}}, nil
}

func (s *Sampler) Settings() *settings.Settings {
	return s.settings
}

// FS exposes the procfs handle rooted at the configured proc root.
func (s *Sampler) FS() procfs.FS {
	return s.fs
}

// Sample builds a fresh record for pid. The previous slots are seeded with the
// process start so that the first utilization figure is its lifetime average.
func (s *Sampler) Sample(pid int) (types.Process, error) {
	uptime, err := s.uptime()
	if err != nil {
		return types.Process{}, err
	}

	proc, err := s.fs.Proc(pid)
	if err != nil {
		return types.Process{}, fmt.Errorf("error getting proc entry for PID %d: %w", pid, err)
	}

	stat, err := proc.Stat()
	if err != nil {
		return types.Process{}, fmt.Errorf("error reading stat for PID %d: %w", pid, err)
	}

	p := types.Process{
		PID:        pid,
		Ticks:      uint64(stat.UTime + stat.STime),
		Uptime:     uptime,
		StartTicks: stat.Starttime,
		RSSKB:      s.rssKB(stat.RSS),
	}
	p.SetName(stat.Comm)

	if s.settings.ClockTicks > 0 {
		p.PrevUptime = float64(p.StartTicks) / float64(s.settings.ClockTicks)
	}

	p.Exe = s.executable(proc)
	p.Cgroup = s.cgroup(pid)

	logger.Debug("sampled process", "pid", pid, "name", p.Name, "exe", p.Exe, "ticks", p.Ticks, "rssKB", p.RSSKB)

	return p, nil
}

// Refresh takes a new sample of p unless the last one is less than
// MinRefreshInterval old, in which case p is left untouched.
func (s *Sampler) Refresh(p *types.Process) error {
	uptime, err := s.uptime()
	if err != nil {
		return err
	}

	if uptime-p.Uptime < MinRefreshInterval {
		logger.Log(context.Background(), types.LevelTrace, "skipping refresh", "pid", p.PID, "elapsed", uptime-p.Uptime)
		return nil
	}

	proc, err := s.fs.Proc(p.PID)
	if err != nil {
		return fmt.Errorf("error getting proc entry for PID %d: %w", p.PID, err)
	}

	stat, err := proc.Stat()
	if err != nil {
		return fmt.Errorf("error reading stat for PID %d: %w", p.PID, err)
	}

	p.PrevTicks, p.PrevUptime = p.Ticks, p.Uptime
	p.Ticks = uint64(stat.UTime + stat.STime)
	p.RSSKB = s.rssKB(stat.RSS)
	p.Uptime = uptime

	return nil
}

// CPUUtilization is the share of a core p used between its last two samples.
func (s *Sampler) CPUUtilization(p types.Process) float64 {
	return p.CPUUtilization(s.settings.ClockTicks)
}

// MemoryFraction is p's resident set size over the total system memory.
func (s *Sampler) MemoryFraction(p types.Process) float64 {
	return p.MemoryFraction(s.settings.MemTotalKB)
}

// Forget drops whatever is cached for pid.
func (s *Sampler) Forget(pid int) {
	delete(s.exes, pid)
}

func (s *Sampler) uptime() (float64, error) {
	raw, err := os.ReadFile(s.settings.Path("uptime"))
	if err != nil {
		return 0, fmt.Errorf("error reading uptime: %w", err)
	}

	fields := strings.Fields(string(raw))
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty uptime")
	}

	uptime, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, fmt.Errorf("error parsing uptime %q: %w", fields[0], err)
	}

	return uptime, nil
}

func (s *Sampler) rssKB(pages int) uint64 {
	if pages <= 0 {
		return 0
	}
	return uint64(pages) * uint64(s.settings.PageSize) / 1024
}

func (s *Sampler) executable(proc procfs.Proc) string {
	if exe, ok := s.exes[proc.PID]; ok {
		return exe
	}

	exe, err := proc.Executable()
	if err != nil {
		logger.Log(context.Background(), types.LevelTrace, "couldn't resolve executable", "pid", proc.PID, "err", err)
	}

	s.exes[proc.PID] = exe
	return exe
}

// cgroup returns the unified hierarchy path of pid, if any.
func (s *Sampler) cgroup(pid int) string {
	_, unified, err := cgroups.ParseCgroupFileUnified(s.settings.Path(strconv.Itoa(pid), "cgroup"))
	if err != nil {
		logger.Log(context.Background(), types.LevelTrace, "couldn't parse cgroup file", "pid", pid, "err", err)
		return ""
	}
	return unified
}
