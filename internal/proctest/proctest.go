// Package proctest builds synthetic process filesystems for tests.
package proctest

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// Tree is a fake proc root living in a temporary directory.
type Tree struct {
	t    testing.TB
	Root string
}

// Stat holds the handful of /proc/<pid>/stat fields we care about.
type Stat struct {
	Comm      string
	UTime     uint64
	STime     uint64
	Starttime uint64
	RSS       int64
}

// New creates an empty tree with the given total memory [KiB] and uptime [s].
func New(t testing.TB, memTotalKB uint64, uptime float64) *Tree {
	t.Helper()

	tr := &Tree{t: t, Root: t.TempDir() + "/"}
	tr.write("meminfo", fmt.Sprintf("MemTotal:       %d kB\nMemFree:         1024 kB\n", memTotalKB))
	tr.SetUptime(uptime)
	return tr
}

func (tr *Tree) SetUptime(uptime float64) {
	tr.t.Helper()
	tr.write("uptime", fmt.Sprintf("%.2f %.2f\n", uptime, uptime*3))
}

// AddProcess creates /proc/<pid> with a stat file, an exe link when exe is
// not empty and a unified cgroup entry when cgroup is not empty.
func (tr *Tree) AddProcess(pid int, stat Stat, exe, cgroup string) {
	tr.t.Helper()

	tr.mkdir(strconv.Itoa(pid), "fd")
	tr.SetStat(pid, stat)

	if exe != "" {
		tr.symlink(exe, strconv.Itoa(pid), "exe")
	}
	if cgroup != "" {
		tr.write(filepath.Join(strconv.Itoa(pid), "cgroup"), "0::"+cgroup+"\n")
	}
}

// SetStat rewrites /proc/<pid>/stat.
func (tr *Tree) SetStat(pid int, stat Stat) {
	tr.t.Helper()

	fields := make([]string, 43)
	for i := range fields {
		fields[i] = "0"
	}
	fields[0] = "S"
	fields[11] = strconv.FormatUint(stat.UTime, 10)
	fields[12] = strconv.FormatUint(stat.STime, 10)
	fields[19] = strconv.FormatUint(stat.Starttime, 10)
	fields[21] = strconv.FormatInt(stat.RSS, 10)

	tr.write(filepath.Join(strconv.Itoa(pid), "stat"),
		fmt.Sprintf("%d (%s) %s\n", pid, stat.Comm, strings.Join(fields, " ")))
}

// AddSocket links /proc/<pid>/fd/<fd> to socket:[inode].
func (tr *Tree) AddSocket(pid, fd int, inode uint32) {
	tr.t.Helper()
	tr.symlink(fmt.Sprintf("socket:[%d]", inode), strconv.Itoa(pid), "fd", strconv.Itoa(fd))
}

// AddFile links /proc/<pid>/fd/<fd> to an arbitrary target.
func (tr *Tree) AddFile(pid, fd int, target string) {
	tr.t.Helper()
	tr.symlink(target, strconv.Itoa(pid), "fd", strconv.Itoa(fd))
}

// AddEntry creates a plain directory below the root.
func (tr *Tree) AddEntry(name string) {
	tr.t.Helper()
	tr.mkdir(name)
}

func (tr *Tree) path(elems ...string) string {
	return filepath.Join(append([]string{tr.Root}, elems...)...)
}

func (tr *Tree) mkdir(elems ...string) {
	if err := os.MkdirAll(tr.path(elems...), 0o755); err != nil {
		tr.t.Fatalf("error creating directory: %v", err)
	}
}

func (tr *Tree) write(name, content string) {
	if err := os.MkdirAll(filepath.Dir(tr.path(name)), 0o755); err != nil {
		tr.t.Fatalf("error creating directory: %v", err)
	}
	if err := os.WriteFile(tr.path(name), []byte(content), 0o644); err != nil {
		tr.t.Fatalf("error writing %s: %v", name, err)
	}
}

func (tr *Tree) symlink(target string, elems ...string) {
	if err := os.Symlink(target, tr.path(elems...)); err != nil {
		tr.t.Fatalf("error creating symlink: %v", err)
	}
}
