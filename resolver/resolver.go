// Package resolver joins sockets to the processes owning them by walking
// the file descriptor tables under the proc root.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/scitags/hostwatch/sampler"
	"github.com/scitags/hostwatch/types"
)

var ErrProcRoot = errors.New("couldn't list the proc root")

var logger = types.ComponentLogger("resolver", false)

// SetLogger replaces the discarding default logger.
func SetLogger(l *slog.Logger) {
	logger = l
}

// Stats summarises a resolution pass.
type Stats struct {
	Pids        int `structs:"pids"`
	Descriptors int `structs:"descriptors"`
	Matches     int `structs:"matches"`
	Skipped     int `structs:"skipped"`
}

const socketPrefix = "socket:["

// Resolve sets the pid and fd of every socket in sockets some process holds a
// descriptor to and samples those processes into processes: new pids are
// sampled afresh, known ones refreshed. Each process is sampled at most once
// per call. Unreadable entries are skipped.
func Resolve(ctx context.Context, sockets *types.SocketMap, processes *types.ProcessMap, s *sampler.Sampler) (Stats, error) {
	var stats Stats

	procs, err := s.FS().AllProcs()
	if err != nil {
		return stats, fmt.Errorf("%w: %w", ErrProcRoot, err)
	}

	root := s.Settings()
	for _, proc := range procs {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		fds, err := proc.FileDescriptors()
		if err != nil {
			logger.Log(ctx, types.LevelTrace, "couldn't list descriptors", "pid", proc.PID, "err", err)
			stats.Skipped++
			continue
		}
		stats.Pids++

		pid := strconv.Itoa(proc.PID)
		sampled := false
		for _, fd := range fds {
			stats.Descriptors++

			target, err := os.Readlink(root.Path(pid, "fd", strconv.FormatUint(uint64(fd), 10)))
			if err != nil {
				continue
			}

			inode, ok := parseSocketInode(target)
			if !ok || !sockets.Has(inode) {
				continue
			}

			if !sampled {
				sampled = true
				if err := sample(processes, s, proc.PID); err != nil {
					logger.Log(ctx, types.LevelTrace, "couldn't sample process", "pid", proc.PID, "err", err)
					stats.Skipped++
				}
			}

			sockets.Touch(inode, func(sock *types.TCPSocket) {
				sock.PID, sock.FD = proc.PID, int(fd)
			})
			stats.Matches++
		}
	}

	logger.Debug("resolution done", "pids", stats.Pids, "descriptors", stats.Descriptors,
		"matches", stats.Matches, "skipped", stats.Skipped)

	return stats, nil
}

// sample reads procfs without holding the map's lock and only stores the
// result once it's complete. A failed refresh leaves the process unstamped.
func sample(processes *types.ProcessMap, s *sampler.Sampler, pid int) error {
	p, known := processes.Get(pid)
	if !known {
		fresh, err := s.Sample(pid)
		if err != nil {
			return err
		}
		processes.Store(fresh)
		return nil
	}

	if err := s.Refresh(&p); err != nil {
		return err
	}
	processes.Store(p)
	return nil
}

// parseSocketInode extracts the inode out of a socket:[<inode>] link target.
func parseSocketInode(target string) (uint32, bool) {
	if !strings.HasPrefix(target, socketPrefix) || !strings.HasSuffix(target, "]") {
		return 0, false
	}

	inode, err := strconv.ParseUint(target[len(socketPrefix):len(target)-1], 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(inode), true
}
