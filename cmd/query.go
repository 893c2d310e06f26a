package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/fatih/structs"
	"github.com/spf13/cobra"

	"github.com/scitags/hostwatch/inventory"
	"github.com/scitags/hostwatch/resolver"
	"github.com/scitags/hostwatch/sampler"
	"github.com/scitags/hostwatch/settings"
	"github.com/scitags/hostwatch/sockdiag"
	"github.com/scitags/hostwatch/types"
)

func init() {
	for _, c := range []*cobra.Command{interfacesCmd, socketsCmd, processesCmd, inspectCmd} {
		c.Flags().BoolVar(&jsonFlag, "json", false, "print JSON instead of a table")
		c.Flags().StringVar(&verbosityFlag, "verbosity", "", "JSON field selection: empty for everything or lean")
	}
	socketsCmd.Flags().StringVar(&stateFlag, "state", "", "only show sockets in this state (e.g. ESTABLISHED)")
	inspectCmd.Flags().Uint16Var(&sportFlag, "sport", 0, "source port")
	inspectCmd.Flags().Uint16Var(&dportFlag, "dport", 0, "destination port")
}

var (
	jsonFlag      bool
	verbosityFlag string
	stateFlag     string
	sportFlag     uint16
	dportFlag     uint16

	interfacesCmd = &cobra.Command{
		Use:   "interfaces",
		Short: "Discover the routable interfaces once.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			c, err := inventory.Dial()
			if err != nil {
				return err
			}
			defer c.Close()

			ifaces := types.NewInterfaceMap()
			if err := inventory.Discover(ctx, c, ifaces); err != nil {
				return err
			}

			views := []interface{}{}
			for _, i := range ifaces.Snapshot() {
				v := types.NewInterfaceView(i)
				views = append(views, &v)
			}

			if jsonFlag {
				return renderJSON(os.Stdout, views)
			}
			renderTable(os.Stdout, views)
			return nil
		},
	}

	socketsCmd = &cobra.Command{
		Use:   "sockets",
		Short: "Enumerate the IPv4 TCP sockets and their owners once.",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := resolveOnce()
			if err != nil {
				return err
			}

			var want types.State
			if stateFlag != "" {
				st, ok := types.ParseState(stateFlag)
				if !ok {
					return fmt.Errorf("unknown state %q", stateFlag)
				}
				want = st
			}

			rows := []interface{}{}
			for _, s := range snap.sockets {
				if stateFlag != "" && s.State != want {
					continue
				}
				if jsonFlag {
					v := types.NewSocketView(s)
					v.Verbosity = verbosityFlag
					rows = append(rows, &v)
					continue
				}
				rows = append(rows, snap.socketRow(s))
			}

			if jsonFlag {
				return renderJSON(os.Stdout, rows)
			}
			renderTable(os.Stdout, rows)
			return nil
		},
	}

	processesCmd = &cobra.Command{
		Use:   "processes",
		Short: "Sample the processes owning IPv4 TCP sockets once.",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := resolveOnce()
			if err != nil {
				return err
			}

			rows := []interface{}{}
			for _, p := range snap.processes {
				if jsonFlag {
					v := types.NewProcessView(p, snap.settings.ClockTicks, snap.settings.MemTotalKB)
					v.Verbosity = verbosityFlag
					rows = append(rows, &v)
					continue
				}
				rows = append(rows, snap.processRow(p))
			}

			if jsonFlag {
				return renderJSON(os.Stdout, rows)
			}
			renderTable(os.Stdout, rows)
			return nil
		},
	}

	inspectCmd = &cobra.Command{
		Use:   "inspect",
		Short: "Look TCP flows up by port through sock_diag.",
		RunE: func(cmd *cobra.Command, args []string) error {
			flows, err := sockdiag.Inspect(sportFlag, dportFlag)
			if err != nil {
				return err
			}

			if jsonFlag {
				out := make([]map[string]interface{}, 0, len(flows))
				for _, f := range flows {
					out = append(out, structs.Map(f))
				}
				return renderJSON(os.Stdout, out)
			}

			rows := []interface{}{}
			for _, f := range flows {
				rows = append(rows, newFlowRow(f))
			}
			renderTable(os.Stdout, rows)
			return nil
		},
	}
)

type oneShot struct {
	settings  *settings.Settings
	sockets   []types.TCPSocket
	processes []types.Process
	byPID     map[int]types.Process
}

// resolveOnce queries the sockets and resolves their owners a single time.
func resolveOnce() (*oneShot, error) {
	if !types.ValidVerbosity(verbosityFlag) {
		return nil, fmt.Errorf("unknown verbosity %q", verbosityFlag)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s, err := loadSettings()
	if err != nil {
		return nil, err
	}

	smp, err := sampler.New(s)
	if err != nil {
		return nil, err
	}

	c, err := sockdiag.Dial()
	if err != nil {
		return nil, err
	}
	defer c.Close()

	sockets := types.NewSocketMap()
	n, err := sockdiag.QueryWithConfig(ctx, c, sockets, conf.MonitorConfig().SockDiag)
	if err != nil {
		return nil, err
	}

	processes := types.NewProcessMap()
	stats, err := resolver.Resolve(ctx, sockets, processes, smp)
	if err != nil {
		return nil, err
	}
	slog.Debug("resolved sockets", "admitted", n, "stats", stats)

	snap := &oneShot{
		settings:  s,
		sockets:   sockets.Snapshot(),
		processes: processes.Snapshot(),
		byPID:     map[int]types.Process{},
	}
	for _, p := range snap.processes {
		snap.byPID[p.PID] = p
	}

	sort.Slice(snap.sockets, func(i, j int) bool { return snap.sockets[i].Inode < snap.sockets[j].Inode })
	sort.Slice(snap.processes, func(i, j int) bool { return snap.processes[i].PID < snap.processes[j].PID })

	return snap, nil
}

type socketRow struct {
	Inode  uint32  `structs:"inode"`
	Local  string  `structs:"local"`
	Remote string  `structs:"remote"`
	PID    int     `structs:"pid"`
	Name   string  `structs:"name"`
	CPU    float64 `structs:"cpu"`
	Memory float64 `structs:"mem"`
	State  string  `structs:"state"`
}

func (o *oneShot) socketRow(s types.TCPSocket) *socketRow {
	r := &socketRow{
		Inode:  s.Inode,
		Local:  s.Local(),
		Remote: s.Remote(),
		PID:    s.PID,
		State:  s.State.String(),
	}
	if p, ok := o.byPID[s.PID]; ok && s.PID != 0 {
		r.Name = p.Name
		r.CPU = p.CPUUtilization(o.settings.ClockTicks)
		r.Memory = p.MemoryFraction(o.settings.MemTotalKB)
	}
	return r
}

type processRow struct {
	PID    int     `structs:"pid"`
	Name   string  `structs:"name"`
	CPU    float64 `structs:"cpu"`
	Memory float64 `structs:"mem"`
	RSS    string  `structs:"rss"`
	Cgroup string  `structs:"cgroup"`
	Exe    string  `structs:"exe"`
}

func (o *oneShot) processRow(p types.Process) *processRow {
	return &processRow{
		PID:    p.PID,
		Name:   p.Name,
		CPU:    p.CPUUtilization(o.settings.ClockTicks),
		Memory: p.MemoryFraction(o.settings.MemTotalKB),
		RSS:    humanize.IBytes(p.RSSKB * 1024),
		Cgroup: p.Cgroup,
		Exe:    p.Exe,
	}
}

type flowRow struct {
	Inode  uint32 `structs:"inode"`
	Local  string `structs:"local"`
	Remote string `structs:"remote"`
	State  string `structs:"state"`
	UID    uint32 `structs:"uid"`
	Cong   string `structs:"cong"`
	RTT    string `structs:"rtt"`
	Cwnd   string `structs:"cwnd"`
}

func newFlowRow(f sockdiag.Flow) *flowRow {
	r := &flowRow{
		Inode:  f.Inode,
		Local:  f.Local,
		Remote: f.Remote,
		State:  f.State.String(),
		UID:    f.UID,
		Cong:   f.Cong,
		RTT:    "-",
		Cwnd:   "-",
	}
	if f.TCPInfo != nil {
		r.RTT = fmt.Sprintf("%dus", f.TCPInfo.Rtt)
		r.Cwnd = fmt.Sprint(f.TCPInfo.SndCwnd)
	}
	return r
}
