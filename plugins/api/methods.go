package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/scitags/hostwatch/monitor"
	"github.com/scitags/hostwatch/types"
)

func handleRoot(c echo.Context) error {
	cc := c.(*extendedContext)
	return c.JSONPretty(http.StatusOK, &rootResponse{
		ApiRoutes: cc.apiRoutes,
	}, JSON_PRETTY_INDENT)
}

func fail(c echo.Context, code int, msg string) error {
	return c.JSONPretty(code, &errorResponse{Error: msg}, JSON_PRETTY_INDENT)
}

// snapshot pulls the snapshot out of the context, failing the request when
// there's none yet.
func snapshot(c echo.Context) (*monitor.Snapshot, string, error) {
	cc := c.(*extendedContext)

	verbosity := c.QueryParam("verbosity")
	if !types.ValidVerbosity(verbosity) {
		return nil, "", fail(c, http.StatusBadRequest, "unknown verbosity "+strconv.Quote(verbosity))
	}

	if cc.snapshot == nil {
		return nil, "", fail(c, http.StatusServiceUnavailable, "no snapshot taken yet")
	}

	return cc.snapshot, verbosity, nil
}

func socketView(s types.TCPSocket, verbosity string) *types.SocketView {
	v := types.NewSocketView(s)
	v.Verbosity = verbosity
	return &v
}

func processView(snap *monitor.Snapshot, p types.Process, verbosity string) *types.ProcessView {
	v := types.NewProcessView(p, snap.ClockTicks, snap.MemTotalKB)
	v.Verbosity = verbosity
	return &v
}

func handleInterfaces(c echo.Context) error {
	snap, _, err := snapshot(c)
	if snap == nil {
		return err
	}

	ifaces := make([]types.InterfaceView, 0, len(snap.Interfaces))
	for _, i := range snap.Interfaces {
		ifaces = append(ifaces, types.NewInterfaceView(i))
	}

	return c.JSONPretty(http.StatusOK, ifaces, JSON_PRETTY_INDENT)
}

func handleSockets(c echo.Context) error {
	snap, verbosity, err := snapshot(c)
	if snap == nil {
		return err
	}

	var (
		filter    bool
		wantState types.State
	)
	if name := c.QueryParam("state"); name != "" {
		st, ok := types.ParseState(name)
		if !ok {
			return fail(c, http.StatusBadRequest, "unknown state "+strconv.Quote(name))
		}
		filter, wantState = true, st
	}

	socks := []*types.SocketView{}
	for _, s := range snap.Sockets {
		if filter && s.State != wantState {
			continue
		}
		socks = append(socks, socketView(s, verbosity))
	}

	return c.JSONPretty(http.StatusOK, socks, JSON_PRETTY_INDENT)
}

func handleSocket(c echo.Context) error {
	snap, verbosity, err := snapshot(c)
	if snap == nil {
		return err
	}

	inode, err := strconv.ParseUint(c.Param("inode"), 10, 32)
	if err != nil {
		return fail(c, http.StatusBadRequest, "bad inode "+strconv.Quote(c.Param("inode")))
	}

	for _, s := range snap.Sockets {
		if s.Inode != uint32(inode) {
			continue
		}
		v := socketView(s, verbosity)
		if p, ok := snap.Process(s.PID); ok && s.PID != 0 {
			v.Process = processView(snap, p, verbosity)
		}
		return c.JSONPretty(http.StatusOK, v, JSON_PRETTY_INDENT)
	}

	return fail(c, http.StatusNotFound, "no socket with inode "+c.Param("inode"))
}

func handleProcesses(c echo.Context) error {
	snap, verbosity, err := snapshot(c)
	if snap == nil {
		return err
	}

	procs := make([]*types.ProcessView, 0, len(snap.Processes))
	for _, p := range snap.Processes {
		procs = append(procs, processView(snap, p, verbosity))
	}

	return c.JSONPretty(http.StatusOK, procs, JSON_PRETTY_INDENT)
}

func handleProcess(c echo.Context) error {
	snap, verbosity, err := snapshot(c)
	if snap == nil {
		return err
	}

	pid, err := strconv.Atoi(c.Param("pid"))
	if err != nil || pid <= 0 {
		return fail(c, http.StatusBadRequest, "bad pid "+strconv.Quote(c.Param("pid")))
	}

	p, ok := snap.Process(pid)
	if !ok {
		return fail(c, http.StatusNotFound, "no process with pid "+c.Param("pid"))
	}

	resp := processResponse{Process: processView(snap, p, verbosity), Sockets: []*types.SocketView{}}
	for _, s := range snap.Sockets {
		if s.PID == pid {
			resp.Sockets = append(resp.Sockets, socketView(s, verbosity))
		}
	}

	return c.JSONPretty(http.StatusOK, &resp, JSON_PRETTY_INDENT)
}
