package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/scitags/hostwatch/monitor"
	"github.com/scitags/hostwatch/types"
)

func snapshot0() monitor.Snapshot {
	return monitor.Snapshot{
		Taken: time.Unix(1700000000, 0),
		Interfaces: []types.NetworkInterface{{
			Name:    "eth0",
			Address: types.IPv4(10, 0, 0, 5),
			Netmask: types.PrefixMask(24),
			Gateway: types.IPv4(10, 0, 0, 1),
		}},
		Sockets: []types.TCPSocket{
			{
				Inode: 1001, LocalAddr: types.IPv4(10, 0, 0, 5), LocalPort: 40000,
				RemoteAddr: types.IPv4(192, 168, 1, 20), RemotePort: 443,
				State: types.TCP_ESTABLISHED, PID: 100, FD: 5,
			},
			{
				Inode: 1002, LocalAddr: types.IPv4(10, 0, 0, 5), LocalPort: 40001,
				RemoteAddr: types.IPv4(192, 168, 1, 21), RemotePort: 80,
				State: types.TCP_CLOSE_WAIT, PID: 100, FD: 6,
			},
			{
				Inode: 1003, LocalAddr: types.IPv4(10, 0, 0, 5), LocalPort: 40002,
				RemoteAddr: types.IPv4(192, 168, 1, 22), RemotePort: 22,
				State: types.TCP_ESTABLISHED,
			},
		},
		Processes: []types.Process{{
			PID: 100, Name: "curl", Ticks: 250, PrevTicks: 200, Uptime: 101, PrevUptime: 100, RSSKB: 20000,
		}},
		ClockTicks: 100,
		MemTotalKB: 2000000,
	}
}

func get(t *testing.T, p *ApiPlugin, target string, out interface{}) int {
	t.Helper()

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("error decoding %s: %v\n%s", target, err, rec.Body.String())
		}
	}

	return rec.Code
}

func TestNoSnapshot(t *testing.T) {
	p := New(nil)

	var e errorResponse
	if code := get(t, p, "/sockets", &e); code != http.StatusServiceUnavailable {
		t.Errorf("got status %d, want %d", code, http.StatusServiceUnavailable)
	}
	if e.Error == "" {
		t.Errorf("missing error message")
	}
}

func TestRoot(t *testing.T) {
	p := New(nil)

	var resp struct{ ApiRoutes []map[string]interface{} }
	if code := get(t, p, "/", &resp); code != http.StatusOK {
		t.Fatalf("got status %d", code)
	}
	if len(resp.ApiRoutes) != 6 {
		t.Errorf("got %d routes, want 6", len(resp.ApiRoutes))
	}
}

func TestInterfaces(t *testing.T) {
	p := New(nil)
	p.Publish(snapshot0())

	var got []types.InterfaceView
	if code := get(t, p, "/interfaces", &got); code != http.StatusOK {
		t.Fatalf("got status %d", code)
	}

	want := []types.InterfaceView{{
		Name: "eth0", MAC: "00:00:00:00:00:00", Address: "10.0.0.5",
		Netmask: "255.255.255.0", Network: "10.0.0.0", Gateway: "10.0.0.1",
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("interfaces mismatch (-want +got):\n%s", diff)
	}
}

func inodes(socks []map[string]interface{}) []float64 {
	out := []float64{}
	for _, s := range socks {
		out = append(out, s["inode"].(float64))
	}
	return out
}

func TestSockets(t *testing.T) {
	p := New(nil)
	p.Publish(snapshot0())

	tests := []struct {
		target string
		code   int
		want   []float64
	}{
		{"/sockets", http.StatusOK, []float64{1001, 1002, 1003}},
		{"/sockets?state=ESTABLISHED", http.StatusOK, []float64{1001, 1003}},
		{"/sockets?state=LISTEN", http.StatusOK, []float64{}},
	}

	for _, tc := range tests {
		var got []map[string]interface{}
		if code := get(t, p, tc.target, &got); code != tc.code {
			t.Errorf("%s: got status %d, want %d", tc.target, code, tc.code)
			continue
		}
		if diff := cmp.Diff(tc.want, inodes(got)); diff != "" {
			t.Errorf("%s: inodes mismatch (-want +got):\n%s", tc.target, diff)
		}
	}

	for _, target := range []string{"/sockets?state=BOGUS", "/sockets?verbosity=loud"} {
		if code := get(t, p, target, nil); code != http.StatusBadRequest {
			t.Errorf("%s: got status %d, want %d", target, code, http.StatusBadRequest)
		}
	}
}

func TestSocket(t *testing.T) {
	p := New(nil)
	p.Publish(snapshot0())

	var got map[string]interface{}
	if code := get(t, p, "/sockets/1001", &got); code != http.StatusOK {
		t.Fatalf("got status %d", code)
	}
	if got["remote"] != "192.168.1.20:443" {
		t.Errorf("got remote %v", got["remote"])
	}
	proc, ok := got["process"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing owning process in %v", got)
	}
	if proc["name"] != "curl" || proc["cpu"] != 0.5 {
		t.Errorf("unexpected process %v", proc)
	}

	got = nil
	if code := get(t, p, "/sockets/1003", &got); code != http.StatusOK {
		t.Fatalf("got status %d", code)
	}
	if _, ok := got["process"]; ok {
		t.Errorf("unresolved socket got a process: %v", got)
	}

	if code := get(t, p, "/sockets/4242", nil); code != http.StatusNotFound {
		t.Errorf("got status %d, want %d", code, http.StatusNotFound)
	}
	if code := get(t, p, "/sockets/nope", nil); code != http.StatusBadRequest {
		t.Errorf("got status %d, want %d", code, http.StatusBadRequest)
	}
}

func TestProcesses(t *testing.T) {
	p := New(nil)
	p.Publish(snapshot0())

	var all []map[string]interface{}
	if code := get(t, p, "/processes?verbosity=lean", &all); code != http.StatusOK {
		t.Fatalf("got status %d", code)
	}
	want := []map[string]interface{}{{"pid": 100.0, "name": "curl", "cpu": 0.5, "memory": 0.01}}
	if diff := cmp.Diff(want, all); diff != "" {
		t.Errorf("processes mismatch (-want +got):\n%s", diff)
	}

	var one struct {
		Process map[string]interface{}   `json:"process"`
		Sockets []map[string]interface{} `json:"sockets"`
	}
	if code := get(t, p, "/processes/100", &one); code != http.StatusOK {
		t.Fatalf("got status %d", code)
	}
	if one.Process["exe"] != "" {
		t.Errorf("got exe %v", one.Process["exe"])
	}
	if diff := cmp.Diff([]float64{1001, 1002}, inodes(one.Sockets)); diff != "" {
		t.Errorf("sockets mismatch (-want +got):\n%s", diff)
	}

	if code := get(t, p, "/processes/200", nil); code != http.StatusNotFound {
		t.Errorf("got status %d, want %d", code, http.StatusNotFound)
	}
	if code := get(t, p, "/processes/-1", nil); code != http.StatusBadRequest {
		t.Errorf("got status %d, want %d", code, http.StatusBadRequest)
	}
}

func TestCleanup(t *testing.T) {
	if err := New(nil).Cleanup(); err != nil {
		t.Errorf("error cleaning up: %v", err)
	}
}

func TestConfig(t *testing.T) {
	var c Config
	if err := c.UnmarshalYAML([]byte("bindPort: 8000\n")); err != nil {
		t.Fatalf("error unmarshalling: %v", err)
	}
	if c.BindAddress != DefaultConfig.BindAddress || c.BindPort != 8000 {
		t.Errorf("got %+v", c)
	}
}
