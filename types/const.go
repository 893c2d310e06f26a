package types

// All of these constants' names make the linter complain, but we inherited
// them from external C code, so we will keep them as they are...
const (
	TCP_INVALID     State = 0
	TCP_ESTABLISHED State = 1 // or unix.BPF_TCP_ESTABLISHED
	TCP_SYN_SENT    State = 2
	TCP_SYN_RECV    State = 3
	TCP_FIN_WAIT1   State = 4
	TCP_FIN_WAIT2   State = 5
	TCP_TIME_WAIT   State = 6
	TCP_CLOSE       State = 7
	TCP_CLOSE_WAIT  State = 8
	TCP_LAST_ACK    State = 9
	TCP_LISTEN      State = 10 // or unix.BPF_TCP_LISTEN
	TCP_CLOSING     State = 11

	// TCP_ALL_FLAGS includes flag bits for all TCP connection states. It corresponds to TCPF_ALL in some linux code.
	TCP_ALL_FLAGS = 0xFFF
)

// Names as printed by ss(8).
var stateName = map[State]string{
	0:  "INVALID",
	1:  "ESTABLISHED",
	2:  "SYN-SENT",
	3:  "SYN-RECV",
	4:  "FIN-WAIT-1",
	5:  "FIN-WAIT-2",
	6:  "TIME-WAIT",
	7:  "CLOSE",
	8:  "CLOSE-WAIT",
	9:  "LAST-ACK",
	10: "LISTEN",
	11: "CLOSING",
}

// ParseState maps an ss(8) state name back onto its State.
func ParseState(name string) (State, bool) {
	for s, n := range stateName {
		if n == name {
			return s, true
		}
	}
	return TCP_INVALID, false
}

// Timer is the idiag_timer field of an inet_diag_msg. See sock_diag(7).
type Timer uint8

const (
	TIMER_OFF       Timer = 0
	TIMER_ON        Timer = 1
	TIMER_KEEPALIVE Timer = 2
	TIMER_TIMEWAIT  Timer = 3
	TIMER_PERSIST   Timer = 4
)

var timerName = map[Timer]string{
	TIMER_OFF:       "off",
	TIMER_ON:        "on",
	TIMER_KEEPALIVE: "keepalive",
	TIMER_TIMEWAIT:  "timewait",
	TIMER_PERSIST:   "persist",
}

func (t Timer) String() string {
	s, ok := timerName[t]
	if !ok {
		return "unknown"
	}
	return s
}
