package netlink

import "golang.org/x/sys/unix"

// All of these constants' names make the linter complain, but we inherited
// these names from external C code, so we will keep them.
const (
	// Protocol families. See netlink(7).
	NETLINK_ROUTE     = 0
	NETLINK_INET_DIAG = 4

	// Address families.
	AF_UNSPEC = unix.AF_UNSPEC
	AF_INET   = unix.AF_INET
	AF_PACKET = 17

	IPPROTO_TCP = unix.IPPROTO_TCP

	// Message types. See rtnetlink(7) and sock_diag(7).
	RTM_GETLINK         = 18
	RTM_GETADDR         = 22
	RTM_GETROUTE        = 26
	SOCK_DIAG_BY_FAMILY = 20

	// Route types.
	RTN_UNICAST = 1

	// Link flags.
	IFF_UP = unix.IFF_UP

	// Route tables.
	RT_TABLE_MAIN = 254
)

// Attributes attached to inet_diag_msg replies. See uapi/linux/inet_diag.h.
const (
	INET_DIAG_NONE = iota
	INET_DIAG_MEMINFO
	INET_DIAG_INFO
	INET_DIAG_VEGASINFO
	INET_DIAG_CONG
	INET_DIAG_TOS
	INET_DIAG_TCLASS
	INET_DIAG_SKMEMINFO
	INET_DIAG_SHUTDOWN
	INET_DIAG_DCTCPINFO
	INET_DIAG_PROTOCOL
	INET_DIAG_SKV6ONLY
	INET_DIAG_LOCALS
	INET_DIAG_PEERS
	INET_DIAG_PAD
	INET_DIAG_MARK
	INET_DIAG_BBRINFO
	INET_DIAG_CLASS_ID
	INET_DIAG_MD5SIG
	INET_DIAG_ULP_INFO
	INET_DIAG_SK_BPF_STORAGES
	INET_DIAG_CGROUP_ID
	INET_DIAG_SOCKOPT
	INET_DIAG_MAX
)

var inetDiagMap = map[uint16]string{
	INET_DIAG_NONE:            "INET_DIAG_NONE",
	INET_DIAG_MEMINFO:         "INET_DIAG_MEMINFO",
	INET_DIAG_INFO:            "INET_DIAG_INFO",
	INET_DIAG_VEGASINFO:       "INET_DIAG_VEGASINFO",
	INET_DIAG_CONG:            "INET_DIAG_CONG",
	INET_DIAG_TOS:             "INET_DIAG_TOS",
	INET_DIAG_TCLASS:          "INET_DIAG_TCLASS",
	INET_DIAG_SKMEMINFO:       "INET_DIAG_SKMEMINFO",
	INET_DIAG_SHUTDOWN:        "INET_DIAG_SHUTDOWN",
	INET_DIAG_DCTCPINFO:       "INET_DIAG_DCTCPINFO",
	INET_DIAG_PROTOCOL:        "INET_DIAG_PROTOCOL",
	INET_DIAG_SKV6ONLY:        "INET_DIAG_SKV6ONLY",
	INET_DIAG_LOCALS:          "INET_DIAG_LOCALS",
	INET_DIAG_PEERS:           "INET_DIAG_PEERS",
	INET_DIAG_PAD:             "INET_DIAG_PAD",
	INET_DIAG_MARK:            "INET_DIAG_MARK",
	INET_DIAG_BBRINFO:         "INET_DIAG_BBRINFO",
	INET_DIAG_CLASS_ID:        "INET_DIAG_CLASS_ID",
	INET_DIAG_MD5SIG:          "INET_DIAG_MD5SIG",
	INET_DIAG_ULP_INFO:        "INET_DIAG_ULP_INFO",
	INET_DIAG_SK_BPF_STORAGES: "INET_DIAG_SK_BPF_STORAGES",
	INET_DIAG_CGROUP_ID:       "INET_DIAG_CGROUP_ID",
	INET_DIAG_SOCKOPT:         "INET_DIAG_SOCKOPT",
	INET_DIAG_MAX:             "INET_DIAG_MAX",
}

// InetDiagName returns the name of an inet_diag attribute type.
func InetDiagName(t uint16) string {
	n, ok := inetDiagMap[t]
	if !ok {
		return "INET_DIAG_UNKNOWN"
	}
	return n
}

// Reply types for the route protocol dumps.
const (
	RTM_NEWLINK  = 16
	RTM_NEWADDR  = 20
	RTM_NEWROUTE = 24
)
