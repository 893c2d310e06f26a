// Package sockdiag enumerates the host's IPv4 TCP sockets through
// sock_diag(7) and keeps a types.SocketMap up to date with them.
package sockdiag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mdlayher/netlink"

	hnl "github.com/scitags/hostwatch/netlink"
	"github.com/scitags/hostwatch/types"
)

var logger = types.ComponentLogger("sockdiag", false)

// SetLogger replaces the discarding default logger.
func SetLogger(l *slog.Logger) {
	logger = l
}

// Dial opens a NETLINK_INET_DIAG socket suitable for Query.
func Dial() (*netlink.Conn, error) {
	return hnl.Dial(hnl.NETLINK_INET_DIAG)
}

// Query dumps every IPv4 TCP socket and upserts the admitted ones into
// sockets, returning how many were admitted. Sockets without an inode and
// those with a loopback endpoint are discarded. Nothing is ever removed from
// sockets.
func Query(ctx context.Context, c *netlink.Conn, sockets *types.SocketMap) (int, error) {
	return QueryWithConfig(ctx, c, sockets, DefaultConfig)
}

// QueryWithConfig behaves like Query with the request tuned by conf.
func QueryWithConfig(ctx context.Context, c *netlink.Conn, sockets *types.SocketMap, conf Config) (int, error) {
	b, _ := request{
		Family:   hnl.AF_INET,
		Protocol: conf.Protocol,
		Ext:      conf.Ext,
		States:   conf.States,
	}.MarshalBinary()

	msgs, err := hnl.Dump(ctx, c, netlink.Message{
		Header: netlink.Header{Type: hnl.SOCK_DIAG_BY_FAMILY},
		Data:   b,
	})
	if err != nil {
		return 0, fmt.Errorf("error dumping sockets: %w", err)
	}

	admitted := 0
	for _, msg := range msgs {
		if msg.Header.Type != hnl.SOCK_DIAG_BY_FAMILY {
			continue
		}

		m, err := parseMessage(msg.Data)
		if err != nil {
			return admitted, err
		}

		if m.family != hnl.AF_INET || m.inode == 0 {
			continue
		}
		if types.IsLoopback(m.localAddr) || types.IsLoopback(m.remoteAddr) {
			continue
		}

		sockets.Update(m.inode, func(s *types.TCPSocket) {
			s.LocalAddr, s.LocalPort = m.localAddr, m.localPort
			s.RemoteAddr, s.RemotePort = m.remoteAddr, m.remotePort
			s.State = m.state
			s.Timer = m.timer
			s.UID = m.uid
			if m.info != nil {
				s.Info = m.info
			}
		})
		admitted++

		logger.Log(ctx, types.LevelTrace, "admitted socket", "inode", m.inode, "state", m.state)
	}

	logger.Debug("socket query done", "replies", len(msgs), "admitted", admitted)

	return admitted, nil
}
