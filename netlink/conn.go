// Package netlink holds the bits shared by every netlink exchange we carry
// out: dialing, dumping and classifying what went wrong.
package netlink

import (
	"context"
	"log/slog"

	"github.com/mdlayher/netlink"

	"github.com/scitags/hostwatch/types"
)

var logger = types.ComponentLogger("netlink", false)

// SetLogger replaces the discarding default logger.
func SetLogger(l *slog.Logger) {
	logger = l
}

// Dial opens a netlink socket speaking the given protocol family.
func Dial(family int) (*netlink.Conn, error) {
	c, err := netlink.Dial(family, nil)
	if err != nil {
		return nil, classify("dial", err)
	}
	return c, nil
}

// Dump sends msg as a dump request and gathers every reply until the kernel
// signals it's done. The sequence number is filled in by the connection and
// increases with every request. Nothing is retried.
func Dump(ctx context.Context, c *netlink.Conn, msg netlink.Message) ([]netlink.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	msg.Header.Flags = netlink.Request | netlink.Dump

	req, err := c.Send(msg)
	if err != nil {
		return nil, classify("send", err)
	}

	logger.Log(ctx, types.LevelTrace, "sent dump request", "type", req.Header.Type, "seq", req.Header.Sequence)

	replies, err := c.Receive()
	if err != nil {
		return nil, classify("receive", err)
	}

	if err := netlink.Validate(req, replies); err != nil {
		return nil, classify("validate", err)
	}

	logger.Debug("dump done", "type", req.Header.Type, "seq", req.Header.Sequence, "replies", len(replies))

	return replies, nil
}
