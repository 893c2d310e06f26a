// Package inventory discovers the routable network interfaces of the host:
// those named by a unicast route with a gateway, together with their IPv4
// address, netmask and hardware address.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/jsimonetti/rtnetlink"
	"github.com/mdlayher/netlink"

	hnl "github.com/scitags/hostwatch/netlink"
	"github.com/scitags/hostwatch/types"
)

// ErrAddresses signals a failure during the address enumeration phase. It
// wraps either netlink.ErrTransport or netlink.ErrProtocol.
var ErrAddresses = errors.New("error enumerating local addresses")

var logger = types.ComponentLogger("inventory", false)

// SetLogger replaces the discarding default logger.
func SetLogger(l *slog.Logger) {
	logger = l
}

// Dial opens a NETLINK_ROUTE socket suitable for Discover.
func Dial() (*netlink.Conn, error) {
	return hnl.Dial(hnl.NETLINK_ROUTE)
}

type link struct {
	name string
	up   bool
	mac  [6]byte
}

// Discover populates ifaces with every interface a unicast route with a
// gateway goes through and then fills in their local addressing. Interfaces
// are never removed from ifaces.
func Discover(ctx context.Context, c *netlink.Conn, ifaces *types.InterfaceMap) error {
	links, err := dumpLinks(ctx, c)
	if err != nil {
		return err
	}

	if err := discoverGateways(ctx, c, links, ifaces); err != nil {
		return err
	}

	if err := discoverAddresses(ctx, c, links, ifaces); err != nil {
		return fmt.Errorf("%w: %w", ErrAddresses, err)
	}

	return nil
}

func dump(ctx context.Context, c *netlink.Conn, t netlink.HeaderType, m encoding) ([]netlink.Message, error) {
	b, err := m.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("error marshalling request: %w", err)
	}
	return hnl.Dump(ctx, c, netlink.Message{Header: netlink.Header{Type: t}, Data: b})
}

type encoding interface {
	MarshalBinary() ([]byte, error)
}

func dumpLinks(ctx context.Context, c *netlink.Conn) (map[uint32]link, error) {
	msgs, err := dump(ctx, c, hnl.RTM_GETLINK, &rtnetlink.LinkMessage{Family: hnl.AF_UNSPEC})
	if err != nil {
		return nil, fmt.Errorf("error dumping links: %w", err)
	}

	links := make(map[uint32]link, len(msgs))
	for _, msg := range msgs {
		if msg.Header.Type != hnl.RTM_NEWLINK {
			continue
		}

		var lm rtnetlink.LinkMessage
		if err := lm.UnmarshalBinary(msg.Data); err != nil {
			return nil, fmt.Errorf("%w: error parsing link message: %w", hnl.ErrProtocol, err)
		}
		if lm.Attributes == nil || lm.Attributes.Name == "" {
			continue
		}

		l := link{name: lm.Attributes.Name, up: lm.Flags&hnl.IFF_UP != 0}
		if len(lm.Attributes.Address) == len(l.mac) {
			copy(l.mac[:], lm.Attributes.Address)
		}
		links[lm.Index] = l

		logger.Log(ctx, types.LevelTrace, "found link", "index", lm.Index, "name", l.name, "up", l.up)
	}

	return links, nil
}

func discoverGateways(ctx context.Context, c *netlink.Conn, links map[uint32]link, ifaces *types.InterfaceMap) error {
	msgs, err := dump(ctx, c, hnl.RTM_GETROUTE, &rtnetlink.RouteMessage{Family: hnl.AF_UNSPEC})
	if err != nil {
		return fmt.Errorf("error dumping routes: %w", err)
	}

	for _, msg := range msgs {
		if msg.Header.Type != hnl.RTM_NEWROUTE {
			continue
		}

		var rm rtnetlink.RouteMessage
		if err := rm.UnmarshalBinary(msg.Data); err != nil {
			return fmt.Errorf("%w: error parsing route message: %w", hnl.ErrProtocol, err)
		}

		if rm.Type != hnl.RTN_UNICAST {
			continue
		}

		var gw uint32
		if rm.Family == hnl.AF_INET {
			gw = types.AddrFromIP(rm.Attributes.Gateway)
		}

		l, ok := links[rm.Attributes.OutIface]
		if !ok || gw == 0 {
			continue
		}

		ifaces.Update(l.name, func(i *types.NetworkInterface) {
			i.Gateway = gw
		})

		logger.Debug("found gateway", "iface", l.name, "gateway", types.FormatIPv4(gw))
	}

	return nil
}

func discoverAddresses(ctx context.Context, c *netlink.Conn, links map[uint32]link, ifaces *types.InterfaceMap) error {
	msgs, err := dump(ctx, c, hnl.RTM_GETADDR, &rtnetlink.AddressMessage{Family: hnl.AF_INET})
	if err != nil {
		return err
	}

	for _, msg := range msgs {
		if msg.Header.Type != hnl.RTM_NEWADDR {
			continue
		}

		var am rtnetlink.AddressMessage
		if err := am.UnmarshalBinary(msg.Data); err != nil {
			return fmt.Errorf("%w: error parsing address message: %w", hnl.ErrProtocol, err)
		}
		if am.Family != hnl.AF_INET || am.Attributes == nil {
			continue
		}

		l, ok := links[am.Index]
		if !ok || !l.up {
			continue
		}

		addr := localAddress(am.Attributes)
		ifaces.UpdateExisting(l.name, func(i *types.NetworkInterface) {
			i.Address = addr
			i.Netmask = types.PrefixMask(am.PrefixLength)
		})
	}

	// Link-layer addresses.
	for _, l := range links {
		if !l.up {
			continue
		}
		ifaces.UpdateExisting(l.name, func(i *types.NetworkInterface) {
			i.HardwareAddr = l.mac
		})
	}

	return nil
}

// localAddress prefers IFA_LOCAL: on point-to-point links IFA_ADDRESS holds
// the peer.
func localAddress(a *rtnetlink.AddressAttributes) uint32 {
	var ip net.IP = a.Local
	if ip == nil {
		ip = a.Address
	}
	return types.AddrFromIP(ip)
}
