//go:build linux && !cgo

package capture

import (
	"fmt"

	"github.com/google/gopacket/pcapgo"
)

type ethernetSource struct {
	*pcapgo.EthernetHandle
}

func (s ethernetSource) Close() error {
	s.EthernetHandle.Close()
	return nil
}

// OpenLive captures on iface through an AF_PACKET socket. Without libpcap
// there's no filter compiler, so filters are rejected.
func OpenLive(iface, filter string, snaplen int) (Source, error) {
	if filter != "" {
		return nil, fmt.Errorf("%w: filters need libpcap", ErrUnsupported)
	}

	h, err := pcapgo.NewEthernetHandle(iface)
	if err != nil {
		return nil, fmt.Errorf("error opening %q: %w", iface, err)
	}

	if err := h.SetCaptureLength(snaplen); err != nil {
		h.Close()
		return nil, fmt.Errorf("error setting the capture length: %w", err)
	}

	if err := h.SetPromiscuous(true); err != nil {
		h.Close()
		return nil, fmt.Errorf("error enabling promiscuous mode: %w", err)
	}

	logger.Debug("capturing", "iface", iface, "snaplen", snaplen)

	return ethernetSource{h}, nil
}
