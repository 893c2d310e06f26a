//go:build linux && cgo

package capture

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
)

// readTimeout bounds how long a read blocks so that cancellation is noticed.
const readTimeout = 500 * time.Millisecond

type pcapSource struct {
	h *pcap.Handle
}

func (s *pcapSource) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	data, ci, err := s.h.ReadPacketData()
	if errors.Is(err, pcap.NextErrorTimeoutExpired) {
		return nil, ci, ErrTimeout
	}
	return data, ci, err
}

func (s *pcapSource) Close() error {
	s.h.Close()
	return nil
}

// OpenLive captures on iface through libpcap. The filter is handed over to
// libpcap as is.
func OpenLive(iface, filter string, snaplen int) (Source, error) {
	h, err := pcap.OpenLive(iface, int32(snaplen), true, readTimeout)
	if err != nil {
		return nil, fmt.Errorf("error opening %q: %w", iface, err)
	}

	if filter != "" {
		if err := h.SetBPFFilter(filter); err != nil {
			h.Close()
			return nil, fmt.Errorf("error setting filter %q: %w", filter, err)
		}
	}

	logger.Debug("capturing", "iface", iface, "filter", filter, "snaplen", snaplen, "linkType", h.LinkType())

	return &pcapSource{h: h}, nil
}
