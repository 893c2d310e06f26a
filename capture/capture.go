// Package capture feeds frames to the decoder, be it from a live interface
// or a pcap file, and optionally persists them.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/scitags/hostwatch/decoder"
	"github.com/scitags/hostwatch/types"
)

// DefaultSnaplen is large enough for any Ethernet frame.
const DefaultSnaplen = 65536

var (
	ErrUnsupported = errors.New("capture not supported")

	// ErrTimeout is returned by live sources when no packet arrived in time.
	// Loop just tries again.
	ErrTimeout = errors.New("capture read timed out")
)

var logger = types.ComponentLogger("capture", false)

// SetLogger replaces the discarding default logger.
func SetLogger(l *slog.Logger) {
	logger = l
}

// Source hands out Ethernet frames one at a time.
type Source interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	Close() error
}

type fileSource struct {
	*pcapgo.Reader
	f *os.File
}

func (s *fileSource) Close() error {
	return s.f.Close()
}

// OpenFile reads frames out of a pcap file with an Ethernet link type.
func OpenFile(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening %q: %w", path, err)
	}

	r, err := pcapgo.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error reading the pcap header of %q: %w", path, err)
	}

	if lt := r.LinkType(); lt != layers.LinkTypeEthernet {
		f.Close()
		return nil, fmt.Errorf("%w: link type %s", ErrUnsupported, lt)
	}

	return &fileSource{Reader: r, f: f}, nil
}

// Handler gets every frame read along with its capture metadata. err is the
// decoding error, if any, in which case frame is nil.
type Handler func(frame decoder.Frame, ci gopacket.CaptureInfo, err error)

// Loop reads and decodes frames until max of them have been handled (0 means
// no limit), the source runs dry or ctx is done. It returns the number of
// frames handled.
func Loop(ctx context.Context, src Source, max int, fn Handler) (int, error) {
	n := 0
	for max == 0 || n < max {
		if err := ctx.Err(); err != nil {
			return n, err
		}

		data, ci, err := src.ReadPacketData()
		if errors.Is(err, ErrTimeout) {
			continue
		}
		if errors.Is(err, io.EOF) {
			logger.Debug("source exhausted", "frames", n)
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("error reading a frame: %w", err)
		}

		frame, err := decoder.Decode(data)
		fn(frame, ci, err)
		n++
	}

	return n, nil
}

// Writer persists frames in pcap format.
type Writer struct {
	w *pcapgo.Writer
}

// NewWriter writes a pcap file header for Ethernet frames to w.
func NewWriter(w io.Writer, snaplen uint32) (*Writer, error) {
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(snaplen, layers.LinkTypeEthernet); err != nil {
		return nil, fmt.Errorf("error writing the pcap header: %w", err)
	}
	return &Writer{w: pw}, nil
}

func (w *Writer) Write(ci gopacket.CaptureInfo, data []byte) error {
	return w.w.WritePacket(ci, data)
}

// Tee wraps src so that every frame read is also written to w.
func Tee(src Source, w *Writer) Source {
	return &teeSource{Source: src, w: w}
}

type teeSource struct {
	Source
	w *Writer
}

func (t *teeSource) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	data, ci, err := t.Source.ReadPacketData()
	if err != nil {
		return data, ci, err
	}
	if err := t.w.Write(ci, data); err != nil {
		return data, ci, fmt.Errorf("error persisting a frame: %w", err)
	}
	return data, ci, nil
}
