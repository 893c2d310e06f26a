package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/gopacket"
	"github.com/spf13/cobra"

	"github.com/scitags/hostwatch/capture"
	"github.com/scitags/hostwatch/decoder"
)

func init() {
	captureCmd.Flags().StringVar(&ifaceFlag, "iface", "", "interface to capture on")
	captureCmd.Flags().StringVar(&fileFlag, "file", "", "pcap file to read frames from")
	captureCmd.Flags().StringVar(&filterFlag, "filter", "", "capture filter, handed to libpcap as is")
	captureCmd.Flags().IntVar(&countFlag, "count", 0, "stop after this many frames, 0 meaning never")
	captureCmd.Flags().StringVar(&writeFlag, "write", "", "also write the frames to this pcap file")
	captureCmd.Flags().IntVar(&snaplenFlag, "snaplen", capture.DefaultSnaplen, "bytes to capture per frame")
	captureCmd.Flags().BoolVar(&summaryFlag, "summary", false, "render each frame on a single line")
	captureCmd.MarkFlagsMutuallyExclusive("iface", "file")
	captureCmd.MarkFlagsOneRequired("iface", "file")
	captureCmd.MarkFlagsMutuallyExclusive("file", "filter")

	decodeCmd.Flags().BoolVar(&summaryFlag, "summary", false, "render the frame on a single line")
}

var (
	ifaceFlag   string
	fileFlag    string
	filterFlag  string
	countFlag   int
	writeFlag   string
	snaplenFlag int
	summaryFlag bool

	captureCmd = &cobra.Command{
		Use:   "capture",
		Short: "Decode frames off an interface or a pcap file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				src capture.Source
				err error
			)
			if fileFlag != "" {
				src, err = capture.OpenFile(fileFlag)
			} else {
				src, err = capture.OpenLive(ifaceFlag, filterFlag, snaplenFlag)
			}
			if err != nil {
				return err
			}
			defer src.Close()

			if writeFlag != "" {
				f, err := os.Create(writeFlag)
				if err != nil {
					return fmt.Errorf("error creating %q: %w", writeFlag, err)
				}
				defer f.Close()

				w, err := capture.NewWriter(f, uint32(snaplenFlag))
				if err != nil {
					return err
				}
				src = capture.Tee(src, w)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			n, err := capture.Loop(ctx, src, countFlag, printFrame(os.Stdout))
			slog.Info("capture done", "frames", n)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	decodeCmd = &cobra.Command{
		Use:   "decode <hex>",
		Short: "Decode a single hex-encoded Ethernet frame.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			frame, err := parseHex(args[0])
			if err != nil {
				return err
			}

			f, err := decoder.Decode(frame)
			if err != nil {
				return err
			}

			fmt.Fprint(os.Stdout, render(f))
			return nil
		},
	}
)

func render(f decoder.Frame) string {
	if summaryFlag {
		return decoder.Summary(f) + "\n"
	}
	return decoder.Render(f)
}

func printFrame(w io.Writer) capture.Handler {
	return func(f decoder.Frame, ci gopacket.CaptureInfo, err error) {
		ts := ci.Timestamp.Format("15:04:05.000000")
		if err != nil {
			fmt.Fprintf(w, "%s undecodable frame of %d bytes: %v\n", ts, ci.CaptureLength, err)
			return
		}
		if summaryFlag {
			fmt.Fprintf(w, "%s %s", ts, render(f))
			return
		}
		fmt.Fprintf(w, "%s %d bytes\n%s", ts, ci.Length, render(f))
	}
}

// parseHex accepts the usual hex dump separators.
func parseHex(s string) ([]byte, error) {
	s = strings.NewReplacer(" ", "", ":", "", "\n", "", "\t", "").Replace(s)
	s = strings.TrimPrefix(strings.ToLower(s), "0x")

	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("error decoding the frame's hex: %w", err)
	}
	return b, nil
}
