package decoder

import (
	"fmt"
	"strings"

	"github.com/scitags/hostwatch/types"
)

// Render returns a human readable dump of f: the IP block followed by the
// transport block.
func Render(f Frame) string {
	var sb strings.Builder

	switch v := f.(type) {
	case Unsupported:
		renderUnsupported(&sb, v)
	case IPOnly:
		renderIP(&sb, v.IP)
	case ICMP:
		renderIP(&sb, v.IP)
		renderICMP(&sb, v)
	case TCP:
		renderIP(&sb, v.IP)
		renderTCP(&sb, v)
	case UDP:
		renderIP(&sb, v.IP)
		renderUDP(&sb, v)
	default:
		panic(fmt.Sprintf("unknown frame type %T", f))
	}

	return sb.String()
}

func renderUnsupported(sb *strings.Builder, u Unsupported) {
	fmt.Fprintf(sb, "unsupported ethertype 0x%04x (%s)\n", u.EtherType, u.Kind)
}

func renderIP(sb *strings.Builder, h IPv4Header) {
	sb.WriteString("===========IP Protocol=========\n")
	fmt.Fprintf(sb, "      Version: %d\n", h.Version)
	fmt.Fprintf(sb, "Header Length: %d\n", h.HeaderLength())
	fmt.Fprintf(sb, "          TOS: %d\n", h.TOS)
	fmt.Fprintf(sb, " Total Length: %d\n", h.TotalLength)
	fmt.Fprintf(sb, "           Id: %d\n", h.ID)
	fmt.Fprintf(sb, "       Offset: %d\n", h.FlagsFragment)
	fmt.Fprintf(sb, "          TTL: %d\n", h.TTL)
	fmt.Fprintf(sb, "     Checksum: %d\n", h.Checksum)
	fmt.Fprintf(sb, "     Protocol: %d\n", h.Protocol)
	fmt.Fprintf(sb, "     Src Addr: %s\n", types.FormatIPv4(h.Src))
	fmt.Fprintf(sb, "     Dst Addr: %s\n", types.FormatIPv4(h.Dst))
	sb.WriteString("===========IP Protocol=========\n")
}

func renderICMP(sb *strings.Builder, m ICMP) {
	sb.WriteString("===========ICMP Protocol=========\n")
	fmt.Fprintf(sb, "         Type: %d\n", m.Type)
	fmt.Fprintf(sb, "         Code: %d\n", m.Code)
	fmt.Fprintf(sb, "     Checksum: %d\n", m.Checksum)
	sb.WriteString("===========ICMP Protocol=========\n")
}

func renderTCP(sb *strings.Builder, t TCP) {
	sb.WriteString("===========TCP Protocol=========\n")
	fmt.Fprintf(sb, "  Source Port: %d\n", t.SrcPort)
	fmt.Fprintf(sb, "    Dest Port: %d\n", t.DstPort)
	fmt.Fprintf(sb, "   Seq Number: %d\n", t.Seq)
	fmt.Fprintf(sb, "   ACK Number: %d\n", t.Ack)
	fmt.Fprintf(sb, "Header Length: %d\n", t.HeaderLength())
	fmt.Fprintf(sb, "        Flags: %s\n", t.FlagString())
	fmt.Fprintf(sb, "     CheckSum: %d\n", t.Checksum)
	fmt.Fprintf(sb, "  Window Size: %d\n", t.Window)
	fmt.Fprintf(sb, "   Urgent Ptr: %d\n", t.Urgent)
	fmt.Fprintf(sb, "      Payload: %d\n", t.PayloadLength())
	sb.WriteString("===========TCP Protocol=========\n")
}

func renderUDP(sb *strings.Builder, u UDP) {
	sb.WriteString("===========UDP Protocol=========\n")
	fmt.Fprintf(sb, "  Source Port: %d\n", u.SrcPort)
	fmt.Fprintf(sb, "    Dest Port: %d\n", u.DstPort)
	fmt.Fprintf(sb, "       Length: %d\n", u.Length)
	fmt.Fprintf(sb, "     CheckSum: %d\n", u.Checksum)
	fmt.Fprintf(sb, "      Payload: %d\n", u.PayloadLength())
	sb.WriteString("===========UDP Protocol=========\n")

	if h, err := u.DNS(); err == nil {
		sb.WriteString("===========DNS Protocol=========\n")
		fmt.Fprintf(sb, "           Id: %d\n", h.ID)
		fmt.Fprintf(sb, "     Response: %t\n", h.Response())
		fmt.Fprintf(sb, "       Opcode: %d\n", h.Opcode())
		fmt.Fprintf(sb, "        RCode: %d\n", h.RCode())
		fmt.Fprintf(sb, "    Questions: %d\n", h.QDCount)
		fmt.Fprintf(sb, "      Answers: %d\n", h.ANCount)
		sb.WriteString("===========DNS Protocol=========\n")
	}
}

// Summary renders f on a single line.
func Summary(f Frame) string {
	switch v := f.(type) {
	case Unsupported:
		return fmt.Sprintf("%s ethertype 0x%04x", v.Kind, v.EtherType)
	case IPOnly:
		return fmt.Sprintf("%s > %s proto %d len %d", types.FormatIPv4(v.IP.Src), types.FormatIPv4(v.IP.Dst), v.IP.Protocol, v.IP.TotalLength)
	case ICMP:
		return fmt.Sprintf("%s > %s ICMP type %d code %d", types.FormatIPv4(v.IP.Src), types.FormatIPv4(v.IP.Dst), v.Type, v.Code)
	case TCP:
		return fmt.Sprintf("%s:%d > %s:%d TCP [%s] seq %d ack %d win %d len %d",
			types.FormatIPv4(v.IP.Src), v.SrcPort, types.FormatIPv4(v.IP.Dst), v.DstPort,
			v.FlagString(), v.Seq, v.Ack, v.Window, v.PayloadLength())
	case UDP:
		return fmt.Sprintf("%s:%d > %s:%d UDP len %d",
			types.FormatIPv4(v.IP.Src), v.SrcPort, types.FormatIPv4(v.IP.Dst), v.DstPort, v.PayloadLength())
	default:
		panic(fmt.Sprintf("unknown frame type %T", f))
	}
}
