package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/scitags/hostwatch/decoder"
	"github.com/scitags/hostwatch/types"
)

func TestColumns(t *testing.T) {
	v := types.NewProcessView(types.Process{PID: 42, Name: "curl", RSSKB: 10}, 100, 1000)

	header, values := columns(&v)

	if diff := cmp.Diff([]string{"PID", "NAME", "EXE", "CGROUP", "CPU", "MEMORY", "RSSKB"}, header); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"42", "curl", "", "", "0.000", "0.010", "10"}, values); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderTable(t *testing.T) {
	rows := []interface{}{
		&socketRow{Inode: 1001, Local: "10.0.0.5:40000", Remote: "192.168.1.20:443", PID: 100, Name: "curl", CPU: 0.5, State: "ESTABLISHED"},
		&socketRow{Inode: 1002, Local: "10.0.0.5:40001", Remote: "192.168.1.21:80", State: "SYN-SENT"},
	}

	var buf bytes.Buffer
	renderTable(&buf, rows)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}

	for i, want := range [][]string{
		{"INODE", "LOCAL", "REMOTE", "PID", "NAME", "CPU", "MEM", "STATE"},
		{"1001", "10.0.0.5:40000", "192.168.1.20:443", "100", "curl", "0.500", "0.000", "ESTABLISHED"},
		{"1002", "10.0.0.5:40001", "192.168.1.21:80", "0", "0.000", "0.000", "SYN-SENT"},
	} {
		if diff := cmp.Diff(want, strings.Fields(lines[i])); diff != "" {
			t.Errorf("line %d mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestParseHex(t *testing.T) {
	got, err := parseHex("0x0A:0b 0c\n0d")
	if err != nil {
		t.Fatalf("error parsing: %v", err)
	}
	if !bytes.Equal(got, []byte{0x0a, 0x0b, 0x0c, 0x0d}) {
		t.Errorf("got %x", got)
	}

	if _, err := parseHex("0xzz"); err == nil {
		t.Errorf("parsing garbage succeeded")
	}
}

func TestDecodeRunt(t *testing.T) {
	frame, err := parseHex("0242ac110001")
	if err != nil {
		t.Fatalf("error parsing: %v", err)
	}
	if _, err := decoder.Decode(frame); !errors.Is(err, decoder.ErrTruncated) {
		t.Errorf("got %v, want %v", err, decoder.ErrTruncated)
	}
}
