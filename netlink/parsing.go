package netlink

import (
	"fmt"
)

// Please note the ReadBuffer has been plundered from
// github.com/vishvananda/netlink/socket_linux.go. Callers are expected to
// check the length of what they're about to read beforehand with Len().
type ReadBuffer struct {
	Bytes []byte
	pos   int
}

func (b *ReadBuffer) Read() byte {
	c := b.Bytes[b.pos]
	b.pos++
	return c
}

func (b *ReadBuffer) Next(n int) []byte {
	s := b.Bytes[b.pos : b.pos+n]
	b.pos += n
	return s
}

// Len returns the number of unread bytes.
func (b *ReadBuffer) Len() int {
	return len(b.Bytes) - b.pos
}

// Need checks at least n bytes are left to read.
func (b *ReadBuffer) Need(n int, what string) error {
	if b.Len() < n {
		return fmt.Errorf("%w: %s short read (%d); want %d", ErrProtocol, what, b.Len(), n)
	}
	return nil
}
