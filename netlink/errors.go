package netlink

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/mdlayher/netlink"
)

var (
	// ErrTransport signals a failed system call: opening, sending or receiving.
	ErrTransport = errors.New("netlink transport failure")

	// ErrProtocol signals malformed framing, a sequence mismatch or an
	// explicit error reply from the kernel.
	ErrProtocol = errors.New("netlink protocol failure")
)

// classify tags err with either ErrTransport or ErrProtocol. Errors carrying
// an *os.SyscallError come from the socket itself; kernel error replies are
// surfaced by mdlayher/netlink as bare errnos instead.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var se *os.SyscallError
	if errors.As(err, &se) {
		return fmt.Errorf("%w: %s: %w", ErrTransport, op, err)
	}

	var oe *netlink.OpError
	if errors.As(err, &oe) && oe.Op == "send" {
		return fmt.Errorf("%w: %s: %w", ErrTransport, op, err)
	}

	return fmt.Errorf("%w: %s: %w", ErrProtocol, op, err)
}

// KernelErrno extracts the errno of a kernel error reply. It returns false
// for anything else, transport failures included.
func KernelErrno(err error) (syscall.Errno, bool) {
	if !errors.Is(err, ErrProtocol) {
		return 0, false
	}

	var oe *netlink.OpError
	if !errors.As(err, &oe) {
		return 0, false
	}

	var errno syscall.Errno
	if errors.As(oe.Err, &errno) {
		return errno, true
	}
	return 0, false
}
