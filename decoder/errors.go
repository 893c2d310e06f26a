package decoder

import "errors"

var (
	// ErrTruncated signals a frame too short for the headers it announces.
	ErrTruncated = errors.New("truncated frame")

	// ErrMalformed signals header fields holding impossible values.
	ErrMalformed = errors.New("malformed frame")

	// ErrNotDNS is returned when asking for the DNS header of a datagram not
	// involving port 53.
	ErrNotDNS = errors.New("not a DNS datagram")
)
