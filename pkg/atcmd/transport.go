// Package atcmd implements the ASCII AT command front-end: stream parsing,
// command fifo, table-driven dispatch, the AT command set and the
// reporting of MAC events to the host.
package atcmd

// StreamHandler extracts at most one command from buf. It returns the number of bytes still to be kept at the beginning
// of the buffer and whether a command was consumed. It is called again
// while it consumes commands.
type StreamHandler func(buf []byte) (remaining int, consumed bool)

// Transport is the console collaborator of the AT front-end.
type Transport interface {
	// Register installs the stream handler and arms reception.
	Register(StreamHandler) error
	// Send formats and writes a reply.
	Send(format string, args ...interface{})
	// SendBuffer writes bitLen bits of data as upper case hex.
	SendBuffer(data []byte, bitLen int)
}

// FormatBits returns the hex dump of bitLen bits of data: two digits per
// whole byte, then one digit (high nibble) for 1 to 4 trailing bits or two
// digits for 5 to 7.
func FormatBits(data []byte, bitLen int) string {
	const digits = "0123456789ABCDEF"
	full, rem := bitLen/8, bitLen%8
	if full > len(data) {
		full, rem = len(data), 0
	}
	out := make([]byte, 0, full*2+2)
	for _, b := range data[:full] {
		out = append(out, digits[b>>4], digits[b&0x0f])
	}
	if rem > 0 && full < len(data) {
		b := data[full]
		out = append(out, digits[b>>4])
		if rem > 4 {
			out = append(out, digits[b&0x0f])
		}
	}
	return string(out)
}
