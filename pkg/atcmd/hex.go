package atcmd

import "strings"

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// AsciiToBits converts hex digits to binary. An odd trailing digit fills
// the high nibble of the last byte and counts for 4 bits. It returns a
// bit length of 0 when s holds a non hex character.
func AsciiToBits(s string) ([]byte, int) {
	out := make([]byte, (len(s)+1)/2)
	for i := 0; i < len(s); i++ {
		v, ok := hexNibble(s[i])
		if !ok {
			return nil, 0
		}
		if i%2 == 0 {
			out[i/2] = v << 4
		} else {
			out[i/2] |= v
		}
	}
	return out, len(s)/2*8 + len(s)%2*4
}

// scanner consumes a command in the manner of a scanf pattern.
type scanner struct {
	s string
}

func newScanner(raw []byte) *scanner {
	return &scanner{s: string(raw)}
}

func (sc *scanner) literal(lit string) bool {
	if !strings.HasPrefix(sc.s, lit) {
		return false
	}
	sc.s = sc.s[len(lit):]
	return true
}

// hex consumes up to max hex digits, at least one.
func (sc *scanner) hex(max int) (string, bool) {
	n := 0
	for n < len(sc.s) && n < max {
		if _, ok := hexNibble(sc.s[n]); !ok {
			break
		}
		n++
	}
	if n == 0 {
		return "", false
	}
	tok := sc.s[:n]
	sc.s = sc.s[n:]
	return tok, true
}

// uint consumes a hex number without prefix.
func (sc *scanner) hexUint(bits uint) (uint64, bool) {
	tok, ok := sc.hex(len(sc.s))
	if !ok {
		return 0, false
	}
	var v uint64
	for i := 0; i < len(tok); i++ {
		d, _ := hexNibble(tok[i])
		v = v<<4 | uint64(d)
	}
	return v & (1<<bits - 1), true
}

// decimal consumes an optionally signed decimal number.
func (sc *scanner) decimal() (int64, bool) {
	n, neg := 0, false
	if n < len(sc.s) && (sc.s[n] == '-' || sc.s[n] == '+') {
		neg = sc.s[n] == '-'
		n++
	}
	start := n
	var v int64
	for n < len(sc.s) && sc.s[n] >= '0' && sc.s[n] <= '9' {
		v = v*10 + int64(sc.s[n]-'0')
		n++
	}
	if n == start {
		return 0, false
	}
	sc.s = sc.s[n:]
	if neg {
		v = -v
	}
	return v, true
}

// argument returns the parameter text following prefix, end of line
// characters removed.
func argument(raw []byte, prefix string) string {
	s := string(raw)
	if len(s) < len(prefix) {
		return ""
	}
	return strings.TrimRight(s[len(prefix):], "\r\n")
}
