package atcmd

import (
	"github.com/golang/glog"

	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/kns"
)

const (
	// FifoSize is the default number of raw command slots. One slot is
	// always kept empty, so FifoSize-1 commands can be pending.
	FifoSize = 4
	// FrameMaxLen is the size of a raw command slot, including the
	// terminating zero.
	FrameMaxLen = 128

	minFrameLen = len("AT+\r\n")
)

var startMarker = []byte("AT+")

// Fifo is the ring of extracted but not yet decoded commands.
// ParseStream is its producer, PopNext its consumer.
type Fifo struct {
	slots   [][FrameMaxLen]byte
	lens    []int
	r, w    int
	dropped int
}

// NewFifo creates a Fifo of size slots (at least 2).
func NewFifo(size int) *Fifo {
	if size < 2 {
		size = 2
	}
	return &Fifo{
		slots: make([][FrameMaxLen]byte, size),
		lens:  make([]int, size),
	}
}

// IsPending reports whether a command is waiting for decoding.
func (f *Fifo) IsPending() bool {
	return f.r != f.w
}

// PopNext returns the oldest pending command or nil.
// The returned slice is valid until the slot is reused by ParseStream.
func (f *Fifo) PopNext() []byte {
	if f.r == f.w {
		return nil
	}
	kns.Assert(f.r >= 0 && f.r < len(f.slots), "atcmd fifo: read index %d out of range", f.r)
	raw := f.slots[f.r][:f.lens[f.r]]
	f.r = (f.r + 1) % len(f.slots)
	return raw
}

// Dropped returns the number of commands dropped because the fifo was full.
func (f *Fifo) Dropped() int {
	return f.dropped
}

// ParseStream implements StreamHandler.
//
// Parsing starts once the last byte is a carriage return. The last "AT+"
// marks the start of the command which ends at the following CR.
// The command is stored into the next slot, truncated to FrameMaxLen-1
// bytes, and everything from the start marker on is consumed. When the
// fifo is full the command is dropped but still consumed.
func (f *Fifo) ParseStream(buf []byte) (int, bool) {
	n := len(buf)
	if n < minFrameLen || buf[n-1] != '\r' {
		return n, false
	}
	start := lastIndex(buf[:n], startMarker)
	if start < 0 {
		return n, false
	}
	end := -1
	for i := start + len(startMarker); i < n; i++ {
		if buf[i] == '\r' {
			end = i + 1
			break
		}
	}
	if end < 0 {
		return n, false
	}

	next := (f.w + 1) % len(f.slots)
	if next == f.r {
		f.dropped++
		glog.Warningf("atcmd: fifo full, command dropped (%d so far)", f.dropped)
		return start, true
	}
	size := end - start
	if size > FrameMaxLen-1 {
		size = FrameMaxLen - 1
	}
	slot := &f.slots[f.w]
	copy(slot[:], buf[start:start+size])
	slot[size] = 0
	f.lens[f.w] = size
	f.w = next
	glog.V(2).Infof("atcmd: frame %q", buf[start:start+size])
	return start, true
}

func lastIndex(buf, marker []byte) int {
	for i := len(buf) - len(marker); i >= 0; i-- {
		match := true
		for j := range marker {
			if buf[i+j] != marker[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
