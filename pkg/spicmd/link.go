// Package spicmd implements the binary command front-end used over an
// SPI-like link: a multi-stage state machine driven by a table of
// chained command descriptors.
package spicmd

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/golang/glog"
)

// ErrLinkBusy is returned when a transfer is requested while one is armed.
var ErrLinkBusy = errors.New("spicmd: link busy")

// CompletionFunc receives the bytes of a completed transfer.
type CompletionFunc func(frame []byte)

// Link is the binary transport collaborator. Transfers complete
// asynchronously through the registered CompletionFunc.
type Link interface {
	// Register installs the completion callback.
	Register(CompletionFunc) error
	// Receive arms the reception of n bytes.
	Receive(n int) error
	// Exchange writes tx then arms the reception of n bytes.
	Exchange(tx []byte, n int) error
}

// StreamLink implements Link over a byte stream, e.g. a serial port.
type StreamLink struct {
	rw       io.ReadWriter
	reqs     chan int
	complete CompletionFunc
	lock     sync.Mutex
}

// NewStreamLink creates a StreamLink over rw.
func NewStreamLink(rw io.ReadWriter) *StreamLink {
	return &StreamLink{rw: rw, reqs: make(chan int, 1)}
}

// Register implements Link.
func (l *StreamLink) Register(fn CompletionFunc) error {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.complete = fn
	return nil
}

// Receive implements Link.
func (l *StreamLink) Receive(n int) error {
	select {
	case l.reqs <- n:
		return nil
	default:
		return ErrLinkBusy
	}
}

// Exchange implements Link.
func (l *StreamLink) Exchange(tx []byte, n int) error {
	if _, err := l.rw.Write(tx); err != nil {
		return err
	}
	return l.Receive(n)
}

// Run reads the armed transfers until ctx is done or the stream fails.
func (l *StreamLink) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n := <-l.reqs:
			buf := make([]byte, n)
			if _, err := io.ReadFull(l.rw, buf); err != nil {
				glog.Errorf("spi link read error: %v", err)
				return err
			}
			l.lock.Lock()
			fn := l.complete
			l.lock.Unlock()
			if fn != nil {
				fn(buf)
			}
		}
	}
}
