// Package console provides the byte stream transport of the AT front-end
// and a host side client speaking to it.
package console

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/atcmd"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/kns"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/queue"
)

var (
	// ErrNotRegistered is returned by Run before a stream handler is registered.
	ErrNotRegistered = errors.New("no stream handler registered")
)

const (
	// ChunkSize is the maximum number of bytes queued per read.
	ChunkSize = 32
	// RxQueueCapacity is the capacity of the receive queue.
	RxQueueCapacity = 16
	// BufferSize is the size of the accumulation buffer.
	BufferSize = 256

	rxQueue queue.Handle = 0
)

var commandMarker = []byte("AT+")

// Console implements atcmd.Transport over a byte stream.
//
// The reader goroutine started by Run only queues received chunks; the
// stream handler is invoked from Poll, which runs as a scheduler task.
type Console struct {
	ReadWriter io.ReadWriter
	// Wake is called after received bytes are queued.
	Wake func()

	handler   atcmd.StreamHandler
	rx        *queue.Set
	buf       []byte
	overflows int
	writeLock sync.Mutex
}

// New creates a Console over rw.
func New(rw io.ReadWriter) (*Console, error) {
	rx, err := queue.NewSet(queue.BackendArray, queue.Config{
		Handle:   rxQueue,
		Name:     "CONSOLE_RX",
		Capacity: RxQueueCapacity,
		ElemSize: ChunkSize + 1,
	})
	if err != nil {
		return nil, err
	}
	if st := rx.CreateAll(); st != kns.StatusOK {
		return nil, st
	}
	return &Console{ReadWriter: rw, rx: rx, buf: make([]byte, 0, BufferSize)}, nil
}

// Register implements atcmd.Transport.
func (c *Console) Register(h atcmd.StreamHandler) error {
	if h == nil {
		return ErrNotRegistered
	}
	c.handler = h
	return nil
}

// Send implements atcmd.Transport.
func (c *Console) Send(format string, args ...interface{}) {
	c.write([]byte(fmt.Sprintf(format, args...)))
}

// SendBuffer implements atcmd.Transport.
func (c *Console) SendBuffer(data []byte, bitLen int) {
	c.write([]byte(atcmd.FormatBits(data, bitLen)))
}

func (c *Console) write(p []byte) {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()
	glog.V(4).Infof("console tx %q", p)
	if _, err := c.ReadWriter.Write(p); err != nil {
		glog.Errorf("console write error: %v", err)
	}
}

// Overflows returns the number of times the accumulation buffer was dropped.
func (c *Console) Overflows() int {
	return c.overflows
}

// Pending reports whether received bytes wait for Poll.
func (c *Console) Pending() bool {
	return c.rx.IsDataInAnyQueue()
}

// Run reads the stream until ctx is done or reading fails.
func (c *Console) Run(ctx context.Context) error {
	if c.handler == nil {
		return ErrNotRegistered
	}
	chunkCh, errCh := make(chan []byte), make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go c.readLoop(subCtx, chunkCh, errCh)
	for {
		select {
		case chunk := <-chunkCh:
			if err := c.enqueue(ctx, chunk); err != nil {
				return err
			}
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Console) readLoop(ctx context.Context, chunkCh chan []byte, errCh chan error) {
	buf := make([]byte, ChunkSize)
	for {
		n, err := c.ReadWriter.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case chunkCh <- chunk:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			errCh <- err
			return
		}
	}
}

// enqueue waits for the scheduler to free a slot when the queue is full.
func (c *Console) enqueue(ctx context.Context, chunk []byte) error {
	elem := make([]byte, ChunkSize+1)
	elem[0] = byte(len(chunk))
	copy(elem[1:], chunk)
	for c.rx.Push(rxQueue, elem) == kns.StatusQFull {
		c.wake()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
	c.wake()
	return nil
}

func (c *Console) wake() {
	if c.Wake != nil {
		c.Wake()
	}
}

// Poll implements framework.Task. It feeds at most RxQueueCapacity queued
// chunks to the stream handler.
func (c *Console) Poll(ctx context.Context) error {
	elem := make([]byte, ChunkSize+1)
	for i := 0; i < RxQueueCapacity; i++ {
		if c.rx.Pop(rxQueue, elem) != kns.StatusOK {
			break
		}
		c.Feed(elem[1 : 1+int(elem[0])])
	}
	return nil
}

// Feed appends p to the accumulation buffer one byte at a time, invoking
// the stream handler after each byte for as long as it consumes commands.
// A line holding no command marker is discarded at its end.
func (c *Console) Feed(p []byte) {
	if c.handler == nil {
		return
	}
	for _, b := range p {
		if len(c.buf) == cap(c.buf) {
			c.overflows++
			glog.Warningf("console: rx buffer overflow, %d bytes dropped", len(c.buf))
			c.buf = c.buf[:0]
		}
		c.buf = append(c.buf, b)
		for {
			remaining, consumed := c.handler(c.buf)
			if !consumed || remaining >= len(c.buf) {
				break
			}
			c.buf = c.buf[:remaining]
		}
		if (b == '\r' || b == '\n') && !bytes.Contains(c.buf, commandMarker) {
			c.buf = c.buf[:0]
		}
	}
}
