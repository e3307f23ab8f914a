package console

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/atcmd"
)

type chanReadWriter struct {
	readCh chan []byte
	out    bytes.Buffer
	lock   sync.Mutex
}

func newChanReadWriter() *chanReadWriter {
	return &chanReadWriter{readCh: make(chan []byte, 4)}
}

func (c *chanReadWriter) Read(p []byte) (int, error) {
	b, ok := <-c.readCh
	if !ok {
		return 0, io.EOF
	}
	return copy(p, b), nil
}

func (c *chanReadWriter) Write(p []byte) (int, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.out.Write(p)
}

func (c *chanReadWriter) written() string {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.out.String()
}

func newTestConsole(t *testing.T) (*Console, *chanReadWriter, *atcmd.Fifo) {
	rw := newChanReadWriter()
	c, err := New(rw)
	require.NoError(t, err)
	fifo := atcmd.NewFifo(atcmd.FifoSize)
	require.NoError(t, c.Register(fifo.ParseStream))
	return c, rw, fifo
}

func drain(fifo *atcmd.Fifo) []string {
	var frames []string
	for fifo.IsPending() {
		frames = append(frames, string(fifo.PopNext()))
	}
	return frames
}

func TestFeed(t *testing.T) {
	testCases := []struct {
		name   string
		input  []string
		expect []string
	}{
		{name: "single", input: []string{"AT+PING=?\r"}, expect: []string{"AT+PING=?\r"}},
		{name: "leading noise", input: []string{"noise\r\nxxAT+ID=?\r"}, expect: []string{"AT+ID=?\r"}},
		{name: "two in one chunk", input: []string{"AT+PING=?\rAT+FW=?\r"}, expect: []string{"AT+PING=?\r", "AT+FW=?\r"}},
		{name: "split", input: []string{"AT+T", "X=0102", "\r"}, expect: []string{"AT+TX=0102\r"}},
		{name: "crlf", input: []string{"AT+SN=?\r\n", "AT+LPM=?\r\n"}, expect: []string{"AT+SN=?\r", "AT+LPM=?\r"}},
		{name: "incomplete", input: []string{"AT+PING=?"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, _, fifo := newTestConsole(t)
			for _, in := range tc.input {
				c.Feed([]byte(in))
			}
			require.Equal(t, tc.expect, drain(fifo))
		})
	}
}

func TestFeedDiscardsLinesWithoutCommand(t *testing.T) {
	c, _, fifo := newTestConsole(t)
	for i := 0; i < 2*BufferSize; i++ {
		c.Feed([]byte("\r\n"))
	}
	require.Zero(t, c.Overflows())
	require.Empty(t, c.buf)
	c.Feed([]byte("AT+PING=?\r"))
	require.Equal(t, []string{"AT+PING=?\r"}, drain(fifo))
}

func TestFeedOverflow(t *testing.T) {
	c, _, fifo := newTestConsole(t)
	c.Feed([]byte(strings.Repeat("x", BufferSize+10)))
	require.Equal(t, 1, c.Overflows())
	require.Len(t, c.buf, 10)
	c.Feed([]byte("AT+PING=?\r"))
	require.Equal(t, []string{"AT+PING=?\r"}, drain(fifo))
}

func TestSend(t *testing.T) {
	c, rw, _ := newTestConsole(t)
	c.Send("+TX=%d,", 0)
	c.SendBuffer([]byte{0xAB, 0xC0}, 12)
	c.Send("\r\n")
	require.Equal(t, "+TX=0,ABC\r\n", rw.written())
}

func TestRunQueuesChunks(t *testing.T) {
	c, rw, fifo := newTestConsole(t)
	woken := make(chan struct{}, 1)
	c.Wake = func() {
		select {
		case woken <- struct{}{}:
		default:
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx) }()

	rw.readCh <- []byte("AT+PI")
	rw.readCh <- []byte("NG=?\r")
	<-woken
	var frames []string
	require.Eventually(t, func() bool {
		c.Poll(ctx)
		frames = append(frames, drain(fifo)...)
		return len(frames) > 0
	}, time.Second, time.Millisecond)
	require.Equal(t, []string{"AT+PING=?\r"}, frames)
	require.False(t, c.Pending())

	close(rw.readCh)
	require.Equal(t, io.EOF, <-errCh)
}

func TestRunBackPressure(t *testing.T) {
	c, rw, fifo := newTestConsole(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	go func() {
		for i := 0; i < RxQueueCapacity*2; i++ {
			rw.readCh <- []byte("x")
		}
		rw.readCh <- []byte("AT+PING=?\r")
	}()
	var frames []string
	require.Eventually(t, func() bool {
		c.Poll(ctx)
		frames = append(frames, drain(fifo)...)
		return len(frames) > 0
	}, time.Second, time.Millisecond)
	require.Equal(t, []string{"AT+PING=?\r"}, frames)
}

func TestRunNotRegistered(t *testing.T) {
	c, err := New(newChanReadWriter())
	require.NoError(t, err)
	require.Equal(t, ErrNotRegistered, c.Run(context.Background()))
	require.Equal(t, ErrNotRegistered, c.Register(nil))
}

func TestParseTarget(t *testing.T) {
	testCases := []struct {
		target string
		expect Dialer
		fail   bool
	}{
		{target: "/dev/ttyUSB0", expect: &SerialDialer{PortName: "/dev/ttyUSB0", BaudRate: 115200}},
		{target: "tcp://127.0.0.1:4000", expect: &TCPDialer{Address: "127.0.0.1:4000"}},
		{target: "listen://:4000", expect: &ListenDialer{Address: ":4000"}},
		{target: "udp://x", fail: true},
		{target: "", fail: true},
	}
	for _, tc := range testCases {
		t.Run(tc.target, func(t *testing.T) {
			d, err := ParseTarget(tc.target, 115200)
			if tc.fail {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expect, d)
		})
	}
}

func TestListenAndDial(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ln := &ListenDialer{Address: "127.0.0.1:0"}
	_, err := ln.Dial(ctxCanceled())
	require.Error(t, err)

	connCh, errCh := make(chan io.ReadWriteCloser, 1), make(chan error, 1)
	go func() {
		conn, err := (&ListenDialer{Address: "127.0.0.1:47391"}).Dial(ctx)
		if err != nil {
			errCh <- err
			return
		}
		connCh <- conn
	}()
	var client io.ReadWriteCloser
	require.Eventually(t, func() bool {
		client, err = (&TCPDialer{Address: "127.0.0.1:47391"}).Dial(ctx)
		return err == nil
	}, time.Second, 5*time.Millisecond)
	defer client.Close()
	var server io.ReadWriteCloser
	select {
	case server = <-connCh:
	case err = <-errCh:
		require.NoError(t, err)
	}
	defer server.Close()

	_, err = client.Write([]byte("AT+PING=?\r"))
	require.NoError(t, err)
	buf := make([]byte, 10)
	_, err = io.ReadFull(server, buf)
	require.NoError(t, err)
	require.Equal(t, "AT+PING=?\r", string(buf))
}

func ctxCanceled() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}
