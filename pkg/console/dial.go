package console

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/golang/glog"
	"go.bug.st/serial"
)

// DefaultBaudRate is the console baud rate of the device UART.
const DefaultBaudRate = 9600

// Dialer opens the byte stream under a Console.
type Dialer interface {
	Dial(ctx context.Context) (io.ReadWriteCloser, error)
}

// SerialDialer opens a serial port.
type SerialDialer struct {
	PortName string
	BaudRate int
}

// Dial implements Dialer.
func (d *SerialDialer) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	baud := d.BaudRate
	if baud == 0 {
		baud = DefaultBaudRate
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(d.PortName, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.PortName, err)
	}
	glog.Infof("console: serial %s opened at %d baud", d.PortName, baud)
	return port, nil
}

// TCPDialer connects to a TCP endpoint, e.g. a serial-to-network bridge.
type TCPDialer struct {
	Address string
}

// Dial implements Dialer.
func (d *TCPDialer) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	var dialer net.Dialer
	return dialer.DialContext(ctx, "tcp", d.Address)
}

// ListenDialer accepts the first connection on a TCP address.
type ListenDialer struct {
	Address string
}

// Dial implements Dialer.
func (d *ListenDialer) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", d.Address)
	if err != nil {
		return nil, err
	}
	defer ln.Close()
	glog.Infof("console: waiting for host on %s", ln.Addr())
	connCh, errCh := make(chan net.Conn, 1), make(chan error, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			errCh <- err
			return
		}
		connCh <- conn
	}()
	select {
	case conn := <-connCh:
		return conn, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ParseTarget converts a console target into a Dialer. Accepted forms are
// tcp://host:port, listen://addr and a serial port name.
func ParseTarget(target string, baud int) (Dialer, error) {
	switch {
	case target == "":
		return nil, fmt.Errorf("console target is empty")
	case strings.HasPrefix(target, "tcp://"):
		return &TCPDialer{Address: strings.TrimPrefix(target, "tcp://")}, nil
	case strings.HasPrefix(target, "listen://"):
		return &ListenDialer{Address: strings.TrimPrefix(target, "listen://")}, nil
	case strings.Contains(target, "://"):
		return nil, fmt.Errorf("unsupported console target %q", target)
	}
	return &SerialDialer{PortName: target, BaudRate: baud}, nil
}
