// Package websocket carries bridge packets as binary websocket messages.
package websocket

import (
	"context"
	"net/http"

	"golang.org/x/net/websocket"

	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/framework"
)

// ReadWriter implements PacketReadWriter.
type ReadWriter websocket.Conn

// New wraps websocket.Conn.
func New(conn *websocket.Conn) *ReadWriter {
	return (*ReadWriter)(conn)
}

// Dial connects to a websocket endpoint, e.g. ws://host:port/mac.
func Dial(url string) (*ReadWriter, error) {
	conn, err := websocket.Dial(url, "", "http://localhost/")
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() (pkt []byte, err error) {
	err = websocket.Message.Receive((*websocket.Conn)(p), &pkt)
	return
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	return websocket.Message.Send((*websocket.Conn)(p), pkt)
}

// Close implements io.Closer.
func (p *ReadWriter) Close() error {
	return (*websocket.Conn)(p).Close()
}

// Handler serves each accepted websocket connection with serve, which
// returns when the connection is done.
func Handler(serve func(*ReadWriter) error) http.Handler {
	return websocket.Handler(func(conn *websocket.Conn) {
		serve(New(conn))
	})
}

// ListenAndServe serves the websocket endpoint on addr until ctx is done.
func ListenAndServe(ctx context.Context, addr string, serve func(*ReadWriter) error) error {
	mux := http.NewServeMux()
	mux.Handle("/", Handler(serve))
	server := &http.Server{Addr: addr, Handler: mux}
	return framework.RunWithContextCancel(ctx, func() { server.Close() }, server.ListenAndServe)
}
