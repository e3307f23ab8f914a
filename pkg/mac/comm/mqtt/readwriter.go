package mqtt

import (
	"context"
	"io"
)

// Topic suffixes below the device name.
const (
	TopicApp  = "app"
	TopicSrvc = "srvc"
	TopicMeta = "meta"
)

// ReadWriter implements PacketReadWriter.
type ReadWriter struct {
	Broker   *Broker
	SubTopic string
	PubTopic string

	packetCh chan []byte
}

// NewPacketReadWriter creates the ReadWriter.
func NewPacketReadWriter(b *Broker) *ReadWriter {
	return &ReadWriter{Broker: b, packetCh: make(chan []byte, 4)}
}

// WithTopics specifies the topics.
func (p *ReadWriter) WithTopics(sub, pub string) *ReadWriter {
	p.SubTopic, p.PubTopic = sub, pub
	return p
}

// ForDevice sets topics for the device side:
// SubTopic = device/srvc
// PubTopic = device/app
func (p *ReadWriter) ForDevice(device string) *ReadWriter {
	return p.WithTopics(device+"/"+TopicSrvc, device+"/"+TopicApp)
}

// ForStack sets topics for the protocol stack side:
// SubTopic = device/app
// PubTopic = device/srvc
func (p *ReadWriter) ForStack(device string) *ReadWriter {
	return p.WithTopics(device+"/"+TopicApp, device+"/"+TopicSrvc)
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	pkt, ok := <-p.packetCh
	if !ok {
		return nil, io.EOF
	}
	return pkt, nil
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	token := p.Broker.Pub(p.PubTopic, pkt)
	token.Wait()
	return token.Error()
}

// Run implements Runnable. Packets are delivered to ReadPacket until ctx
// is done.
func (p *ReadWriter) Run(ctx context.Context) error {
	defer close(p.packetCh)
	sub := p.Broker.Sub(p.SubTopic, p.handleMsg)
	defer sub.Close()
	<-ctx.Done()
	return ctx.Err()
}

func (p *ReadWriter) handleMsg(_ string, payload []byte) {
	p.packetCh <- payload
}
