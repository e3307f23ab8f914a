package mqtt

import (
	"context"
	"encoding/json"

	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/framework"
)

// Meta describes a device on the broker.
type Meta struct {
	Device   string            `json:"device"`
	Firmware string            `json:"firmware,omitempty"`
	Labels   map[string]string `json:"labels,omitempty"`
}

// Endpoint is the device side MQTT connection of the bridge. It publishes
// a retained meta message while connected.
type Endpoint struct {
	Broker     *Broker
	ReadWriter *ReadWriter
	Meta       Meta

	metaJSON []byte
}

// NewEndpoint creates an Endpoint for the device described by meta.
func NewEndpoint(brokerURL string, meta Meta) (*Endpoint, error) {
	metaJSON, err := json.Marshal(&meta)
	if err != nil {
		return nil, err
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	metaTopic := meta.Device + "/" + TopicMeta
	opts.SetBinaryWill(topicPrefix+metaTopic, nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("kns:" + meta.Device)
	}
	e := &Endpoint{Broker: NewBroker(opts, topicPrefix), Meta: meta, metaJSON: metaJSON}
	e.Broker.OnConnect = func(b *Broker) {
		b.PubWith(metaTopic, e.metaJSON, 1, true)
	}
	e.ReadWriter = NewPacketReadWriter(e.Broker).ForDevice(meta.Device)
	return e, nil
}

// Run implements Runnable.
func (e *Endpoint) Run(ctx context.Context) error {
	token := e.Broker.Connect()
	if token.Wait(); token.Error() != nil {
		return token.Error()
	}
	err := e.ReadWriter.Run(ctx)
	e.Broker.PubWith(e.Meta.Device+"/"+TopicMeta, nil, 1, true).Wait()
	e.Broker.Close()
	return err
}

// Runner returns the endpoint as a named Runnable.
func (e *Endpoint) Runner() framework.Runnable {
	return framework.NamedRun("mqtt:"+e.Meta.Device, e)
}
