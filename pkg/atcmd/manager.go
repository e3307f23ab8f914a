package atcmd

import (
	"context"

	"github.com/golang/glog"

	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/device"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/kns"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/mac"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/queue"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/userdata"
)

// Commands is the AT command table in lookup order.
var Commands = []Descriptor{
	{Name: "AT+PING", Handler: handlePing},
	{Name: "AT+FW", Handler: handleFirmware},
	{Name: "AT+ADDR", Handler: handleAddr},
	{Name: "AT+ID", Handler: handleID},
	{Name: "AT+SN", Handler: handleSN},
	{Name: "AT+RCONF", Handler: handleRadioConf},
	{Name: "AT+SAVE_RCONF", Handler: handleSaveRadioConf},
	{Name: "AT+SECKEY", Handler: handleSecKey},
	{Name: "AT+LPM", Handler: handleLPM},
	{Name: "AT+KMAC", Handler: handleKMAC},
	{Name: "AT+TX", Handler: handleTx},
	{Name: "AT+RX", Handler: handleRx},
	{Name: "AT+PREPASS_EN", Handler: handlePrepass},
	{Name: "AT+UDATE", Handler: handleUDate},
	{Name: "AT+VERSION", Handler: handleVersion},
}

// Manager is the application task of the AT front-end.
type Manager struct {
	Transport Transport
	Settings  *device.Store
	Pool      *userdata.Pool
	Queues    *queue.Set

	fifo        *Fifo
	table       []Descriptor
	pendingInit *mac.AppEvent
}

// NewManager creates a Manager with the default command table.
func NewManager(t Transport, settings *device.Store, pool *userdata.Pool, queues *queue.Set) *Manager {
	return &Manager{
		Transport: t,
		Settings:  settings,
		Pool:      pool,
		Queues:    queues,
		fifo:      NewFifo(FifoSize),
		table:     Commands,
	}
}

// Fifo returns the command fifo.
func (m *Manager) Fifo() *Fifo {
	return m.fifo
}

// Start registers the stream parser on the transport.
func (m *Manager) Start() error {
	return m.Transport.Register(m.fifo.ParseStream)
}

// Poll implements framework.Task: it reports one MAC event then decodes
// one pending command.
func (m *Manager) Poll(ctx context.Context) error {
	if st := m.MacEvtProcess(); st != kns.StatusOK && st != kns.StatusQEmpty {
		glog.V(2).Infof("atcmd: MAC event reported with %v", st)
	}
	if m.fifo.IsPending() {
		m.Decode(m.fifo.PopNext())
	}
	return nil
}

// Pending reports whether the task has work left.
func (m *Manager) Pending() bool {
	return m.fifo.IsPending()
}
