package spicmd

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/golang/glog"

	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/device"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/kns"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/mac"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/queue"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/userdata"
)

// State is the state of the command state machine.
type State uint8

// States.
const (
	StateInit State = iota
	StateIdle
	StateProcessCmd
	StateWaitingRx
	StateWaitingTx
	StateWaitingMacEvt
	StateError
)

var stateNames = [...]string{"INIT", "IDLE", "PROCESS_CMD", "WAITING_RX", "WAITING_TX", "WAITING_MAC_EVT", "ERROR"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("STATE(%d)", uint8(s))
}

const (
	// FrameMaxLen is the largest frame kept from a completed transfer.
	FrameMaxLen = 64
	// RxQueueCapacity is the number of queued completions (one kept empty).
	RxQueueCapacity = 4

	rxQueue      queue.Handle = 0
	rxHeaderSize              = 2
)

type replyKind int

const (
	replyWait replyKind = iota
	replyRespond
	replyAwaitMAC
	replyNack
)

// Reply is the next link request of a handler.
type Reply struct {
	kind replyKind
	tx   []byte
	n    int
}

// WaitNext requests the reception of n more bytes.
func WaitNext(n int) Reply {
	return Reply{kind: replyWait, n: n}
}

// Respond requests writing tx then receiving n bytes.
func Respond(tx []byte, n int) Reply {
	return Reply{kind: replyRespond, tx: tx, n: n}
}

// AwaitMAC defers the reply until the MAC answers.
func AwaitMAC() Reply {
	return Reply{kind: replyAwaitMAC}
}

// Nack replies a failure and aborts the current chain.
func Nack() Reply {
	return Reply{kind: replyNack, tx: []byte{0}, n: 1}
}

// Machine is the application task of the binary front-end.
type Machine struct {
	Link     Link
	Settings *device.Store
	Pool     *userdata.Pool
	Queues   *queue.Set
	// Wake is called after a completion was queued.
	Wake func()

	state       State
	expect      CommandID
	table       []Descriptor
	rx          *queue.Set
	macStatus   MacStatus
	txSize      int
	pendingInit *mac.AppEvent
	dropped     int
}

// NewMachine creates a Machine with the default command table.
func NewMachine(link Link, settings *device.Store, pool *userdata.Pool, queues *queue.Set) (*Machine, error) {
	rx, err := queue.NewSet(queue.BackendArray, queue.Config{
		Handle:   rxQueue,
		Name:     "SPI_RX",
		Capacity: RxQueueCapacity,
		ElemSize: rxHeaderSize + FrameMaxLen,
	})
	if err != nil {
		return nil, err
	}
	if st := rx.CreateAll(); st != kns.StatusOK {
		return nil, st
	}
	return &Machine{
		Link:      link,
		Settings:  settings,
		Pool:      pool,
		Queues:    queues,
		table:     Commands(),
		rx:        rx,
		macStatus: MacOK,
	}, nil
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// MacStatus returns the MAC status byte.
func (m *Machine) MacStatus() MacStatus {
	return m.macStatus
}

// Dropped returns the number of completions lost because the rx queue was full.
func (m *Machine) Dropped() int {
	return m.dropped
}

// Start registers the completion callback and arms the first command byte.
func (m *Machine) Start() error {
	if m.state != StateInit {
		return fmt.Errorf("spicmd: start in state %s", m.state)
	}
	if err := m.Link.Register(m.Complete); err != nil {
		m.state = StateError
		return err
	}
	if err := m.Link.Receive(1); err != nil {
		m.state = StateError
		return err
	}
	m.state = StateIdle
	return nil
}

// Complete queues a completed transfer. It may be called from any goroutine.
func (m *Machine) Complete(frame []byte) {
	item := make([]byte, rxHeaderSize+FrameMaxLen)
	n := len(frame)
	if n > FrameMaxLen {
		glog.Warningf("spicmd: frame of %d bytes truncated", n)
		n = FrameMaxLen
	}
	binary.LittleEndian.PutUint16(item, uint16(n))
	copy(item[rxHeaderSize:], frame[:n])
	if st := m.rx.Push(rxQueue, item); st != kns.StatusOK {
		m.dropped++
		glog.Warningf("spicmd: completion dropped: %v", st)
		return
	}
	if m.Wake != nil {
		m.Wake()
	}
}

// Pending reports whether completions are waiting.
func (m *Machine) Pending() bool {
	return m.rx.IsDataInAnyQueue()
}

// Poll implements framework.Task: it processes one MAC event then one
// completed transfer.
func (m *Machine) Poll(ctx context.Context) error {
	if m.state == StateInit || m.state == StateError {
		return nil
	}
	if st := m.MacEvtProcess(); st != kns.StatusOK && st != kns.StatusQEmpty {
		glog.V(2).Infof("spicmd: MAC event processed with %v", st)
	}
	if m.state == StateWaitingMacEvt {
		return nil
	}

	item := make([]byte, rxHeaderSize+FrameMaxLen)
	if m.rx.Pop(rxQueue, item) != kns.StatusOK {
		return nil
	}
	frame := item[rxHeaderSize : rxHeaderSize+int(binary.LittleEndian.Uint16(item))]
	switch m.state {
	case StateWaitingRx, StateWaitingTx:
		m.state = StateIdle
	}
	if len(frame) == 0 {
		return m.apply(WaitNext(1), CmdNone)
	}
	return m.process(frame)
}

func (m *Machine) process(frame []byte) error {
	m.state = StateProcessCmd
	id := CommandID(frame[0])
	if m.expect != CmdNone && id != m.expect {
		glog.Warningf("spicmd: %s while expecting %s", id, m.expect)
		m.expect = CmdNone
		return m.apply(Nack(), CmdNone)
	}
	m.expect = CmdNone
	if int(id) >= len(m.table) || m.table[id].Handler == nil {
		glog.V(2).Infof("spicmd: unknown command 0x%02X", uint8(id))
		return m.apply(WaitNext(1), CmdNone)
	}
	desc := &m.table[id]
	glog.V(2).Infof("spicmd: %s (%d bytes)", desc.ID, len(frame))
	return m.apply(desc.Handler(m, frame), desc.Next)
}

func (m *Machine) apply(r Reply, next CommandID) error {
	var err error
	switch r.kind {
	case replyWait:
		m.state = StateWaitingRx
		err = m.Link.Receive(r.n)
	case replyRespond, replyNack:
		m.state = StateWaitingTx
		err = m.Link.Exchange(r.tx, r.n)
	case replyAwaitMAC:
		m.state = StateWaitingMacEvt
	}
	if r.kind == replyNack {
		next = CmdNone
	}
	m.expect = next
	if err != nil {
		m.state = StateError
		return fmt.Errorf("spicmd: link request failed: %w", err)
	}
	return nil
}
