// Package userdata keeps the uplink messages pending transmission.
//
// The pool is an arena of fixed message slots chained by index into a
// single list. Messages are reserved, filled, then linked; the MAC
// completion event unlinks them again.
package userdata

import (
	"bytes"
	"sync"

	"github.com/golang/glog"

	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/kns"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/mac"
)

const (
	// DefaultPoolSize is the number of message slots.
	DefaultPoolSize = 4
	// MaxPayloadBytes is the payload size of a message.
	MaxPayloadBytes = mac.MaxUserDataBytes
	// MaxPayloadBits is the largest bit length of a message.
	MaxPayloadBits = MaxPayloadBytes * 8

	// Data can also hold the payload as a hex string.
	dataBufSize = MaxPayloadBytes*2 + 1

	none = -1
)

// Attr is the message attribute: service flag in bits 0-2,
// front insertion in bit 3.
type Attr uint8

const (
	attrSFMask Attr = 0x07
	// AttrFront requests insertion at the front of the list.
	AttrFront Attr = 0x08
)

// MakeAttr builds an attribute.
func MakeAttr(sf mac.ServiceFlag, front bool) Attr {
	a := Attr(sf) & attrSFMask
	if front {
		a |= AttrFront
	}
	return a
}

// Flag returns the service flag.
func (a Attr) Flag() mac.ServiceFlag {
	return mac.ServiceFlag(a & attrSFMask)
}

// Front reports whether the front flag is set.
func (a Attr) Front() bool {
	return a&AttrFront != 0
}

// Message is a slot of the pool.
type Message struct {
	Data   [dataBufSize]byte
	BitLen uint16
	Attr   Attr
	// Reserved is set from Reserve until Unlink, Release or Flush.
	Reserved bool
	// Ctrl is the control block of the transport backend.
	Ctrl interface{}

	pool   *Pool
	index  int
	next   int
	linked bool
}

// Index returns the slot index of the message in its pool.
func (m *Message) Index() int {
	return m.index
}

// Payload returns the significant bytes of the message.
func (m *Message) Payload() []byte {
	n := (int(m.BitLen) + 7) / 8
	if n > MaxPayloadBytes {
		n = MaxPayloadBytes
	}
	return m.Data[:n]
}

// SetPayload copies data and sets the bit length.
func (m *Message) SetPayload(data []byte, bitlen uint16) {
	m.Data = [dataBufSize]byte{}
	copy(m.Data[:MaxPayloadBytes], data)
	m.BitLen = bitlen
}

func (m *Message) reset() {
	*m = Message{pool: m.pool, index: m.index, next: none}
}

// Client is notified of the life cycle of linked messages.
type Client interface {
	// Added is called when a message is linked.
	Added(*Message)
	// TxComplete is called when a message is unlinked.
	TxComplete(*Message)
	// Flushed is called for every message detached by Flush.
	Flushed(*Message)
}

// Pool is the arena of outbound messages.
type Pool struct {
	slots   []Message
	head    int
	clients []Client
	lock    sync.Mutex
}

// NewPool creates a pool of size slots, DefaultPoolSize if size <= 0.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = DefaultPoolSize
	}
	if size > DefaultPoolSize {
		glog.Warningf("userdata: pool size %d, tail insertion walks the whole list", size)
	}
	p := &Pool{slots: make([]Message, size), head: none}
	for n := range p.slots {
		p.slots[n].pool = p
		p.slots[n].index = n
		p.slots[n].next = none
	}
	return p
}

// AddClient registers a client for life cycle callbacks.
func (p *Pool) AddClient(c Client) {
	p.clients = append(p.clients, c)
}

// Size returns the number of slots.
func (p *Pool) Size() int {
	return len(p.slots)
}

// Reserve claims a free slot and resets it.
// It returns StatusQFull when the pool is exhausted.
func (p *Pool) Reserve() (*Message, kns.Status) {
	p.lock.Lock()
	defer p.lock.Unlock()
	for n := range p.slots {
		m := &p.slots[n]
		if !m.Reserved {
			m.reset()
			m.Reserved = true
			return m, kns.StatusOK
		}
	}
	return nil, kns.StatusQFull
}

// Release gives back a reserved message which was never linked.
func (p *Pool) Release(m *Message) kns.Status {
	if !p.owns(m) {
		return kns.StatusBadSetting
	}
	p.lock.Lock()
	defer p.lock.Unlock()
	if m.linked {
		return kns.StatusError
	}
	m.Reserved = false
	return kns.StatusOK
}

// Link inserts a reserved message at the head (front) or tail of the list.
func (p *Pool) Link(m *Message, front bool) kns.Status {
	if st := p.insert(m, front); st != kns.StatusOK {
		return st
	}
	p.added(m)
	return kns.StatusOK
}

func (p *Pool) insert(m *Message, front bool) kns.Status {
	if !p.owns(m) {
		return kns.StatusBadSetting
	}
	p.lock.Lock()
	defer p.lock.Unlock()
	if m.linked || !m.Reserved {
		return kns.StatusError
	}
	m.linked = true
	if front || p.head == none {
		m.next = p.head
		p.head = m.index
		return kns.StatusOK
	}
	tail := p.head
	for p.slots[tail].next != none {
		tail = p.slots[tail].next
	}
	m.next = none
	p.slots[tail].next = m.index
	return kns.StatusOK
}

func (p *Pool) added(m *Message) {
	for _, c := range p.clients {
		c.Added(m)
	}
}

// Unlink removes a message from the list and frees its slot.
// Unlinking a message which is not linked is an integrity fault.
func (p *Pool) Unlink(m *Message) kns.Status {
	if !p.owns(m) {
		return kns.StatusBadSetting
	}
	if !kns.Assert(m.linked, "userdata: unlink of free slot %d", m.index) {
		return kns.StatusError
	}
	for _, c := range p.clients {
		c.TxComplete(m)
	}
	p.remove(m)
	return kns.StatusOK
}

// remove detaches a linked message and frees its slot, clients are not
// notified.
func (p *Pool) remove(m *Message) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.head == m.index {
		p.head = m.next
	} else {
		for n := p.head; n != none; n = p.slots[n].next {
			if p.slots[n].next == m.index {
				p.slots[n].next = m.next
				break
			}
		}
	}
	m.next = none
	m.linked = false
	m.Reserved = false
}

// Contains reports whether m is linked.
func (p *Pool) Contains(m *Message) bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	for n := p.head; n != none; n = p.slots[n].next {
		if &p.slots[n] == m {
			return true
		}
	}
	return false
}

// Count returns the number of linked messages.
func (p *Pool) Count() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	count := 0
	for n := p.head; n != none; n = p.slots[n].next {
		count++
	}
	return count
}

// First returns the head of the list or nil.
func (p *Pool) First() *Message {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.head == none {
		return nil
	}
	return &p.slots[p.head]
}

// FindByPayload returns the first linked message whose payload matches
// the first bitlen bits of data.
func (p *Pool) FindByPayload(data []byte, bitlen uint16) *Message {
	full, rem := int(bitlen/8), uint(bitlen%8)
	if full > MaxPayloadBytes || (full == MaxPayloadBytes && rem != 0) {
		return nil
	}
	need := full
	if rem != 0 {
		need++
	}
	if len(data) < need {
		return nil
	}
	mask := byte(0xff << (8 - rem))
	p.lock.Lock()
	defer p.lock.Unlock()
	for n := p.head; n != none; n = p.slots[n].next {
		m := &p.slots[n]
		if !bytes.Equal(m.Data[:full], data[:full]) {
			continue
		}
		if rem != 0 && m.Data[full]&mask != data[full]&mask {
			continue
		}
		return m
	}
	return nil
}

// Flush detaches every linked message and frees them.
// It returns the number of flushed messages.
func (p *Pool) Flush() int {
	p.lock.Lock()
	head := p.head
	p.head = none
	p.lock.Unlock()

	count := 0
	for n := head; n != none; {
		m := &p.slots[n]
		n = m.next
		for _, c := range p.clients {
			c.Flushed(m)
		}
		p.lock.Lock()
		m.next = none
		m.linked = false
		m.Reserved = false
		p.lock.Unlock()
		count++
	}
	glog.V(2).Infof("userdata: %d messages flushed", count)
	return count
}

func (p *Pool) owns(m *Message) bool {
	return m != nil && m.pool == p && m.index >= 0 && m.index < len(p.slots) && &p.slots[m.index] == m
}
