package userdata

import (
	"github.com/golang/glog"

	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/kns"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/mac"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/queue"
)

// Commit links a reserved and filled message at the front of the pool and
// pushes SEND_DATA to the MAC. Clients learn about the message once it is
// queued. On push failure the slot is freed silently and the push status
// returned.
func Commit(p *Pool, q *queue.Set, m *Message) kns.Status {
	if m.BitLen > MaxPayloadBits {
		p.Release(m)
		return kns.StatusBadLen
	}
	if st := p.insert(m, true); st != kns.StatusOK {
		return st
	}
	evt := mac.NewSendData(m.Payload(), m.BitLen, m.Attr.Flag())
	if st := mac.PushAppEvent(q, evt); st != kns.StatusOK {
		glog.Warningf("userdata: SEND_DATA not queued: %v", st)
		p.remove(m)
		return st
	}
	p.added(m)
	return kns.StatusOK
}

// Submit reserves a message for payload and commits it.
// It returns StatusQFull when no slot is free.
func Submit(p *Pool, q *queue.Set, payload []byte, bitlen uint16, attr Attr) (*Message, kns.Status) {
	m, st := p.Reserve()
	if st != kns.StatusOK {
		return nil, st
	}
	m.SetPayload(payload, bitlen)
	m.Attr = attr
	if st = Commit(p, q, m); st != kns.StatusOK {
		return nil, st
	}
	return m, kns.StatusOK
}

// Resolve returns the linked message a MAC event refers to.
// Events carrying an uplink context must match a linked message, a miss
// is an integrity fault.
func Resolve(p *Pool, evt *mac.ServiceEvent) *Message {
	if !evt.ID.HasTxContext() && !(evt.ID == mac.SrvcEvtError && evt.AppEvt == mac.AppEvtSendData) {
		return nil
	}
	m := p.FindByPayload(evt.Data[:], evt.BitLen)
	kns.Assert(m != nil, "userdata: %s for unknown payload %X", evt.ID, evt.Payload())
	return m
}
