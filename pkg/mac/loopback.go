package mac

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/kns"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/queue"
)

// DefaultTxDelay is the simulated duration of an uplink transmission.
const DefaultTxDelay = 200 * time.Millisecond

// Loopback is an in-process MAC. It acknowledges application events and
// completes uplink transmissions after a simulated radio delay. It runs
// as a scheduler task, the radio completion is delivered from a timer
// goroutine through the SRVC2MAC queue.
type Loopback struct {
	Queues *queue.Set
	// TxDelay is the radio delay, DefaultTxDelay when zero.
	TxDelay time.Duration
	// Outcome is the completion reported for uplinks, TX_DONE when zero.
	Outcome ServiceEventID
	// Wake is called once a radio completion is queued.
	Wake func()

	profile ProfileID
	blind   BlindConfig
	inited  bool
	rxOn    bool
	seq     uint32
	pending map[uint32]AppEvent
	outbox  []ServiceEvent
}

// NewLoopback creates a Loopback MAC over the MAC queue set.
func NewLoopback(queues *queue.Set) *Loopback {
	return &Loopback{Queues: queues, pending: make(map[uint32]AppEvent)}
}

// Name implements framework.Named.
func (l *Loopback) Name() string {
	return "loopback-mac"
}

// Profile returns the profile configured by the last successful INIT.
func (l *Loopback) Profile() (ProfileID, BlindConfig, bool) {
	return l.profile, l.blind, l.inited
}

// Receiving reports whether downlink reception is enabled.
func (l *Loopback) Receiving() bool {
	return l.rxOn
}

// Poll implements framework.Task. Radio completions are always taken
// from SRVC2MAC, even when MAC2APP is full: the application cannot pop
// MAC2APP while the higher ranked SRVC2MAC holds data.
func (l *Loopback) Poll(ctx context.Context) error {
	for {
		evt, st := PopInternalEvent(l.Queues)
		if st != kns.StatusOK {
			break
		}
		l.handleInternal(evt)
	}
	if !l.flush() {
		return nil
	}
	evt, st := PopAppEvent(l.Queues)
	if st != kns.StatusOK {
		return nil
	}
	l.handleApp(evt)
	l.flush()
	return nil
}

// flush pushes queued service events, it reports whether the outbox is empty.
func (l *Loopback) flush() bool {
	for len(l.outbox) > 0 {
		if st := PushServiceEvent(l.Queues, l.outbox[0]); st != kns.StatusOK {
			return false
		}
		l.outbox = l.outbox[1:]
	}
	return true
}

func (l *Loopback) emit(evts ...ServiceEvent) {
	l.outbox = append(l.outbox, evts...)
}

func (l *Loopback) handleApp(evt AppEvent) {
	glog.V(2).Infof("loopback: %s", evt.ID)
	switch evt.ID {
	case AppEvtInit:
		if evt.Profile >= ProfileMax {
			l.emit(ServiceEvent{ID: SrvcEvtError, AppEvt: AppEvtInit})
			return
		}
		if evt.Profile == ProfileBlind {
			if err := evt.Blind.Validate(); err != nil {
				glog.Warningf("loopback: %v", err)
				l.emit(ServiceEvent{ID: SrvcEvtError, AppEvt: AppEvtInit})
				return
			}
		}
		l.profile, l.blind, l.inited = evt.Profile, evt.Blind, true
		l.emit(ServiceEvent{ID: SrvcEvtOK, AppEvt: AppEvtInit})
	case AppEvtSendData:
		if !l.inited || evt.BitLen == 0 || evt.BitLen > MaxUserDataBits {
			l.emit(NewTxEvent(SrvcEvtError, AppEvtSendData, evt.Payload(), evt.BitLen))
			return
		}
		l.seq++
		l.pending[l.seq] = evt
		l.emit(NewTxEvent(SrvcEvtOK, AppEvtSendData, evt.Payload(), evt.BitLen))
		l.armRadio(l.seq)
	case AppEvtStopSendData:
		for seq := range l.pending {
			delete(l.pending, seq)
		}
		l.emit(ServiceEvent{ID: SrvcEvtOK, AppEvt: AppEvtStopSendData})
	case AppEvtRxStart:
		l.rxOn = true
		l.emit(ServiceEvent{ID: SrvcEvtOK, AppEvt: AppEvtRxStart})
	case AppEvtRxStop:
		l.rxOn = false
		l.emit(ServiceEvent{ID: SrvcEvtOK, AppEvt: AppEvtRxStop})
	default:
		l.emit(ServiceEvent{ID: SrvcEvtError, AppEvt: evt.ID})
	}
}

func (l *Loopback) handleInternal(evt InternalEvent) {
	switch evt.Kind {
	case InternalRadioDone:
		tx, ok := l.pending[evt.Seq]
		if !ok {
			glog.V(2).Infof("loopback: radio done for aborted tx %d", evt.Seq)
			return
		}
		delete(l.pending, evt.Seq)
		l.complete(tx, evt.Seq)
	case InternalSatDetected:
		l.emit(ServiceEvent{ID: SrvcEvtSatDetected})
	}
}

func (l *Loopback) complete(tx AppEvent, seq uint32) {
	data, bitlen := tx.Payload(), tx.BitLen
	outcome := l.Outcome
	if outcome == SrvcEvtNone {
		outcome = SrvcEvtTxDone
	}
	if outcome != SrvcEvtTxDone {
		l.emit(NewTxEvent(outcome, AppEvtSendData, data, bitlen))
		return
	}
	if tx.Flag != SFMailRequest {
		l.emit(NewTxEvent(SrvcEvtTxDone, AppEvtSendData, data, bitlen))
		return
	}
	// a mail request is answered by a downlink beacon, the uplink ack then
	// closes the transaction
	beacon := ServiceEvent{ID: SrvcEvtDlBC, AppEvt: AppEvtSendData, BitLen: 16, BcMc: uint16(seq)}
	beacon.Data[0], beacon.Data[1] = 0xBC, byte(seq)
	l.emit(
		NewTxEvent(SrvcEvtTxDone, AppEvtSendData, data, bitlen),
		beacon,
		NewTxEvent(SrvcEvtTxAckDone, AppEvtSendData, data, bitlen),
	)
}

func (l *Loopback) armRadio(seq uint32) {
	delay := l.TxDelay
	if delay == 0 {
		delay = DefaultTxDelay
	}
	var fire func()
	fire = func() {
		if PushInternalEvent(l.Queues, InternalEvent{Kind: InternalRadioDone, Seq: seq}) != kns.StatusOK {
			time.AfterFunc(delay, fire)
			return
		}
		if l.Wake != nil {
			l.Wake()
		}
	}
	time.AfterFunc(delay, fire)
}
