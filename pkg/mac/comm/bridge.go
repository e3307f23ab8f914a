package comm

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/framework"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/kns"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/mac"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/mac/msgs"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/queue"
)

// recentSize bounds the application events remembered for error replies.
const recentSize = 2 * mac.QueueCapacity

type sentEvent struct {
	seq uint32
	evt mac.AppEvent
}

// Bridge is a MAC backend forwarding application events to a remote stack.
// Poll is the MAC scheduler task; Run receives the service events of the
// stack and queues them into MAC2APP.
type Bridge struct {
	Queues *queue.Set
	// Wake is called once a service event is queued.
	Wake func()

	pipe   Pipe
	seq    uint32
	recent [recentSize]sentEvent
	next   int
	lock   sync.Mutex
	// ERROR replies of failed sends, owned by the scheduler task.
	outbox []mac.ServiceEvent
}

// NewBridge creates a Bridge over rw.
func NewBridge(queues *queue.Set, rw PacketReadWriter) *Bridge {
	b := &Bridge{Queues: queues}
	b.pipe.ReadWriter = rw
	b.pipe.Handler = b.handleMsg
	return b
}

// Name implements framework.Named.
func (b *Bridge) Name() string {
	return "mac-bridge"
}

// Poll implements framework.Task. It never waits for MAC2APP space: the
// ERROR reply of a failed send stays in the outbox until a later Poll.
func (b *Bridge) Poll(ctx context.Context) error {
	for i := 0; i < mac.QueueCapacity && b.flush(); i++ {
		evt, st := mac.PopAppEvent(b.Queues)
		if st != kns.StatusOK {
			break
		}
		b.forward(evt)
	}
	b.flush()
	return nil
}

// Pending reports whether ERROR replies are waiting for MAC2APP space.
func (b *Bridge) Pending() bool {
	return len(b.outbox) > 0
}

// flush queues the outbox, it reports whether the outbox is empty.
func (b *Bridge) flush() bool {
	for len(b.outbox) > 0 {
		if mac.PushServiceEvent(b.Queues, b.outbox[0]) != kns.StatusOK {
			return false
		}
		b.outbox = b.outbox[1:]
		b.wake()
	}
	return true
}

func (b *Bridge) forward(evt mac.AppEvent) {
	b.lock.Lock()
	b.seq++
	if b.seq == 0 {
		b.seq++
	}
	seq := b.seq
	b.recent[b.next] = sentEvent{seq: seq, evt: evt}
	b.next = (b.next + 1) % recentSize
	b.lock.Unlock()

	glog.V(2).Infof("bridge: -> %s seq=%d", evt.ID, seq)
	if err := b.pipe.Send(msgs.FromAppEvent(evt), seq); err != nil {
		glog.Errorf("bridge: send %s error: %v", evt.ID, err)
		b.outbox = append(b.outbox, failed(evt))
	}
}

// Run implements Runnable.
func (b *Bridge) Run(ctx context.Context) error {
	return framework.RunWithContextCancel(ctx, func() { b.pipe.Close() }, func() error {
		return b.pipe.Run(ctx)
	})
}

func (b *Bridge) handleMsg(ctx context.Context, msg msgs.Message, typed *msgs.Typed) error {
	switch m := msg.(type) {
	case *msgs.ServiceEventMsg:
		evt, err := m.ServiceEvent()
		if err != nil {
			glog.Warningf("bridge: %v", err)
			return nil
		}
		glog.V(2).Infof("bridge: <- %s/%s", evt.ID, evt.AppEvt)
		b.deliver(ctx, evt)
	case *msgs.CommandErr:
		glog.Warningf("bridge: stack rejected seq=%d: %s", typed.Sequence, m.Message)
		if evt, ok := b.lookup(typed.Sequence); ok {
			b.deliver(ctx, failed(evt))
		}
	default:
		glog.Warningf("bridge: unexpected %s", msgs.Describe(msg))
	}
	return nil
}

func (b *Bridge) lookup(seq uint32) (mac.AppEvent, bool) {
	b.lock.Lock()
	defer b.lock.Unlock()
	for _, sent := range b.recent {
		if sent.seq == seq && seq != 0 {
			return sent.evt, true
		}
	}
	return mac.AppEvent{}, false
}

// deliver waits for the application to free a MAC2APP slot. It runs on
// the receive goroutine only, the scheduler keeps running meanwhile.
func (b *Bridge) deliver(ctx context.Context, evt mac.ServiceEvent) {
	for mac.PushServiceEvent(b.Queues, evt) == kns.StatusQFull {
		b.wake()
		select {
		case <-ctx.Done():
			glog.Warningf("bridge: %s/%s dropped", evt.ID, evt.AppEvt)
			return
		case <-time.After(time.Millisecond):
		}
	}
	b.wake()
}

func (b *Bridge) wake() {
	if b.Wake != nil {
		b.Wake()
	}
}

// failed is the ERROR reply of an application event the stack did not get.
func failed(evt mac.AppEvent) mac.ServiceEvent {
	if evt.ID == mac.AppEvtSendData {
		return mac.NewTxEvent(mac.SrvcEvtError, evt.ID, evt.Payload(), evt.BitLen)
	}
	return mac.ServiceEvent{ID: mac.SrvcEvtError, AppEvt: evt.ID}
}
