package mac

import (
	"github.com/golang/glog"

	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/kns"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/queue"
)

// Queue handles of the MAC queue set. Order is also the service rank.
const (
	QueueSrvc2Mac queue.Handle = iota
	QueueMac2App
	QueueApp2Mac
)

// QueueCapacity is the capacity of every MAC queue (3 usable slots).
const QueueCapacity = 4

// QueueConfigs returns the declared geometry of the MAC queues.
func QueueConfigs() []queue.Config {
	return []queue.Config{
		{Handle: QueueSrvc2Mac, Name: "SRVC2MAC", Rank: 0, Capacity: QueueCapacity, ElemSize: InternalEventSize},
		{Handle: QueueMac2App, Name: "MAC2APP", Rank: 1, Capacity: QueueCapacity, ElemSize: ServiceEventSize},
		{Handle: QueueApp2Mac, Name: "APP2MAC", Rank: 2, Capacity: QueueCapacity, ElemSize: AppEventSize},
	}
}

// NewQueueSet declares and creates the MAC queues.
func NewQueueSet(backend queue.Backend) (*queue.Set, error) {
	s, err := queue.NewSet(backend, QueueConfigs()...)
	if err != nil {
		return nil, err
	}
	if st := s.CreateAll(); st != kns.StatusOK {
		return nil, st
	}
	return s, nil
}

// PushAppEvent pushes evt into APP2MAC.
func PushAppEvent(q *queue.Set, evt AppEvent) kns.Status {
	b, _ := evt.MarshalBinary()
	st := q.Push(QueueApp2Mac, b)
	glog.V(2).Infof("APP2MAC <- %s: %s", evt.ID, st)
	return st
}

// PopAppEvent pops the next APP2MAC event.
func PopAppEvent(q *queue.Set) (evt AppEvent, st kns.Status) {
	b := make([]byte, AppEventSize)
	if st = q.Pop(QueueApp2Mac, b); st == kns.StatusOK {
		evt.UnmarshalBinary(b)
	}
	return
}

// PushServiceEvent pushes evt into MAC2APP.
func PushServiceEvent(q *queue.Set, evt ServiceEvent) kns.Status {
	b, _ := evt.MarshalBinary()
	st := q.Push(QueueMac2App, b)
	glog.V(2).Infof("MAC2APP <- %s/%s: %s", evt.ID, evt.AppEvt, st)
	return st
}

// PopServiceEvent pops the next MAC2APP event.
func PopServiceEvent(q *queue.Set) (evt ServiceEvent, st kns.Status) {
	b := make([]byte, ServiceEventSize)
	if st = q.Pop(QueueMac2App, b); st == kns.StatusOK {
		evt.UnmarshalBinary(b)
	}
	return
}

// PushInternalEvent pushes evt into SRVC2MAC.
func PushInternalEvent(q *queue.Set, evt InternalEvent) kns.Status {
	b, _ := evt.MarshalBinary()
	return q.Push(QueueSrvc2Mac, b)
}

// PopInternalEvent pops the next SRVC2MAC event.
func PopInternalEvent(q *queue.Set) (evt InternalEvent, st kns.Status) {
	b := make([]byte, InternalEventSize)
	if st = q.Pop(QueueSrvc2Mac, b); st == kns.StatusOK {
		evt.UnmarshalBinary(b)
	}
	return
}
