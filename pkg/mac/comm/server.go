package comm

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/framework"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/kns"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/mac"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/mac/msgs"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/queue"
)

// Server hosts a MAC on the stack side of a bridge. Application events
// received from the device are queued into APP2MAC of its own queue set,
// service events produced by the MAC are sent back.
type Server struct {
	Queues *queue.Set
	MAC    framework.Task

	pipe  Pipe
	sched *framework.Scheduler
}

// NewServer creates a Server running m over queues.
func NewServer(queues *queue.Set, m framework.Task, rw PacketReadWriter) *Server {
	s := &Server{Queues: queues, MAC: m, sched: framework.NewScheduler()}
	s.pipe.ReadWriter = rw
	s.pipe.Handler = s.handleMsg
	s.sched.Idle = func() bool { return !queues.IsDataInAnyQueue() }
	return s
}

// NewLoopbackServer creates a Server hosting a Loopback MAC over a fresh
// queue set.
func NewLoopbackServer(backend queue.Backend, txDelay time.Duration, rw PacketReadWriter) (*Server, *mac.Loopback, error) {
	queues, err := mac.NewQueueSet(backend)
	if err != nil {
		return nil, nil, err
	}
	lb := mac.NewLoopback(queues)
	lb.TxDelay = txDelay
	s := NewServer(queues, lb, rw)
	lb.Wake = s.Wake
	return s, lb, nil
}

// Wake triggers a scheduler pass, MAC completions should call it.
func (s *Server) Wake() {
	s.sched.TriggerNext()
}

// Run implements Runnable.
func (s *Server) Run(ctx context.Context) error {
	var errs framework.AggregatedError
	errs.Add(s.sched.Register(framework.SlotMAC, s.MAC).Err())
	errs.Add(s.sched.RegisterFunc(framework.SlotApp, s.forward).Err())
	if err := errs.Aggregate(); err != nil {
		return err
	}

	return framework.NewRunnerWith(ctx).
		FailFast().
		Go(framework.WithCloser(framework.NamedRun("mac-pipe", &s.pipe), &s.pipe)).
		Go(framework.NamedRun("mac-scheduler", s.sched)).
		Wait()
}

func (s *Server) forward(ctx context.Context) error {
	for i := 0; i < mac.QueueCapacity; i++ {
		evt, st := mac.PopServiceEvent(s.Queues)
		if st != kns.StatusOK {
			break
		}
		if err := s.pipe.Send(msgs.FromServiceEvent(evt), 0); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) handleMsg(ctx context.Context, msg msgs.Message, typed *msgs.Typed) error {
	m, ok := msg.(*msgs.AppEventMsg)
	if !ok {
		glog.Warningf("mac server: unexpected %s", msgs.Describe(msg))
		return nil
	}
	evt, err := m.AppEvent()
	if err != nil {
		return s.pipe.Send(msgs.NewCommandErr(err), typed.Sequence)
	}
	for mac.PushAppEvent(s.Queues, evt) == kns.StatusQFull {
		s.Wake()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
	s.Wake()
	return nil
}
