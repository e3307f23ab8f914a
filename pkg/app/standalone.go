package app

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/golang/glog"

	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/device"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/kns"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/mac"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/queue"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/userdata"
)

// DefaultPeriod is the pause between two standalone transmissions.
const DefaultPeriod = 60 * time.Second

type standaloneState int

const (
	stdlnInit standaloneState = iota
	stdlnWaitInit
	stdlnSend
	stdlnWaitTx
	stdlnDone
	stdlnError
)

// PayloadBits returns the payload length sent with a modulation.
func PayloadBits(m device.Modulation) (uint16, error) {
	switch m {
	case device.ModLDA2:
		return 192, nil
	case device.ModLDA2L:
		return 196, nil
	case device.ModVLDA4:
		return 24, nil
	case device.ModLDK:
		return 152, nil
	}
	return 0, fmt.Errorf("no payload length for modulation %s", m)
}

// Standalone is an application task with no host: it starts the MAC
// profile of the settings then periodically sends random payloads.
type Standalone struct {
	Settings *device.Store
	Pool     *userdata.Pool
	Queues   *queue.Set
	// Period is the pause between transmissions, DefaultPeriod when zero.
	Period time.Duration
	// Count stops after that many completed transmissions, 0 runs forever.
	Count int

	state  standaloneState
	rand   *rand.Rand
	nextTx time.Time
	done   int
	failed int
}

// NewStandalone creates a Standalone task, seed feeds the payload generator.
func NewStandalone(settings *device.Store, pool *userdata.Pool, queues *queue.Set, seed int64) *Standalone {
	return &Standalone{
		Settings: settings,
		Pool:     pool,
		Queues:   queues,
		rand:     rand.New(rand.NewSource(seed)),
	}
}

// Done returns the number of transmissions completed.
func (s *Standalone) Done() int {
	return s.done
}

// Failed returns the number of transmissions which failed.
func (s *Standalone) Failed() int {
	return s.failed
}

// Finished reports whether Count transmissions completed.
func (s *Standalone) Finished() bool {
	return s.state == stdlnDone
}

// Poll implements framework.Task.
func (s *Standalone) Poll(ctx context.Context) error {
	switch s.state {
	case stdlnInit:
		settings := s.Settings.Get()
		evt := mac.AppEvent{ID: mac.AppEvtInit, Profile: settings.Profile, Blind: settings.Blind}
		if st := mac.PushAppEvent(s.Queues, evt); st != kns.StatusOK {
			return nil
		}
		s.state = stdlnWaitInit
	case stdlnWaitInit:
		evt, st := mac.PopServiceEvent(s.Queues)
		if st != kns.StatusOK {
			return nil
		}
		switch {
		case evt.ID == mac.SrvcEvtOK && evt.AppEvt == mac.AppEvtInit:
			glog.Info("standalone: MAC profile init OK")
			s.state = stdlnSend
		case evt.ID == mac.SrvcEvtError:
			s.state = stdlnError
			return fmt.Errorf("standalone: MAC profile init error")
		}
	case stdlnSend:
		if time.Now().Before(s.nextTx) {
			return nil
		}
		return s.send()
	case stdlnWaitTx:
		for {
			evt, st := mac.PopServiceEvent(s.Queues)
			if st != kns.StatusOK {
				return nil
			}
			s.handleTx(&evt)
		}
	}
	return nil
}

func (s *Standalone) send() error {
	bitlen, err := PayloadBits(s.Settings.Get().Radio.Modulation)
	if err != nil {
		s.state = stdlnError
		return err
	}
	data := make([]byte, (bitlen+7)/8)
	s.rand.Read(data)
	if _, st := userdata.Submit(s.Pool, s.Queues, data, bitlen, userdata.MakeAttr(mac.SFNone, true)); st != kns.StatusOK {
		glog.Warningf("standalone: send error: %v", st)
		return nil
	}
	glog.V(2).Infof("standalone: request to send %X", data)
	s.state = stdlnWaitTx
	return nil
}

func (s *Standalone) handleTx(evt *mac.ServiceEvent) {
	msg := userdata.Resolve(s.Pool, evt)
	switch evt.ID {
	case mac.SrvcEvtOK:
		glog.V(2).Infof("standalone: OK to send %X", evt.Payload())
		return
	case mac.SrvcEvtTxDone:
		glog.Infof("standalone: TX done for %X", evt.Payload())
		s.done++
	case mac.SrvcEvtTxTimeout, mac.SrvcEvtError:
		glog.Warningf("standalone: %s for %X", evt.ID, evt.Payload())
		s.failed++
	default:
		return
	}
	if msg != nil {
		s.Pool.Unlink(msg)
	}
	s.state = stdlnSend
	if s.Count > 0 && s.done+s.failed >= s.Count {
		s.state = stdlnDone
		return
	}
	period := s.Period
	if period == 0 {
		period = DefaultPeriod
	}
	s.nextTx = time.Now().Add(period)
}
