package spicmd

import (
	"github.com/golang/glog"

	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/device"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/kns"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/mac"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/userdata"
)

// MacEvtProcess pops one MAC2APP event and updates the MAC status byte
// read by the host. It returns StatusQEmpty when there is no event.
func (m *Machine) MacEvtProcess() kns.Status {
	evt, st := mac.PopServiceEvent(m.Queues)
	if st != kns.StatusOK {
		return st
	}
	glog.V(2).Infof("spicmd: MAC event %s (app %s)", evt.ID, evt.AppEvt)

	msg := userdata.Resolve(m.Pool, &evt)
	if evt.ID.HasTxContext() && msg == nil {
		m.macStatus = MacError
		return kns.StatusError
	}
	switch evt.ID {
	case mac.SrvcEvtTxDone:
		if msg.Attr.Flag() != mac.SFMailRequest {
			m.macStatus = MacTxDone
			m.Pool.Unlink(msg)
		}
	case mac.SrvcEvtTxAckDone:
		m.macStatus = MacTxAckDone
		m.Pool.Unlink(msg)
	case mac.SrvcEvtTxTimeout:
		m.macStatus = MacTxTimeout
		m.Pool.Unlink(msg)
		return kns.StatusTimeout
	case mac.SrvcEvtTxAckTimeout:
		m.macStatus = MacTxAckTimeout
		m.Pool.Unlink(msg)
		return kns.StatusTimeout
	case mac.SrvcEvtRxError:
		if !msg.Reserved {
			m.macStatus = MacError
			return kns.StatusError
		}
		m.macStatus = MacRxError
		m.Pool.Unlink(msg)
		return kns.StatusTrErr
	case mac.SrvcEvtRxTimeout:
		m.macStatus = MacRxTimeout
		m.Pool.Unlink(msg)
		return kns.StatusTimeout
	case mac.SrvcEvtDlBC, mac.SrvcEvtDlAck, mac.SrvcEvtRxReceived,
		mac.SrvcEvtSatDetected, mac.SrvcEvtSatLost:
		// no downlink read command on the binary link
	case mac.SrvcEvtOK:
		m.macStatus = MacOK
		switch evt.AppEvt {
		case mac.AppEvtStopSendData:
			m.Pool.Flush()
		case mac.AppEvtInit:
			m.initDone(true)
		}
	case mac.SrvcEvtError:
		m.macStatus = MacError
		switch evt.AppEvt {
		case mac.AppEvtSendData:
			if msg != nil {
				m.Pool.Unlink(msg)
			}
		case mac.AppEvtInit:
			m.initDone(false)
		}
		return kns.StatusError
	default:
		kns.Assert(false, "spicmd: unexpected MAC event %s", evt.ID)
		m.macStatus = MacError
		return kns.StatusError
	}
	return kns.StatusOK
}

// initDone answers a WRITE_KMAC waiting for the MAC.
func (m *Machine) initDone(ok bool) {
	evt := m.pendingInit
	m.pendingInit = nil
	if ok && evt != nil {
		m.Settings.Update(func(s *device.Settings) {
			s.Profile = evt.Profile
			s.Blind = evt.Blind
		})
	}
	if m.state != StateWaitingMacEvt {
		return
	}
	reply := ack()
	if !ok {
		reply = Nack()
	}
	if err := m.apply(reply, CmdNone); err != nil {
		glog.Errorf("spicmd: KMAC reply error: %v", err)
	}
}
