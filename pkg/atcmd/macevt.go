package atcmd

import (
	"github.com/golang/glog"

	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/device"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/kns"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/mac"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/userdata"
)

// MacEvtProcess pops one MAC2APP event and reports it to the host.
// It returns StatusQEmpty when there is no event.
func (m *Manager) MacEvtProcess() kns.Status {
	evt, st := mac.PopServiceEvent(m.Queues)
	if st != kns.StatusOK {
		return st
	}
	glog.V(2).Infof("atcmd: MAC event %s (app %s, %d bits)", evt.ID, evt.AppEvt, evt.BitLen)

	msg := userdata.Resolve(m.Pool, &evt)
	switch evt.ID {
	case mac.SrvcEvtTxDone:
		if msg == nil || msg.Attr.Flag() == mac.SFMailRequest {
			// the mail request completes with TXACK_DONE
			return kns.StatusOK
		}
		m.reportTx(0, msg)
		m.Pool.Unlink(msg)
	case mac.SrvcEvtTxAckDone:
		if msg == nil {
			return kns.StatusError
		}
		if msg.Attr.Flag() == mac.SFMailRequest {
			m.reportTx(0, msg)
		} else {
			m.Transport.Send("+TXACK=0\r\n")
		}
		m.Pool.Unlink(msg)
	case mac.SrvcEvtTxTimeout:
		if msg == nil {
			return kns.StatusError
		}
		m.reportTx(1, msg)
		m.Pool.Unlink(msg)
		return kns.StatusTimeout
	case mac.SrvcEvtTxAckTimeout:
		if msg == nil {
			return kns.StatusError
		}
		m.Transport.Send("+TXACK=1\r\n")
		m.Pool.Unlink(msg)
		return kns.StatusTimeout
	case mac.SrvcEvtRxError:
		if msg == nil || !msg.Reserved {
			return kns.StatusError
		}
		m.reportTx(1, msg)
		m.Pool.Unlink(msg)
		return kns.StatusTrErr
	case mac.SrvcEvtRxTimeout:
		if msg == nil {
			return kns.StatusError
		}
		m.reportTx(int(ErrRxTimeout), msg)
		m.Pool.Unlink(msg)
		return kns.StatusTimeout
	case mac.SrvcEvtDlBC, mac.SrvcEvtDlAck:
		m.Transport.Send("+DL=")
		m.Transport.SendBuffer(evt.Data[:], int(evt.BitLen))
		m.Transport.Send("\r\n")
	case mac.SrvcEvtRxReceived:
		m.Transport.Send("+RX=")
		m.Transport.SendBuffer(evt.Data[:], int(evt.BitLen))
		m.Transport.Send("\r\n")
	case mac.SrvcEvtSatDetected:
		m.Transport.Send("+SATDET=\r\n")
	case mac.SrvcEvtSatLost:
		m.Transport.Send("+SATLOST=\r\n")
	case mac.SrvcEvtOK:
		m.ok()
		switch evt.AppEvt {
		case mac.AppEvtStopSendData:
			m.Pool.Flush()
		case mac.AppEvtInit:
			m.recordProfile()
		}
	case mac.SrvcEvtError:
		m.fail(ConvStatus(kns.StatusError))
		switch evt.AppEvt {
		case mac.AppEvtSendData:
			if msg != nil {
				m.Pool.Unlink(msg)
			}
		case mac.AppEvtInit:
			m.pendingInit = nil
		}
		return kns.StatusError
	default:
		kns.Assert(false, "atcmd: unexpected MAC event %s", evt.ID)
		return kns.StatusError
	}
	return kns.StatusOK
}

func (m *Manager) reportTx(code int, msg *userdata.Message) {
	m.Transport.Send("+TX=%d,", code)
	m.Transport.SendBuffer(msg.Data[:], int(msg.BitLen))
	m.Transport.Send("\r\n")
}

func (m *Manager) recordProfile() {
	if m.pendingInit == nil {
		return
	}
	evt := *m.pendingInit
	m.pendingInit = nil
	m.Settings.Update(func(s *device.Settings) {
		s.Profile = evt.Profile
		s.Blind = evt.Blind
	})
}
