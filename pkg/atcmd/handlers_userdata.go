package atcmd

import (
	"github.com/golang/glog"

	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/kns"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/userdata"
)

// maxTxDigits is the longest user data accepted by AT+TX in hex digits.
const maxTxDigits = userdata.MaxPayloadBytes*2 - 1

// handleTx queues "AT+TX=<hex>[,0x<attr>]". The reply comes with the MAC
// completion event.
func handleTx(m *Manager, raw []byte, mode Mode) bool {
	if mode == ModeStatus {
		return m.fail(ErrUnknownATCmd)
	}
	msg, st := m.Pool.Reserve()
	if st != kns.StatusOK {
		glog.V(2).Infof("atcmd: no free user data slot")
		return m.fail(ErrDataQueueFull)
	}

	sc := newScanner(raw)
	digits, ok := "", sc.literal("AT+TX=")
	if ok {
		digits, ok = sc.hex(maxTxDigits)
	}
	if !ok {
		m.Pool.Release(msg)
		return m.fail(ErrMissingParameters)
	}
	var attr uint64
	if sc.literal(",0x") {
		attr, _ = sc.hexUint(8)
	}

	data, bitlen := AsciiToBits(digits)
	if bitlen > userdata.MaxPayloadBits {
		m.Pool.Release(msg)
		return m.fail(ErrInvalidUserDataLength)
	}
	msg.SetPayload(data, uint16(bitlen))
	msg.Attr = userdata.Attr(attr)

	switch st := userdata.Commit(m.Pool, m.Queues, msg); st {
	case kns.StatusOK:
		return true
	case kns.StatusQFull:
		return m.fail(ErrDataQueueFull)
	case kns.StatusBadLen:
		return m.fail(ErrInvalidUserDataLength)
	default:
		return m.fail(ErrUnknown)
	}
}
