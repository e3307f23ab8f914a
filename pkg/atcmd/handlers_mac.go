package atcmd

import (
	"fmt"
	"strings"

	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/kns"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/mac"
)

func handleKMAC(m *Manager, raw []byte, mode Mode) bool {
	if mode == ModeStatus {
		s := m.Settings.Get()
		var sb strings.Builder
		fmt.Fprintf(&sb, "+KMAC=%d,", s.Profile)
		for _, b := range s.Blind.Bytes() {
			fmt.Fprintf(&sb, "%02X", b)
		}
		sb.WriteString("\r\n")
		m.Transport.Send("%s", sb.String())
		return true
	}

	sc := newScanner(raw)
	if !sc.literal("AT+KMAC=") {
		return m.fail(ErrParameterFormat)
	}
	id, ok := sc.decimal()
	if !ok {
		return m.fail(ErrParameterFormat)
	}
	evt := mac.AppEvent{ID: mac.AppEvtInit, Profile: mac.ProfileID(id)}
	if sc.literal(",") {
		ctx, ok := sc.hex(12)
		if !ok {
			return m.fail(ErrParameterFormat)
		}
		cfg := make([]byte, 6)
		data, _ := AsciiToBits(ctx)
		copy(cfg, data)
		evt.Blind = mac.ParseBlindConfig(cfg)
	}

	switch st := mac.PushAppEvent(m.Queues, evt); st {
	case kns.StatusOK:
		m.pendingInit = &evt
		return true
	case kns.StatusQFull:
		return m.fail(ErrDataQueueFull)
	default:
		return m.fail(ErrUnknown)
	}
}

func handleRx(m *Manager, raw []byte, mode Mode) bool {
	if mode == ModeStatus {
		return m.fail(ErrUnknownATCmd)
	}
	sc := newScanner(raw)
	if !sc.literal("AT+RX=") {
		return m.fail(ErrParameterFormat)
	}
	v, ok := sc.decimal()
	if !ok {
		return m.fail(ErrParameterFormat)
	}
	var evt mac.AppEvent
	switch v {
	case 0:
		evt.ID = mac.AppEvtRxStop
	case 1:
		evt.ID = mac.AppEvtRxStart
	default:
		return m.fail(ErrIncompatibleValue)
	}
	switch st := mac.PushAppEvent(m.Queues, evt); st {
	case kns.StatusOK:
		return true
	case kns.StatusQFull:
		return m.fail(ErrDataQueueFull)
	default:
		return m.fail(ErrUnknown)
	}
}
