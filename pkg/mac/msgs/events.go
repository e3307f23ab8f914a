package msgs

import (
	"fmt"

	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/mac"
)

// FromAppEvent converts an APP2MAC element.
func FromAppEvent(evt mac.AppEvent) *AppEventMsg {
	m := &AppEventMsg{Id: uint32(evt.ID), BitLen: uint32(evt.BitLen)}
	if evt.ID == mac.AppEvtInit {
		m.Profile = uint32(evt.Profile)
		m.RetxNb = int32(evt.Blind.RetxNb)
		m.NbParallel = uint32(evt.Blind.NbParallel)
		m.RetxPeriodS = evt.Blind.RetxPeriodS
	} else {
		m.Flag = uint32(evt.Flag)
		m.Data = append([]byte(nil), evt.Payload()...)
	}
	return m
}

// AppEvent converts the message back into an APP2MAC element.
func (m *AppEventMsg) AppEvent() (mac.AppEvent, error) {
	if m.BitLen > mac.MaxUserDataBits || len(m.Data) > mac.MaxUserDataBytes {
		return mac.AppEvent{}, fmt.Errorf("app event: %d bits, %d bytes exceed payload", m.BitLen, len(m.Data))
	}
	evt := mac.AppEvent{
		ID:     mac.AppEventID(m.Id),
		Flag:   mac.ServiceFlag(m.Flag),
		BitLen: uint16(m.BitLen),
	}
	if evt.ID == mac.AppEvtInit {
		evt.Profile = mac.ProfileID(m.Profile)
		evt.Blind = mac.BlindConfig{
			RetxNb:      int8(m.RetxNb),
			NbParallel:  uint8(m.NbParallel),
			RetxPeriodS: m.RetxPeriodS,
		}
	}
	copy(evt.Data[:], m.Data)
	return evt, nil
}

// FromServiceEvent converts a MAC2APP element.
func FromServiceEvent(evt mac.ServiceEvent) *ServiceEventMsg {
	return &ServiceEventMsg{
		Id:     uint32(evt.ID),
		AppEvt: uint32(evt.AppEvt),
		BitLen: uint32(evt.BitLen),
		BcMc:   uint32(evt.BcMc),
		Data:   append([]byte(nil), evt.Payload()...),
	}
}

// ServiceEvent converts the message back into a MAC2APP element.
func (m *ServiceEventMsg) ServiceEvent() (mac.ServiceEvent, error) {
	if m.BitLen > mac.DownlinkFrameBytes*8 || len(m.Data) > mac.DownlinkFrameBytes {
		return mac.ServiceEvent{}, fmt.Errorf("service event: %d bits, %d bytes exceed frame", m.BitLen, len(m.Data))
	}
	evt := mac.ServiceEvent{
		ID:     mac.ServiceEventID(m.Id),
		AppEvt: mac.AppEventID(m.AppEvt),
		BitLen: uint16(m.BitLen),
		BcMc:   uint16(m.BcMc),
	}
	copy(evt.Data[:], m.Data)
	return evt, nil
}

// Describe returns a one line description of a bridged message.
func Describe(msg Message) string {
	switch m := msg.(type) {
	case *AppEventMsg:
		return fmt.Sprintf("APP %s flag=%d bits=%d data=%X", mac.AppEventID(m.Id), m.Flag, m.BitLen, m.Data)
	case *ServiceEventMsg:
		return fmt.Sprintf("SRVC %s/%s bits=%d data=%X", mac.ServiceEventID(m.Id), mac.AppEventID(m.AppEvt), m.BitLen, m.Data)
	case *CommandErr:
		return "ERR " + m.Message
	}
	return fmt.Sprintf("%T", msg)
}
