// Package mac defines the events exchanged with the satellite MAC stack,
// the queues carrying them and an in-process loopback MAC.
package mac

import (
	"encoding/binary"
	"fmt"
)

// Payload sizes.
const (
	// MaxUserDataBytes is the largest uplink payload (24.5 bytes rounded up).
	MaxUserDataBytes = 25
	// MaxUserDataBits is the largest uplink payload length in bits.
	MaxUserDataBits = MaxUserDataBytes * 8
	// DownlinkFrameBytes is the largest downlink frame (384 bits).
	DownlinkFrameBytes = 48

	AppEventSize      = 30
	ServiceEventSize  = 54
	InternalEventSize = 16
	blindConfigSize   = 6
)

// AppEventID identifies events sent from the application to the MAC.
type AppEventID uint8

// Application events.
const (
	AppEvtNone AppEventID = iota
	AppEvtInit
	AppEvtSendData
	AppEvtStopSendData
	AppEvtRxStart
	AppEvtRxStop
)

var appEventNames = [...]string{"NONE", "INIT", "SEND_DATA", "STOP_SEND_DATA", "RX_START", "RX_STOP"}

func (id AppEventID) String() string {
	if int(id) < len(appEventNames) {
		return appEventNames[id]
	}
	return fmt.Sprintf("APP_EVT(%d)", uint8(id))
}

// ServiceEventID identifies events sent from the MAC to the application.
type ServiceEventID uint8

// Service events.
const (
	SrvcEvtNone ServiceEventID = iota
	SrvcEvtTxDone
	SrvcEvtTxTimeout
	SrvcEvtTxAckDone
	SrvcEvtTxAckTimeout
	SrvcEvtRxError
	SrvcEvtRxReceived
	SrvcEvtRxTimeout
	SrvcEvtDlBC
	SrvcEvtDlAck
	SrvcEvtSatDetected
	SrvcEvtSatLost
	SrvcEvtRFAborted
	SrvcEvtOK
	SrvcEvtError
)

var serviceEventNames = [...]string{
	"NONE", "TX_DONE", "TX_TIMEOUT", "TXACK_DONE", "TXACK_TIMEOUT", "RX_ERROR",
	"RX_RECEIVED", "RX_TIMEOUT", "DL_BC", "DL_ACK", "SAT_DETECTED", "SAT_LOST",
	"RF_ABORTED", "OK", "ERROR",
}

func (id ServiceEventID) String() string {
	if int(id) < len(serviceEventNames) {
		return serviceEventNames[id]
	}
	return fmt.Sprintf("SRVC_EVT(%d)", uint8(id))
}

// HasTxContext reports whether events with this id carry the payload of
// an uplink message.
func (id ServiceEventID) HasTxContext() bool {
	switch id {
	case SrvcEvtTxDone, SrvcEvtTxAckDone, SrvcEvtTxTimeout,
		SrvcEvtTxAckTimeout, SrvcEvtRxError, SrvcEvtRxTimeout:
		return true
	}
	return false
}

// ServiceFlag is the kind of uplink service requested for a message.
type ServiceFlag uint8

// Service flags.
const (
	SFNone ServiceFlag = iota
	SFMailRequest
	SFUnicastAck
	SFMulticastAck
	SFPack
	SFPackEmergency
)

// ProfileID selects the MAC profile.
type ProfileID uint8

// Profiles.
const (
	ProfileBasic ProfileID = iota
	ProfileBlind
	ProfileMax
)

// BlindConfig is the user configuration of the blind profile.
type BlindConfig struct {
	RetxNb      int8
	NbParallel  uint8
	RetxPeriodS uint32
}

// Blind profile limits.
const (
	NbParallelMin = 1
	RetxNbMin     = 1
	RetxPeriodMin = 60
	RetxPeriodMax = 65535
)

// Validate checks the blind configuration against the profile limits.
func (c BlindConfig) Validate() error {
	if c.RetxNb < RetxNbMin || c.NbParallel < NbParallelMin ||
		c.RetxPeriodS < RetxPeriodMin || c.RetxPeriodS > RetxPeriodMax {
		return fmt.Errorf("invalid blind config %+v", c)
	}
	return nil
}

// Bytes encodes the configuration in its 6-byte wire form.
func (c BlindConfig) Bytes() []byte {
	b := make([]byte, blindConfigSize)
	c.put(b)
	return b
}

func (c BlindConfig) put(b []byte) {
	b[0] = byte(c.RetxNb)
	b[1] = c.NbParallel
	binary.LittleEndian.PutUint32(b[2:], c.RetxPeriodS)
}

// ParseBlindConfig decodes the 6-byte wire form, missing bytes are zero.
func ParseBlindConfig(b []byte) BlindConfig {
	var raw [blindConfigSize]byte
	copy(raw[:], b)
	return BlindConfig{
		RetxNb:      int8(raw[0]),
		NbParallel:  raw[1],
		RetxPeriodS: binary.LittleEndian.Uint32(raw[2:]),
	}
}

// AppEvent is an APP2MAC queue element.
type AppEvent struct {
	ID AppEventID
	// Flag is the service flag of SEND_DATA.
	Flag ServiceFlag
	// Profile and Blind are the context of INIT.
	Profile ProfileID
	Blind   BlindConfig
	BitLen  uint16
	Data    [MaxUserDataBytes]byte
}

// NewSendData builds a SEND_DATA event, data beyond the payload size is ignored.
func NewSendData(data []byte, bitlen uint16, sf ServiceFlag) AppEvent {
	evt := AppEvent{ID: AppEvtSendData, Flag: sf, BitLen: bitlen}
	copy(evt.Data[:], data)
	return evt
}

// Payload returns the significant bytes of Data.
func (e *AppEvent) Payload() []byte {
	return e.Data[:byteLen(e.BitLen, MaxUserDataBytes)]
}

// MarshalBinary encodes the event as an APP2MAC element.
func (e *AppEvent) MarshalBinary() ([]byte, error) {
	b := make([]byte, AppEventSize)
	b[0] = byte(e.ID)
	if e.ID == AppEvtInit {
		b[1] = byte(e.Profile)
		e.Blind.put(b[4:])
	} else {
		b[1] = byte(e.Flag)
		copy(b[4:4+MaxUserDataBytes], e.Data[:])
	}
	binary.LittleEndian.PutUint16(b[2:], e.BitLen)
	return b, nil
}

// UnmarshalBinary decodes an APP2MAC element.
func (e *AppEvent) UnmarshalBinary(b []byte) error {
	if len(b) < AppEventSize {
		return fmt.Errorf("app event: short buffer %d", len(b))
	}
	*e = AppEvent{ID: AppEventID(b[0]), BitLen: binary.LittleEndian.Uint16(b[2:])}
	if e.ID == AppEvtInit {
		e.Profile = ProfileID(b[1])
		e.Blind = ParseBlindConfig(b[4:])
	} else {
		e.Flag = ServiceFlag(b[1])
		copy(e.Data[:], b[4:4+MaxUserDataBytes])
	}
	return nil
}

// ServiceEvent is a MAC2APP queue element.
type ServiceEvent struct {
	ID ServiceEventID
	// AppEvt is the application event which triggered this one.
	AppEvt AppEventID
	BitLen uint16
	// BcMc is the broadcast/multicast id of decoded downlink messages.
	BcMc uint16
	Data [DownlinkFrameBytes]byte
}

// NewTxEvent builds a service event carrying the payload of an uplink message.
func NewTxEvent(id ServiceEventID, app AppEventID, data []byte, bitlen uint16) ServiceEvent {
	evt := ServiceEvent{ID: id, AppEvt: app, BitLen: bitlen}
	copy(evt.Data[:], data)
	return evt
}

// Payload returns the significant bytes of Data.
func (e *ServiceEvent) Payload() []byte {
	return e.Data[:byteLen(e.BitLen, DownlinkFrameBytes)]
}

// MarshalBinary encodes the event as a MAC2APP element.
func (e *ServiceEvent) MarshalBinary() ([]byte, error) {
	b := make([]byte, ServiceEventSize)
	b[0] = byte(e.ID)
	b[1] = byte(e.AppEvt)
	binary.LittleEndian.PutUint16(b[2:], e.BitLen)
	binary.LittleEndian.PutUint16(b[4:], e.BcMc)
	copy(b[6:], e.Data[:])
	return b, nil
}

// UnmarshalBinary decodes a MAC2APP element.
func (e *ServiceEvent) UnmarshalBinary(b []byte) error {
	if len(b) < ServiceEventSize {
		return fmt.Errorf("service event: short buffer %d", len(b))
	}
	e.ID = ServiceEventID(b[0])
	e.AppEvt = AppEventID(b[1])
	e.BitLen = binary.LittleEndian.Uint16(b[2:])
	e.BcMc = binary.LittleEndian.Uint16(b[4:])
	copy(e.Data[:], b[6:ServiceEventSize])
	return nil
}

// InternalKind identifies SRVC2MAC events.
type InternalKind uint8

// Internal event kinds.
const (
	InternalNone InternalKind = iota
	// InternalRadioDone reports the end of a radio transmission.
	InternalRadioDone
	// InternalSatDetected reports a satellite pass detection.
	InternalSatDetected
)

// InternalEvent is a SRVC2MAC queue element, produced by radio callbacks.
type InternalEvent struct {
	Kind InternalKind
	Seq  uint32
}

// MarshalBinary encodes the event as a SRVC2MAC element.
func (e *InternalEvent) MarshalBinary() ([]byte, error) {
	b := make([]byte, InternalEventSize)
	b[0] = byte(e.Kind)
	binary.LittleEndian.PutUint32(b[4:], e.Seq)
	return b, nil
}

// UnmarshalBinary decodes a SRVC2MAC element.
func (e *InternalEvent) UnmarshalBinary(b []byte) error {
	if len(b) < InternalEventSize {
		return fmt.Errorf("internal event: short buffer %d", len(b))
	}
	e.Kind = InternalKind(b[0])
	e.Seq = binary.LittleEndian.Uint32(b[4:])
	return nil
}

func byteLen(bitlen uint16, max int) int {
	n := (int(bitlen) + 7) / 8
	if n > max {
		n = max
	}
	return n
}
