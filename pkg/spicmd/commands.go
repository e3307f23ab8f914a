package spicmd

import (
	"encoding/binary"
	"fmt"

	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/device"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/kns"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/mac"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/userdata"
)

// CommandID is the first byte of a frame.
type CommandID uint8

// Commands.
const (
	CmdNone CommandID = iota
	CmdRead
	CmdPing
	CmdMacStatus
	CmdSpiStatus
	CmdReadVersion
	CmdReadFirmware
	CmdReadAddr
	CmdReadID
	CmdReadSN
	CmdReadRConf
	CmdWriteRConfReq
	CmdWriteRConf
	CmdSaveRConf
	CmdReadKMAC
	CmdWriteKMACReq
	CmdWriteKMAC
	CmdReadLPM
	CmdWriteLPMReq
	CmdWriteLPM
	CmdWriteTxReq
	CmdWriteTxSize
	CmdWriteTx
	CmdReadCW
	CmdWriteCWReq
	CmdWriteCW
	CmdReadPrepassEn
	CmdWritePrepassEnReq
	CmdWritePrepassEn
	CmdReadUDate
	CmdWriteUDateReq
	CmdWriteUDate

	CmdMax
)

var commandNames = [...]string{
	"NONE", "READ", "PING", "MAC_STATUS", "SPI_STATUS", "READ_VERSION", "READ_FIRMWARE",
	"READ_ADDR", "READ_ID", "READ_SN", "READ_RCONF", "WRITE_RCONF_REQ", "WRITE_RCONF",
	"SAVE_RCONF", "READ_KMAC", "WRITE_KMAC_REQ", "WRITE_KMAC", "READ_LPM", "WRITE_LPM_REQ",
	"WRITE_LPM", "WRITE_TX_REQ", "WRITE_TX_SIZE", "WRITE_TX", "READ_CW", "WRITE_CW_REQ",
	"WRITE_CW", "READ_PREPASSEN", "WRITE_PREPASSEN_REQ", "WRITE_PREPASSEN", "READ_UDATE",
	"WRITE_UDATE_REQ", "WRITE_UDATE",
}

func (id CommandID) String() string {
	if int(id) < len(commandNames) {
		return commandNames[id]
	}
	return fmt.Sprintf("CMD(0x%02X)", uint8(id))
}

// MacStatus is the byte returned by MAC_STATUS.
type MacStatus uint8

// MAC status values.
const (
	MacOK           MacStatus = 0x01
	MacTxDone       MacStatus = 0x02
	MacTxSizeError  MacStatus = 0x03
	MacTxAckDone    MacStatus = 0x04
	MacTxTimeout    MacStatus = 0x05
	MacTxAckTimeout MacStatus = 0x06
	MacRxError      MacStatus = 0x07
	MacRxTimeout    MacStatus = 0x08
	MacError        MacStatus = 0x09
)

// Version is the binary protocol version returned by READ_VERSION.
const Version = 3

// Handler executes one frame, frame[0] being the command id.
type Handler func(m *Machine, frame []byte) Reply

// Descriptor binds a command id to its handler. Next, when not CmdNone,
// is the only id accepted in the following frame.
type Descriptor struct {
	ID      CommandID
	Next    CommandID
	Handler Handler
}

// Commands returns the command table indexed by id.
func Commands() []Descriptor {
	table := make([]Descriptor, CmdMax)
	for _, d := range []Descriptor{
		{ID: CmdNone, Handler: handleNone},
		{ID: CmdRead, Handler: handleNone},
		{ID: CmdPing, Handler: handlePing},
		{ID: CmdMacStatus, Handler: handleMacStatus},
		{ID: CmdSpiStatus, Handler: handleSpiStatus},
		{ID: CmdReadVersion, Handler: handleReadVersion},
		{ID: CmdReadFirmware, Handler: handleReadFirmware},
		{ID: CmdReadAddr, Handler: handleReadAddr},
		{ID: CmdReadID, Handler: handleReadID},
		{ID: CmdReadSN, Handler: handleReadSN},
		{ID: CmdReadRConf, Handler: handleReadRConf},
		{ID: CmdWriteRConfReq, Next: CmdWriteRConf, Handler: waitFor(1 + 2*device.RadioConfSize)},
		{ID: CmdWriteRConf, Handler: handleWriteRConf},
		{ID: CmdSaveRConf, Handler: handleSaveRConf},
		{ID: CmdReadKMAC, Handler: handleReadKMAC},
		{ID: CmdWriteKMACReq, Next: CmdWriteKMAC, Handler: waitFor(2)},
		{ID: CmdWriteKMAC, Handler: handleWriteKMAC},
		{ID: CmdReadLPM, Handler: handleReadLPM},
		{ID: CmdWriteLPMReq, Next: CmdWriteLPM, Handler: waitFor(2)},
		{ID: CmdWriteLPM, Handler: handleWriteLPM},
		{ID: CmdWriteTxReq, Next: CmdWriteTxSize, Handler: handleWriteTxReq},
		{ID: CmdWriteTxSize, Next: CmdWriteTx, Handler: handleWriteTxSize},
		{ID: CmdWriteTx, Handler: handleWriteTx},
		{ID: CmdReadCW, Handler: reserved},
		{ID: CmdWriteCWReq, Handler: reserved},
		{ID: CmdWriteCW, Handler: reserved},
		{ID: CmdReadPrepassEn, Handler: reserved},
		{ID: CmdWritePrepassEnReq, Handler: reserved},
		{ID: CmdWritePrepassEn, Handler: reserved},
		{ID: CmdReadUDate, Handler: reserved},
		{ID: CmdWriteUDateReq, Handler: reserved},
		{ID: CmdWriteUDate, Handler: reserved},
	} {
		table[d.ID] = d
	}
	return table
}

func ack() Reply {
	return Respond([]byte{1}, 1)
}

func waitFor(n int) Handler {
	return func(m *Machine, frame []byte) Reply {
		return WaitNext(n)
	}
}

func reserved(m *Machine, frame []byte) Reply {
	return Nack()
}

func handleNone(m *Machine, frame []byte) Reply {
	return WaitNext(1)
}

func handlePing(m *Machine, frame []byte) Reply {
	return ack()
}

func handleMacStatus(m *Machine, frame []byte) Reply {
	st := m.macStatus
	m.macStatus = MacOK
	return Respond([]byte{byte(st)}, 1)
}

func handleSpiStatus(m *Machine, frame []byte) Reply {
	return Respond([]byte{byte(m.state)}, 1)
}

func handleReadVersion(m *Machine, frame []byte) Reply {
	return Respond([]byte{Version}, 1)
}

func handleReadFirmware(m *Machine, frame []byte) Reply {
	return Respond(device.FirmwareBytes(), 1)
}

func handleReadAddr(m *Machine, frame []byte) Reply {
	addr := m.Settings.Get().Addr
	return Respond(addr[:], 1)
}

func handleReadID(m *Machine, frame []byte) Reply {
	tx := make([]byte, 4)
	binary.LittleEndian.PutUint32(tx, m.Settings.Get().ID)
	return Respond(tx, 1)
}

func handleReadSN(m *Machine, frame []byte) Reply {
	s := m.Settings.Get()
	return Respond(append(s.SNBytes(), 0), 1)
}

func handleReadRConf(m *Machine, frame []byte) Reply {
	return Respond(m.Settings.Get().Radio.Bytes(), 1)
}

// handleWriteRConf decodes the 32 hex digits following the id.
func handleWriteRConf(m *Machine, frame []byte) Reply {
	if len(frame) < 1+2*device.RadioConfSize {
		return Nack()
	}
	raw := make([]byte, device.RadioConfSize)
	for n := range raw {
		hi, ok1 := nibble(frame[1+2*n])
		lo, ok2 := nibble(frame[2+2*n])
		if !ok1 || !ok2 {
			return Nack()
		}
		raw[n] = hi<<4 | lo
	}
	conf, err := device.ParseRadioConf(raw)
	if err != nil {
		return Nack()
	}
	m.Settings.Update(func(s *device.Settings) { s.Radio = conf })
	return WaitNext(1)
}

func nibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func handleSaveRConf(m *Machine, frame []byte) Reply {
	if err := m.Settings.Save(); err != nil {
		return Nack()
	}
	return ack()
}

func handleReadKMAC(m *Machine, frame []byte) Reply {
	s := m.Settings.Get()
	return Respond(append([]byte{byte(s.Profile)}, s.Blind.Bytes()...), 1)
}

// handleWriteKMAC pushes INIT, the host is acked once the MAC answers.
func handleWriteKMAC(m *Machine, frame []byte) Reply {
	if len(frame) < 2 {
		return Nack()
	}
	evt := mac.AppEvent{ID: mac.AppEvtInit, Profile: mac.ProfileID(frame[1])}
	if mac.PushAppEvent(m.Queues, evt) != kns.StatusOK {
		return Nack()
	}
	m.pendingInit = &evt
	return AwaitMAC()
}

func handleReadLPM(m *Machine, frame []byte) Reply {
	return Respond([]byte{m.Settings.Get().LPM}, 1)
}

func handleWriteLPM(m *Machine, frame []byte) Reply {
	if len(frame) < 2 || frame[1]&^device.LPMMask != 0 {
		return Nack()
	}
	m.Settings.Update(func(s *device.Settings) { s.LPM = frame[1] })
	return WaitNext(1)
}

func handleWriteTxReq(m *Machine, frame []byte) Reply {
	m.txSize = 0
	return WaitNext(3)
}

// handleWriteTxSize reads the big endian payload size.
func handleWriteTxSize(m *Machine, frame []byte) Reply {
	if len(frame) < 3 {
		return Nack()
	}
	size := int(binary.BigEndian.Uint16(frame[1:]))
	if size > userdata.MaxPayloadBytes {
		m.macStatus = MacTxSizeError
		return Nack()
	}
	m.txSize = size
	return WaitNext(size + 1)
}

func handleWriteTx(m *Machine, frame []byte) Reply {
	if len(frame) < 1+m.txSize {
		return Nack()
	}
	payload := frame[1 : 1+m.txSize]
	if _, st := userdata.Submit(m.Pool, m.Queues, payload, uint16(m.txSize*8), 0); st != kns.StatusOK {
		return Nack()
	}
	return ack()
}
