package atcmd

import (
	"fmt"
	"strings"

	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/device"
)

func statusOnly(mode Mode, m *Manager) bool {
	if mode == ModeAction {
		m.fail(ErrUnknownATCmd)
		return false
	}
	return true
}

func handlePing(m *Manager, raw []byte, mode Mode) bool {
	if !statusOnly(mode, m) {
		return false
	}
	return m.ok()
}

func handleVersion(m *Manager, raw []byte, mode Mode) bool {
	if !statusOnly(mode, m) {
		return false
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "+VERSION=%s", device.ATCmdVersion)
	for _, name := range m.Table() {
		sb.WriteString(",")
		sb.WriteString(name)
	}
	sb.WriteString("\r\n")
	m.Transport.Send("%s", sb.String())
	return true
}

func handleFirmware(m *Manager, raw []byte, mode Mode) bool {
	if !statusOnly(mode, m) {
		return false
	}
	m.Transport.Send("+FW=%s\r\n", device.FirmwareVersion)
	return true
}

func handleAddr(m *Manager, raw []byte, mode Mode) bool {
	if mode == ModeStatus {
		a := m.Settings.Get().Addr
		m.Transport.Send("+ADDR=%02x%02x%02x%02x\r\n", a[0], a[1], a[2], a[3])
		return true
	}
	data, bits := AsciiToBits(argument(raw, "AT+ADDR="))
	if bits != device.AddrLength*8 {
		return m.fail(ErrInvalidID)
	}
	m.Settings.Update(func(s *device.Settings) { copy(s.Addr[:], data) })
	return m.ok()
}

func handleID(m *Manager, raw []byte, mode Mode) bool {
	if mode == ModeStatus {
		m.Transport.Send("+ID=%d\r\n", m.Settings.Get().ID)
		return true
	}
	arg := argument(raw, "AT+ID=")
	if len(arg) == 0 || len(arg) > device.MaxIDDigits {
		return m.fail(ErrInvalidID)
	}
	var id uint32
	for i := 0; i < len(arg); i++ {
		if arg[i] < '0' || arg[i] > '9' {
			return m.fail(ErrInvalidID)
		}
		id = id*10 + uint32(arg[i]-'0')
	}
	m.Settings.Update(func(s *device.Settings) { s.ID = id })
	return m.ok()
}

func handleSN(m *Manager, raw []byte, mode Mode) bool {
	if !statusOnly(mode, m) {
		return false
	}
	m.Transport.Send("+SN=%s\r\n", m.Settings.Get().SN)
	return true
}

func handleSecKey(m *Manager, raw []byte, mode Mode) bool {
	if mode == ModeStatus {
		key := m.Settings.Get().SecKey
		m.Transport.Send("+SECKEY=%x\r\n", key[:])
		return true
	}
	data, bits := AsciiToBits(argument(raw, "AT+SECKEY="))
	if bits != device.SecKeyLength*8 {
		return m.fail(ErrInvalidID)
	}
	m.Settings.Update(func(s *device.Settings) { copy(s.SecKey[:], data) })
	return m.ok()
}

func handleRadioConf(m *Manager, raw []byte, mode Mode) bool {
	if mode == ModeStatus {
		r := m.Settings.Get().Radio
		m.Transport.Send("+RCONF=%d,%d,%d,%s\r\n", r.MinFreq, r.MaxFreq, r.RFLevel, r.Modulation)
		return m.ok()
	}
	data, bits := AsciiToBits(argument(raw, "AT+RCONF="))
	if bits != device.RadioConfSize*8 {
		return m.fail(ErrInvalidID)
	}
	conf, err := device.ParseRadioConf(data)
	if err != nil {
		return m.fail(ErrInvalidID)
	}
	m.Settings.Update(func(s *device.Settings) { s.Radio = conf })
	return m.ok()
}

func handleSaveRadioConf(m *Manager, raw []byte, mode Mode) bool {
	if mode == ModeStatus {
		return m.fail(ErrUnknownATCmd)
	}
	if err := m.Settings.Save(); err != nil {
		return m.fail(ErrInvalidID)
	}
	return m.ok()
}

func handleLPM(m *Manager, raw []byte, mode Mode) bool {
	if mode == ModeStatus {
		m.Transport.Send("+LPM=0x%X\r\n", m.Settings.Get().LPM)
		return true
	}
	sc := newScanner(raw)
	if !sc.literal("AT+LPM=0x") {
		return m.fail(ErrParameterFormat)
	}
	v, ok := sc.hexUint(16)
	if !ok {
		return m.fail(ErrParameterFormat)
	}
	m.Settings.Update(func(s *device.Settings) { s.LPM = uint8(v) & device.LPMMask })
	return m.ok()
}

func handlePrepass(m *Manager, raw []byte, mode Mode) bool {
	if mode == ModeStatus {
		v := 0
		if m.Settings.Get().Prepass {
			v = 1
		}
		m.Transport.Send("+PREPASS_EN=%d\r\n", v)
		return true
	}
	sc := newScanner(raw)
	if !sc.literal("AT+PREPASS_EN=") {
		return m.fail(ErrParameterFormat)
	}
	v, ok := sc.decimal()
	if !ok {
		return m.fail(ErrParameterFormat)
	}
	m.Settings.Update(func(s *device.Settings) { s.Prepass = uint8(v) != 0 })
	return m.ok()
}

// handleUDate accepts any date, the device has no calendar.
func handleUDate(m *Manager, raw []byte, mode Mode) bool {
	return m.ok()
}
