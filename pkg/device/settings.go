// Package device keeps the persistent settings of the device: identity,
// radio configuration, security key and power options.
package device

import (
	"encoding/binary"
	"fmt"

	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/mac"
)

// Version strings, overridden at link time.
var (
	FirmwareVersion = "SMD_KRD_FW_GO_dev"
	ATCmdVersion    = "v1.2"
)

// FirmwareLength is the fixed length of the firmware string on the binary link.
const FirmwareLength = 128

// Identity sizes.
const (
	AddrLength     = 4
	SNLength       = 14
	SecKeyLength   = 16
	RadioConfSize  = 16
	MaxIDDigits    = 6
	DefaultSN      = "SMD_10__TEST02"
	DefaultID      = 214012
	defaultMinFreq = 401625000
	defaultMaxFreq = 401635000
)

// DefaultAddr is the factory device address.
var DefaultAddr = [AddrLength]byte{0x22, 0x67, 0x5C, 0x70}

// Modulation is the uplink modulation of the radio configuration.
type Modulation uint8

// Modulations.
const (
	ModLDA2 Modulation = iota
	ModLDA2L
	ModVLDA4
	ModHDA4
	ModLDK
)

func (m Modulation) String() string {
	switch m {
	case ModLDA2:
		return "LDA2"
	case ModLDA2L:
		return "LDA2L"
	case ModVLDA4:
		return "VLDA4"
	case ModHDA4:
		return "HDA4"
	case ModLDK:
		return "LDK"
	}
	return "UNKNOWN"
}

// RadioConf is the radio configuration zone.
type RadioConf struct {
	MinFreq    uint32     `json:"min_freq"`
	MaxFreq    uint32     `json:"max_freq"`
	RFLevel    int8       `json:"rf_level"`
	Modulation Modulation `json:"modulation"`
}

// ParseRadioConf decodes the 16-byte configuration zone:
// min and max frequency (LE), rf level, modulation, 6 reserved bytes.
func ParseRadioConf(b []byte) (RadioConf, error) {
	if len(b) != RadioConfSize {
		return RadioConf{}, fmt.Errorf("radio conf: %d bytes, expect %d", len(b), RadioConfSize)
	}
	conf := RadioConf{
		MinFreq:    binary.LittleEndian.Uint32(b[0:]),
		MaxFreq:    binary.LittleEndian.Uint32(b[4:]),
		RFLevel:    int8(b[8]),
		Modulation: Modulation(b[9]),
	}
	if conf.MinFreq > conf.MaxFreq {
		return RadioConf{}, fmt.Errorf("radio conf: min frequency %d above max %d", conf.MinFreq, conf.MaxFreq)
	}
	return conf, nil
}

// Bytes encodes the configuration zone.
func (r RadioConf) Bytes() []byte {
	b := make([]byte, RadioConfSize)
	binary.LittleEndian.PutUint32(b[0:], r.MinFreq)
	binary.LittleEndian.PutUint32(b[4:], r.MaxFreq)
	b[8] = byte(r.RFLevel)
	b[9] = byte(r.Modulation)
	return b
}

// Low power modes allowed by the LPM bitmap.
const (
	LPMNone     uint8 = 0x00
	LPMSleep    uint8 = 0x01
	LPMStop     uint8 = 0x02
	LPMStandby  uint8 = 0x04
	LPMShutdown uint8 = 0x08

	LPMMask = LPMNone | LPMSleep | LPMStop | LPMStandby | LPMShutdown
)

// Settings is the persistent device state.
type Settings struct {
	Addr    [AddrLength]byte   `json:"addr"`
	ID      uint32             `json:"id"`
	SN      string             `json:"sn"`
	Radio   RadioConf          `json:"radio"`
	SecKey  [SecKeyLength]byte `json:"sec_key"`
	LPM     uint8              `json:"lpm"`
	Prepass bool               `json:"prepass"`
	// Profile and Blind are the MAC profile last accepted by the MAC.
	Profile mac.ProfileID   `json:"profile"`
	Blind   mac.BlindConfig `json:"blind"`
}

// DefaultSettings returns the factory settings.
func DefaultSettings() Settings {
	return Settings{
		Addr: DefaultAddr,
		ID:   DefaultID,
		SN:   DefaultSN,
		Radio: RadioConf{
			MinFreq:    defaultMinFreq,
			MaxFreq:    defaultMaxFreq,
			RFLevel:    27,
			Modulation: ModLDA2,
		},
		LPM: LPMSleep | LPMStop,
	}
}

// SNBytes returns the serial number padded or cut to SNLength.
func (s *Settings) SNBytes() []byte {
	b := make([]byte, SNLength)
	copy(b, s.SN)
	return b
}

// FirmwareBytes returns the firmware string padded to FirmwareLength.
func FirmwareBytes() []byte {
	b := make([]byte, FirmwareLength)
	copy(b, FirmwareVersion)
	return b
}
