package atcmd

import (
	"github.com/golang/glog"

	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/kns"
)

// Mode is the execution mode of a command.
type Mode int

// Execution modes.
const (
	// ModeAction executes "AT+CMD" or "AT+CMD=<params>".
	ModeAction Mode = iota
	// ModeStatus queries "AT+CMD=?".
	ModeStatus
)

func (m Mode) String() string {
	if m == ModeStatus {
		return "status"
	}
	return "action"
}

// Handler executes a decoded command. It returns false when the command
// failed, the error reply is already sent.
type Handler func(m *Manager, raw []byte, mode Mode) bool

// Descriptor binds a command name to its handler.
type Descriptor struct {
	Name    string
	Handler Handler
}

// ErrorCode is the code of "+ERROR=<code>" replies.
type ErrorCode int

// Error codes.
const (
	ErrNo                     ErrorCode = 0
	ErrUnknown                ErrorCode = 1
	ErrParameterFormat        ErrorCode = 2
	ErrMissingParameters      ErrorCode = 3
	ErrTooManyParameters      ErrorCode = 4
	ErrIncompatibleValue      ErrorCode = 5
	ErrUnknownATCmd           ErrorCode = 6
	ErrInvalidID              ErrorCode = 7
	ErrUnknownID              ErrorCode = 8
	ErrInvalidUserDataLength  ErrorCode = 20
	ErrDataQueueFull          ErrorCode = 21
	ErrDataQueueEmpty         ErrorCode = 22
	ErrRxTimeout              ErrorCode = 30
	ErrTrcvr                  ErrorCode = 40
	ErrTrcvrAutoRanging       ErrorCode = 41
	ErrPLL                    ErrorCode = 42
	ErrXtalTimeout            ErrorCode = 43
	ErrReset                  ErrorCode = 44
	ErrProtInvalidTxFreqTxMod ErrorCode = 60
)

// ConvStatus converts a status to the AT error code reported to the host.
func ConvStatus(st kns.Status) ErrorCode {
	switch st {
	case kns.StatusOK:
		return ErrNo
	case kns.StatusDisabled, kns.StatusBusy, kns.StatusTimeout, kns.StatusTrErr:
		return ErrTrcvr
	case kns.StatusBadSetting:
		return ErrIncompatibleValue
	case kns.StatusBadLen:
		return ErrInvalidUserDataLength
	case kns.StatusQFull:
		return ErrDataQueueFull
	case kns.StatusQEmpty:
		return ErrDataQueueEmpty
	}
	return ErrUnknown
}

// Decode looks up raw in the command table and runs the handler.
// Unknown commands are answered with ErrUnknownATCmd.
func (m *Manager) Decode(raw []byte) bool {
	if raw == nil {
		return m.fail(ErrUnknown)
	}
	for n := range m.table {
		desc := &m.table[n]
		if len(raw) < len(desc.Name) || string(raw[:len(desc.Name)]) != desc.Name {
			continue
		}
		mode, ok := parseMode(raw[len(desc.Name):])
		if !ok {
			continue
		}
		glog.V(2).Infof("atcmd: %s (%s)", desc.Name, mode)
		return desc.Handler(m, raw, mode)
	}
	glog.V(2).Infof("atcmd: unknown command %q", raw)
	return m.fail(ErrUnknownATCmd)
}

func parseMode(rest []byte) (Mode, bool) {
	if len(rest) == 0 {
		return ModeAction, false
	}
	switch rest[0] {
	case '=':
		if len(rest) >= 3 && rest[1] == '?' && (rest[2] == '\r' || rest[2] == '\n') {
			return ModeStatus, true
		}
		return ModeAction, true
	case '\r', '\n':
		return ModeAction, true
	}
	return ModeAction, false
}

// Table returns the command names in lookup order.
func (m *Manager) Table() []string {
	names := make([]string, len(m.table))
	for n := range m.table {
		names[n] = m.table[n].Name
	}
	return names
}

func (m *Manager) ok() bool {
	m.Transport.Send("+OK\r\n")
	return true
}

func (m *Manager) fail(code ErrorCode) bool {
	m.Transport.Send("+ERROR=%d\r\n", int(code))
	return false
}
