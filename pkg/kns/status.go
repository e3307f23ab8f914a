// Package kns provides the status codes and integrity checks shared by
// the device messaging core.
package kns

import (
	"errors"
	"fmt"
)

// Status is the result code of core operations.
type Status int

// Status codes.
const (
	StatusOK Status = iota
	StatusError
	StatusDisabled
	StatusBusy
	StatusTimeout
	StatusBadSetting
	StatusBadLen
	StatusTrErr
	StatusQFull
	StatusQEmpty
	StatusNVMAccessErr
)

var statusNames = [...]string{
	StatusOK:           "OK",
	StatusError:        "ERROR",
	StatusDisabled:     "DISABLED",
	StatusBusy:         "BUSY",
	StatusTimeout:      "TIMEOUT",
	StatusBadSetting:   "BAD_SETTING",
	StatusBadLen:       "BAD_LEN",
	StatusTrErr:        "TR_ERR",
	StatusQFull:        "QFULL",
	StatusQEmpty:       "QEMPTY",
	StatusNVMAccessErr: "NVM_ACCESS_ERR",
}

// String implements fmt.Stringer.
func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("STATUS(%d)", int(s))
}

// Error implements error.
func (s Status) Error() string {
	return s.String()
}

// Err returns nil for StatusOK, otherwise the status itself.
func (s Status) Err() error {
	if s == StatusOK {
		return nil
	}
	return s
}

// StatusOf converts an error back to a Status.
// nil maps to StatusOK and errors not carrying a Status map to StatusError.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	var s Status
	if errors.As(err, &s) {
		return s
	}
	return StatusError
}
