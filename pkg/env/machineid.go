package env

import (
	"strings"

	"github.com/denisbrodbeck/machineid"

	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/device"
)

// MachineID retrieves the unique ID identifying the machine, hashed for
// the application so the raw id is never exposed.
func MachineID() (string, error) {
	return machineid.ProtectedID("kns")
}

// MachineSerial derives a device serial number from the machine id. It
// falls back to the factory serial number when the id is unavailable.
func MachineSerial() string {
	id, err := MachineID()
	if err != nil || len(id) < device.SNLength-4 {
		return device.DefaultSN
	}
	return "SMD_" + strings.ToUpper(id[:device.SNLength-4])
}
