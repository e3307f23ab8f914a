// Package msgs provides the wire schema of the MAC bridge.
//
// The bridge is communicated between the device and a remote protocol
// stack. Application events travel as commands towards the stack,
// service events travel back as events.
package msgs
