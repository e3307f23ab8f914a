package kns

import (
	"fmt"
	"sync"

	"github.com/golang/glog"
)

// FaultHandler is invoked when an integrity check fails.
// It is expected not to return on a device; on a host it may record
// the fault and let the caller continue.
type FaultHandler func(msg string)

var (
	faultLock    sync.RWMutex
	faultHandler FaultHandler = defaultFault
)

func defaultFault(msg string) {
	glog.Errorf("integrity fault: %s", msg)
	panic("kns: integrity fault: " + msg)
}

// SetFaultHandler replaces the fault handler and returns the previous one.
// Passing nil restores the default handler which panics.
func SetFaultHandler(h FaultHandler) FaultHandler {
	faultLock.Lock()
	defer faultLock.Unlock()
	prev := faultHandler
	if h == nil {
		h = defaultFault
	}
	faultHandler = h
	return prev
}

// Assert triggers the fault path when cond is false.
func Assert(cond bool, format string, args ...interface{}) bool {
	if cond {
		return true
	}
	faultLock.RLock()
	h := faultHandler
	faultLock.RUnlock()
	h(fmt.Sprintf(format, args...))
	return false
}
