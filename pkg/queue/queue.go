// Package queue provides a set of fixed-capacity, priority-ranked queues
// shared between interrupt-like goroutines and the scheduler task.
package queue

import (
	"fmt"
	"sync"

	"github.com/golang/glog"

	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/kns"
)

// Handle identifies a queue inside a Set.
type Handle int

// Backend selects how queue storage is provided.
type Backend int

const (
	// BackendArray uses statically declared storage; Create only validates
	// the requested geometry against the declaration.
	BackendArray Backend = iota
	// BackendChannel allocates a buffered channel at Create, similar to
	// queues provided by an RTOS.
	BackendChannel
)

// String implements fmt.Stringer.
func (b Backend) String() string {
	switch b {
	case BackendArray:
		return "array"
	case BackendChannel:
		return "channel"
	}
	return fmt.Sprintf("backend(%d)", int(b))
}

// ParseBackend converts a configuration string to a Backend.
func ParseBackend(s string) (Backend, error) {
	switch s {
	case "", "array":
		return BackendArray, nil
	case "channel", "rtos":
		return BackendChannel, nil
	}
	return BackendArray, fmt.Errorf("unknown queue backend %q", s)
}

// Config declares the geometry of one queue.
type Config struct {
	Handle Handle
	Name   string
	// Rank orders sibling queues, lower rank is served first.
	Rank     int
	Capacity int
	ElemSize int
}

// storage is implemented by the closed set of backends.
type storage interface {
	put(item []byte) bool
	get(item []byte) bool
	pending() bool
	reset()
}

type queue struct {
	conf    Config
	store   storage
	created bool
}

// Set is a group of sibling queues guarded by one critical section.
type Set struct {
	backend Backend
	queues  []*queue
	lock    sync.Mutex
}

// NewSet declares the queues of a set. Declarations must use distinct
// handles starting from 0, positive capacities (at least 2, one slot is
// always kept empty) and positive element sizes.
func NewSet(backend Backend, decls ...Config) (*Set, error) {
	s := &Set{backend: backend}
	for _, conf := range decls {
		if conf.Handle < 0 || conf.Capacity < 2 || conf.ElemSize <= 0 {
			return nil, fmt.Errorf("queue %q: invalid geometry %dx%d: %w",
				conf.Name, conf.Capacity, conf.ElemSize, kns.StatusBadSetting)
		}
		for int(conf.Handle) >= len(s.queues) {
			s.queues = append(s.queues, nil)
		}
		if s.queues[conf.Handle] != nil {
			return nil, fmt.Errorf("queue %q: handle %d declared twice: %w",
				conf.Name, conf.Handle, kns.StatusBadSetting)
		}
		q := &queue{conf: conf}
		if backend == BackendArray {
			q.store = newArrayStorage(conf.Capacity, conf.ElemSize)
		}
		s.queues[conf.Handle] = q
	}
	return s, nil
}

// Backend returns the storage backend of the set.
func (s *Set) Backend() Backend {
	return s.backend
}

// Config returns the declared geometry of a queue.
func (s *Set) Config(h Handle) (Config, bool) {
	q := s.lookup(h)
	if q == nil {
		return Config{}, false
	}
	return q.conf, true
}

// Create validates (array backend) or allocates (channel backend) the
// queue h with the requested geometry.
func (s *Set) Create(h Handle, capacity, elemSize int) kns.Status {
	q := s.lookup(h)
	if q == nil {
		glog.Errorf("queue %d: not declared", h)
		return kns.StatusBadSetting
	}
	if q.conf.Capacity != capacity || q.conf.ElemSize != elemSize {
		glog.Errorf("queue %s: geometry %dx%d does not match declared %dx%d",
			q.conf.Name, capacity, elemSize, q.conf.Capacity, q.conf.ElemSize)
		return kns.StatusBadSetting
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	switch s.backend {
	case BackendArray:
		q.store.reset()
	case BackendChannel:
		q.store = newChanStorage(capacity, elemSize)
	default:
		return kns.StatusBadSetting
	}
	q.created = true
	glog.V(4).Infof("queue %s created (%s, %dx%d)", q.conf.Name, s.backend, capacity, elemSize)
	return kns.StatusOK
}

// CreateAll creates every declared queue with its declared geometry.
func (s *Set) CreateAll() kns.Status {
	for _, q := range s.queues {
		if q == nil {
			continue
		}
		if st := s.Create(q.conf.Handle, q.conf.Capacity, q.conf.ElemSize); st != kns.StatusOK {
			return st
		}
	}
	return kns.StatusOK
}

// Push copies ElemSize bytes of item into queue h.
// It returns StatusQFull without touching the queue when no slot is free.
func (s *Set) Push(h Handle, item []byte) kns.Status {
	q := s.lookup(h)
	if q == nil {
		return kns.StatusBadSetting
	}
	if len(item) < q.conf.ElemSize {
		return kns.StatusBadLen
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	if !q.created {
		return kns.StatusBadSetting
	}
	if !q.store.put(item[:q.conf.ElemSize]) {
		glog.V(4).Infof("queue %s full", q.conf.Name)
		return kns.StatusQFull
	}
	return kns.StatusOK
}

// Pop copies the oldest item of queue h into item.
// It returns StatusQEmpty when the queue is empty, or when a sibling with
// a lower rank still holds unread data.
func (s *Set) Pop(h Handle, item []byte) kns.Status {
	q := s.lookup(h)
	if q == nil {
		return kns.StatusBadSetting
	}
	if len(item) < q.conf.ElemSize {
		return kns.StatusBadLen
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	if !q.created {
		return kns.StatusBadSetting
	}
	if s.higherPending(q) {
		return kns.StatusQEmpty
	}
	if !q.store.get(item[:q.conf.ElemSize]) {
		return kns.StatusQEmpty
	}
	return kns.StatusOK
}

// IsDataInHigherPriorityQueue reports whether any sibling ranked before h
// holds unread data.
func (s *Set) IsDataInHigherPriorityQueue(h Handle) bool {
	q := s.lookup(h)
	if q == nil {
		return false
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.higherPending(q)
}

// IsDataInAnyQueue reports whether any queue of the set holds unread data.
func (s *Set) IsDataInAnyQueue() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, q := range s.queues {
		if q != nil && q.created && q.store.pending() {
			return true
		}
	}
	return false
}

func (s *Set) lookup(h Handle) *queue {
	if h < 0 || int(h) >= len(s.queues) {
		return nil
	}
	return s.queues[h]
}

// higherPending must be called inside the critical section.
func (s *Set) higherPending(q *queue) bool {
	for _, sib := range s.queues {
		if sib == nil || sib == q || !sib.created {
			continue
		}
		if sib.conf.Rank < q.conf.Rank && sib.store.pending() {
			return true
		}
	}
	return false
}
