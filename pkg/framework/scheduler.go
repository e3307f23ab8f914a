package framework

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/kns"
)

// MaxTasks is the size of the task table.
const MaxTasks = 4

// Default task slots.
const (
	SlotMAC     int = 0
	SlotApp     int = 1
	SlotConsole int = 2
)

// Scheduler is a cooperative round-robin executor over a fixed table of
// tasks. Every pass invokes each registered task once in ascending slot
// order. Tasks must poll and return promptly.
type Scheduler struct {
	// Interval is the idle period between passes when Idle reports true.
	Interval time.Duration
	// Idle reports whether there is nothing to do, the scheduler then waits
	// for TriggerNext or Interval before the next pass.
	Idle func() bool

	tasks   [MaxTasks]Task
	running bool
	lock    sync.Mutex

	wakeUpCh chan struct{}
}

// NewScheduler creates a Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{
		Interval: 10 * time.Millisecond,
		wakeUpCh: make(chan struct{}, 1),
	}
}

// Register stores task at slot. It fails with StatusBadSetting if slot is
// out of range or already occupied, or once the scheduler is running.
func (s *Scheduler) Register(slot int, task Task) kns.Status {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.running || task == nil || slot < 0 || slot >= MaxTasks || s.tasks[slot] != nil {
		glog.Errorf("scheduler: cannot register task at slot %d", slot)
		return kns.StatusBadSetting
	}
	s.tasks[slot] = task
	return kns.StatusOK
}

// RegisterFunc is the func form of Register.
func (s *Scheduler) RegisterFunc(slot int, fn func(context.Context) error) kns.Status {
	return s.Register(slot, TaskFunc(fn))
}

// RunOnce performs a single pass over the task table.
func (s *Scheduler) RunOnce(ctx context.Context) {
	for slot := range s.tasks {
		if task := s.tasks[slot]; task != nil {
			if err := task.Poll(ctx); err != nil {
				glog.Errorf("task error: %v", err)
			}
		}
	}
}

// Run implements Runnable. It never returns until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.lock.Lock()
	s.running = true
	if s.wakeUpCh == nil {
		s.wakeUpCh = make(chan struct{}, 1)
	}
	s.lock.Unlock()

	interval := s.Interval
	if interval == 0 {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		s.RunOnce(ctx)
		if s.Idle == nil || !s.Idle() {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-s.wakeUpCh:
		}
	}
}

// RunOrFail is intended to be used in main to simply run the scheduler.
func (s *Scheduler) RunOrFail() {
	if err := s.Run(context.TODO()); err != nil {
		log.Fatalln(err)
	}
}

// TriggerNext wakes up an idle scheduler for an immediate pass.
// It is safe to call from any goroutine.
func (s *Scheduler) TriggerNext() {
	select {
	case s.wakeUpCh <- struct{}{}:
	default:
	}
}
