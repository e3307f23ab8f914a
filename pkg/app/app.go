// Package app wires the device together: the MAC queue set, the outbound
// message pool, the scheduler, a command front-end and a MAC backend.
package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/golang/glog"

	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/atcmd"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/console"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/device"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/framework"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/mac"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/mac/comm"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/queue"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/spicmd"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/userdata"
)

// Frontend selects the application task.
type Frontend string

// Front-ends.
const (
	FrontendAT         Frontend = "at"
	FrontendSPI        Frontend = "spi"
	FrontendStandalone Frontend = "standalone"
)

// Options configures an App.
type Options struct {
	Frontend Frontend
	Backend  queue.Backend
	PoolSize int
	// Settings defaults to factory settings kept in memory.
	Settings *device.Store
	// Host is the host link of the AT and SPI front-ends.
	Host io.ReadWriter
	// MAC is the transport to a remote stack, the loopback MAC is used
	// when nil.
	MAC comm.PacketReadWriter
	// MACRunner runs alongside the bridge when not nil.
	MACRunner framework.Runnable
	// TxDelay is the radio delay of the loopback MAC.
	TxDelay time.Duration
	// Period and Seed configure the standalone front-end.
	Period time.Duration
	Seed   int64
}

// App is the context object owning every part of the device.
type App struct {
	Settings  *device.Store
	Queues    *queue.Set
	Pool      *userdata.Pool
	Scheduler *framework.Scheduler

	// MAC backends, exactly one is set.
	Loopback *mac.Loopback
	Bridge   *comm.Bridge

	// Front-ends, set according to Options.Frontend.
	Console    *console.Console
	Manager    *atcmd.Manager
	Link       *spicmd.StreamLink
	Machine    *spicmd.Machine
	Standalone *Standalone

	host    io.ReadWriter
	runners []framework.Runnable
	pending []func() bool
}

// New builds an App. Registration problems are reported all at once.
func New(opts Options) (*App, error) {
	queues, err := mac.NewQueueSet(opts.Backend)
	if err != nil {
		return nil, err
	}
	a := &App{
		Settings:  opts.Settings,
		Queues:    queues,
		Pool:      userdata.NewPool(opts.PoolSize),
		Scheduler: framework.NewScheduler(),
		host:      opts.Host,
	}
	if a.Settings == nil {
		a.Settings = device.NewStore()
	}
	a.Scheduler.Idle = a.idle

	var errs framework.AggregatedError
	errs.Add(a.setupMAC(opts))
	errs.Add(a.setupFrontend(opts))
	if err := errs.Aggregate(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) setupMAC(opts Options) error {
	if opts.MAC == nil {
		a.Loopback = mac.NewLoopback(a.Queues)
		a.Loopback.TxDelay = opts.TxDelay
		a.Loopback.Wake = a.Scheduler.TriggerNext
		return a.Scheduler.Register(framework.SlotMAC, a.Loopback).Err()
	}
	a.Bridge = comm.NewBridge(a.Queues, opts.MAC)
	a.Bridge.Wake = a.Scheduler.TriggerNext
	a.runners = append(a.runners, a.Bridge)
	a.pending = append(a.pending, a.Bridge.Pending)
	if opts.MACRunner != nil {
		a.runners = append(a.runners, opts.MACRunner)
	}
	return a.Scheduler.Register(framework.SlotMAC, a.Bridge).Err()
}

func (a *App) setupFrontend(opts Options) error {
	if opts.Frontend != FrontendStandalone && opts.Host == nil {
		return fmt.Errorf("front-end %q requires a host link", opts.Frontend)
	}
	var errs framework.AggregatedError
	switch opts.Frontend {
	case FrontendAT, "":
		c, err := console.New(opts.Host)
		if err != nil {
			return err
		}
		c.Wake = a.Scheduler.TriggerNext
		a.Console = c
		a.Manager = atcmd.NewManager(c, a.Settings, a.Pool, a.Queues)
		errs.Add(a.Manager.Start())
		errs.Add(a.Scheduler.Register(framework.SlotApp, a.Manager).Err())
		errs.Add(a.Scheduler.Register(framework.SlotConsole, c).Err())
		a.runners = append(a.runners, a.hostRunner("console", c))
		a.pending = append(a.pending, a.Manager.Pending, c.Pending)
	case FrontendSPI:
		a.Link = spicmd.NewStreamLink(opts.Host)
		m, err := spicmd.NewMachine(a.Link, a.Settings, a.Pool, a.Queues)
		if err != nil {
			return err
		}
		m.Wake = a.Scheduler.TriggerNext
		a.Machine = m
		errs.Add(m.Start())
		errs.Add(a.Scheduler.Register(framework.SlotApp, m).Err())
		a.runners = append(a.runners, a.hostRunner("spi-link", a.Link))
		a.pending = append(a.pending, m.Pending)
	case FrontendStandalone:
		a.Standalone = NewStandalone(a.Settings, a.Pool, a.Queues, opts.Seed)
		a.Standalone.Period = opts.Period
		errs.Add(a.Scheduler.Register(framework.SlotApp, a.Standalone).Err())
	default:
		return fmt.Errorf("unknown front-end %q", opts.Frontend)
	}
	return errs.Aggregate()
}

func (a *App) idle() bool {
	if a.Queues.IsDataInAnyQueue() {
		return false
	}
	for _, pending := range a.pending {
		if pending() {
			return false
		}
	}
	return true
}

// Name implements framework.Named.
func (a *App) Name() string {
	return "kns-app"
}

// Run implements framework.Runnable. It runs the scheduler and the
// receive loops of the host link and the MAC bridge, the first one to
// stop stops the others.
func (a *App) Run(ctx context.Context) error {
	err := framework.NewRunnerWith(ctx).
		FailFast().
		Go(framework.NamedRun("scheduler", a.Scheduler)).
		Go(a.runners...).
		Wait()
	if err != nil {
		glog.Errorf("app stopped: %v", err)
	}
	return err
}

// hostRunner closes the host link on cancellation to unblock its reader.
func (a *App) hostRunner(name string, r framework.Runnable) framework.Runnable {
	r = framework.NamedRun(name, r)
	if closer, ok := a.host.(io.Closer); ok {
		return framework.WithCloser(r, closer)
	}
	return r
}
