// Package env provides the configuration of the device binaries from
// KNS_* environment variables and command line flags.
package env

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/app"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/console"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/device"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/framework"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/mac"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/mac/comm"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/mac/comm/mqtt"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/mac/comm/stream"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/mac/comm/websocket"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/queue"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/userdata"
)

// Front-end kinds.
const (
	FrontendAT         = string(app.FrontendAT)
	FrontendSPI        = string(app.FrontendSPI)
	FrontendStandalone = string(app.FrontendStandalone)
)

// MACLoopback selects the in-process MAC.
const MACLoopback = "loopback"

// Config provides common options to setup the device.
type Config struct {
	// Console is the host link: a serial port name, tcp://host:port or
	// listen://addr.
	Console  string
	BaudRate int
	// Frontend is FrontendAT, FrontendSPI or FrontendStandalone.
	Frontend string
	// MAC is MACLoopback or the URL of a remote stack:
	// tcp://host:port, ws://host:port/path or mqtt://host:port/prefix.
	MAC          string
	QueueBackend string
	PoolSize     int
	// SettingsFile persists the device settings, empty keeps them in memory.
	SettingsFile string
	// Profile is the MAC profile of fresh settings: basic or blind.
	Profile string
	// SN overrides the serial number of the settings, "machine" derives
	// it from the machine id.
	SN string
	// Device names the device on the bridge, the device id when empty.
	Device string
	// TxDelay is the radio delay of the loopback MAC.
	TxDelay time.Duration
	// Period is the transmission period of the standalone front-end.
	Period time.Duration
	// MQTTURL is the broker watched by the monitor.
	MQTTURL string
}

var defaultConfig = Config{
	Console:      "listen://127.0.0.1:4000",
	BaudRate:     console.DefaultBaudRate,
	Frontend:     FrontendAT,
	MAC:          MACLoopback,
	QueueBackend: "array",
	PoolSize:     userdata.DefaultPoolSize,
	Profile:      "basic",
	SN:           "machine",
	TxDelay:      mac.DefaultTxDelay,
	Period:       app.DefaultPeriod,
	MQTTURL:      "mqtt://localhost:1883/kns/",
}

func init() {
	loadEnv(&defaultConfig, os.Getenv)
}

func loadEnv(c *Config, getenv func(string) string) {
	if val := getenv("KNS_CONSOLE"); val != "" {
		c.Console = val
	}
	if val, err := strconv.Atoi(getenv("KNS_BAUD")); err == nil {
		c.BaudRate = val
	}
	if val := getenv("KNS_FRONTEND"); val != "" {
		c.Frontend = val
	}
	if val := getenv("KNS_MAC"); val != "" {
		c.MAC = val
	}
	if val := getenv("KNS_QUEUE_BACKEND"); val != "" {
		c.QueueBackend = val
	}
	if val, err := strconv.Atoi(getenv("KNS_POOL_SIZE")); err == nil {
		c.PoolSize = val
	}
	if val := getenv("KNS_SETTINGS"); val != "" {
		c.SettingsFile = val
	}
	if val := getenv("KNS_PROFILE"); val != "" {
		c.Profile = val
	}
	if val := getenv("KNS_SN"); val != "" {
		c.SN = val
	}
	if val := getenv("KNS_DEVICE"); val != "" {
		c.Device = val
	}
	if val, err := time.ParseDuration(getenv("KNS_TX_DELAY")); err == nil {
		c.TxDelay = val
	}
	if val, err := time.ParseDuration(getenv("KNS_PERIOD")); err == nil {
		c.Period = val
	}
	if val := getenv("KNS_MQTT_URL"); val != "" {
		c.MQTTURL = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Console, "console", defaultConfig.Console, "Host link: serial port, tcp://host:port or listen://addr")
	flag.IntVar(&defaultConfig.BaudRate, "baud", defaultConfig.BaudRate, "Serial baud rate")
	flag.StringVar(&defaultConfig.Frontend, "frontend", defaultConfig.Frontend, "Command front-end: at, spi or standalone")
	flag.StringVar(&defaultConfig.MAC, "mac", defaultConfig.MAC, "MAC: loopback or remote stack URL")
	flag.StringVar(&defaultConfig.QueueBackend, "queue-backend", defaultConfig.QueueBackend, "Queue backend: array or channel")
	flag.IntVar(&defaultConfig.PoolSize, "pool-size", defaultConfig.PoolSize, "Outbound message pool size")
	flag.StringVar(&defaultConfig.SettingsFile, "settings", defaultConfig.SettingsFile, "Settings file")
	flag.StringVar(&defaultConfig.Profile, "profile", defaultConfig.Profile, "Default MAC profile: basic or blind")
	flag.StringVar(&defaultConfig.SN, "sn", defaultConfig.SN, "Device serial number, derived from the machine id when set to 'machine'")
	flag.StringVar(&defaultConfig.Device, "device", defaultConfig.Device, "Device name on the MAC bridge")
	flag.DurationVar(&defaultConfig.TxDelay, "tx-delay", defaultConfig.TxDelay, "Loopback MAC radio delay")
	flag.DurationVar(&defaultConfig.Period, "period", defaultConfig.Period, "Standalone transmission period")
	flag.StringVar(&defaultConfig.MQTTURL, "mqtt", defaultConfig.MQTTURL, "MQTT broker URL")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Validate checks every option and reports all problems at once.
func (c *Config) Validate() error {
	var errs framework.AggregatedError
	if c.Console == "" {
		if c.Frontend != FrontendStandalone {
			errs.Add(fmt.Errorf("console must be specified"))
		}
	} else if _, err := console.ParseTarget(c.Console, c.BaudRate); err != nil {
		errs.Add(err)
	}
	switch c.Frontend {
	case FrontendAT, FrontendSPI, FrontendStandalone:
	default:
		errs.Add(fmt.Errorf("unknown front-end %q", c.Frontend))
	}
	if _, err := queue.ParseBackend(c.QueueBackend); err != nil {
		errs.Add(err)
	}
	if c.PoolSize < 1 {
		errs.Add(fmt.Errorf("invalid pool size %d", c.PoolSize))
	}
	if _, err := c.ProfileID(); err != nil {
		errs.Add(err)
	}
	if c.MAC != MACLoopback {
		if u, err := url.Parse(c.MAC); err != nil {
			errs.Add(fmt.Errorf("invalid MAC URL: %v", err))
		} else if u.Scheme != "tcp" && u.Scheme != "ws" && u.Scheme != "mqtt" {
			errs.Add(fmt.Errorf("unknown MAC URL scheme: %q", u.Scheme))
		}
	}
	return errs.Aggregate()
}

// ProfileID converts Profile.
func (c *Config) ProfileID() (mac.ProfileID, error) {
	switch strings.ToLower(c.Profile) {
	case "", "basic":
		return mac.ProfileBasic, nil
	case "blind":
		return mac.ProfileBlind, nil
	}
	return mac.ProfileBasic, fmt.Errorf("unknown profile %q", c.Profile)
}

// Backend converts QueueBackend.
func (c *Config) Backend() queue.Backend {
	b, _ := queue.ParseBackend(c.QueueBackend)
	return b
}

// NewSettings opens the settings store and applies the overrides.
func (c *Config) NewSettings() (*device.Store, error) {
	store, err := device.OpenStore(c.SettingsFile)
	if err != nil {
		return nil, fmt.Errorf("open settings error: %v", err)
	}
	sn := c.SN
	if sn == "machine" {
		sn = MachineSerial()
	}
	profile, _ := c.ProfileID()
	_, statErr := os.Stat(c.SettingsFile)
	fresh := c.SettingsFile == "" || os.IsNotExist(statErr)
	store.Update(func(s *device.Settings) {
		if sn != "" {
			s.SN = sn
		}
		if fresh {
			s.Profile = profile
		}
	})
	return store, nil
}

// DeviceName returns the device name on the bridge.
func (c *Config) DeviceName(settings device.Settings) string {
	if c.Device != "" {
		return c.Device
	}
	return strconv.FormatUint(uint64(settings.ID), 10)
}

// NewConsoleDialer creates the dialer of the host link.
func (c *Config) NewConsoleDialer() (console.Dialer, error) {
	return console.ParseTarget(c.Console, c.BaudRate)
}

// MACLink is the transport to a remote stack.
type MACLink struct {
	ReadWriter comm.PacketReadWriter
	// Runner must run alongside the bridge when not nil.
	Runner framework.Runnable
}

// DialMAC connects to the remote stack. It returns nil for the loopback MAC.
func (c *Config) DialMAC(ctx context.Context, settings device.Settings) (*MACLink, error) {
	if c.MAC == MACLoopback {
		return nil, nil
	}
	u, err := url.Parse(c.MAC)
	if err != nil {
		return nil, fmt.Errorf("invalid MAC URL: %v", err)
	}
	switch u.Scheme {
	case "tcp":
		var dialer net.Dialer
		conn, err := dialer.DialContext(ctx, "tcp", u.Host)
		if err != nil {
			return nil, err
		}
		return &MACLink{ReadWriter: stream.New(conn)}, nil
	case "ws":
		rw, err := websocket.Dial(c.MAC)
		if err != nil {
			return nil, err
		}
		return &MACLink{ReadWriter: rw}, nil
	case "mqtt":
		ep, err := mqtt.NewEndpoint(c.MAC, mqtt.Meta{
			Device:   c.DeviceName(settings),
			Firmware: device.FirmwareVersion,
			Labels:   map[string]string{"frontend": c.Frontend, "sn": settings.SN},
		})
		if err != nil {
			return nil, err
		}
		return &MACLink{ReadWriter: ep.ReadWriter, Runner: ep.Runner()}, nil
	}
	return nil, fmt.Errorf("unknown MAC URL scheme: %q", u.Scheme)
}

// ServeStack hosts a loopback stack for every device reaching the MAC URL
// until ctx is done: devices connect to a TCP listener or a websocket
// endpoint, or are served over the MQTT topics of Device.
func (c *Config) ServeStack(ctx context.Context) error {
	u, err := url.Parse(c.MAC)
	if err != nil {
		return fmt.Errorf("invalid MAC URL: %v", err)
	}
	serve := func(rw comm.PacketReadWriter) error {
		server, _, err := comm.NewLoopbackServer(c.Backend(), c.TxDelay, rw)
		if err != nil {
			return err
		}
		return server.Run(ctx)
	}
	switch u.Scheme {
	case "tcp":
		var lc net.ListenConfig
		ln, err := lc.Listen(ctx, "tcp", u.Host)
		if err != nil {
			return err
		}
		glog.Infof("stack: listening on %s", ln.Addr())
		return framework.RunWithContextCloser(ctx, ln, func() error {
			for {
				conn, err := ln.Accept()
				if err != nil {
					return err
				}
				glog.Infof("stack: device %s connected", conn.RemoteAddr())
				go func() {
					if err := serve(stream.New(conn)); err != nil && err != context.Canceled {
						glog.Errorf("stack: device %s: %v", conn.RemoteAddr(), err)
					}
				}()
			}
		})
	case "ws":
		return websocket.ListenAndServe(ctx, u.Host, func(rw *websocket.ReadWriter) error {
			return serve(rw)
		})
	case "mqtt":
		if c.Device == "" {
			return fmt.Errorf("device name required to serve over MQTT")
		}
		broker, err := mqtt.NewBrokerFromURL(c.MAC)
		if err != nil {
			return err
		}
		if token := broker.Connect(); token.Wait() && token.Error() != nil {
			return token.Error()
		}
		defer broker.Close()
		rw := mqtt.NewPacketReadWriter(broker).ForStack(c.Device)
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go rw.Run(ctx)
		return serve(rw)
	}
	return fmt.Errorf("unknown MAC URL scheme: %q", u.Scheme)
}

// AppOptions builds the options of the device from the config. host and
// link are nil for the standalone front-end and the loopback MAC.
func (c *Config) AppOptions(settings *device.Store, host io.ReadWriter, link *MACLink) app.Options {
	opts := app.Options{
		Frontend: app.Frontend(c.Frontend),
		Backend:  c.Backend(),
		PoolSize: c.PoolSize,
		Settings: settings,
		Host:     host,
		TxDelay:  c.TxDelay,
		Period:   c.Period,
		Seed:     time.Now().UnixNano(),
	}
	if link != nil {
		opts.MAC = link.ReadWriter
		opts.MACRunner = link.Runner
	}
	return opts
}

// MustValidate validates the config and fails on error.
func (c *Config) MustValidate() *Config {
	if err := c.Validate(); err != nil {
		log.Fatalln(err)
	}
	return c
}
