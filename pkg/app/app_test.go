package app

import (
	"bytes"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/console"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/device"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/framework"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/kns"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/mac"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/queue"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/spicmd"
)

type runningApp struct {
	app    *App
	host   net.Conn
	cancel context.CancelFunc
	errCh  chan error
}

func startApp(t *testing.T, opts Options) *runningApp {
	host, dev := net.Pipe()
	opts.Host = dev
	a, err := New(opts)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	r := &runningApp{app: a, host: host, cancel: cancel, errCh: make(chan error, 1)}
	go func() { r.errCh <- a.Run(ctx) }()
	return r
}

func (r *runningApp) stop(t *testing.T) {
	r.cancel()
	select {
	case err := <-r.errCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("app not stopped")
	}
	r.host.Close()
}

func TestNewErrors(t *testing.T) {
	testCases := []struct {
		name string
		opts Options
	}{
		{name: "no host", opts: Options{Frontend: FrontendAT}},
		{name: "spi no host", opts: Options{Frontend: FrontendSPI}},
		{name: "unknown frontend", opts: Options{Frontend: "i2c", Host: new(bytes.Buffer)}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.opts)
			require.Error(t, err)
		})
	}
}

func TestNewWiring(t *testing.T) {
	a, err := New(Options{Frontend: FrontendStandalone})
	require.NoError(t, err)
	require.NotNil(t, a.Loopback)
	require.Nil(t, a.Bridge)
	require.NotNil(t, a.Standalone)
	require.Nil(t, a.Console)
	require.Equal(t, device.DefaultSettings(), a.Settings.Get())
	require.Equal(t, 4, a.Pool.Size())
	require.True(t, a.idle())

	require.Equal(t, kns.StatusBadSetting, a.Scheduler.Register(framework.SlotMAC, a.Loopback))
}

func TestATSession(t *testing.T) {
	r := startApp(t, Options{Frontend: FrontendAT, Backend: queue.BackendArray, TxDelay: 5 * time.Millisecond})
	defer r.stop(t)

	client := console.NewClient(r.host)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go client.Run(ctx)

	_, err := client.Exec(ctx, "AT+PING=?")
	require.NoError(t, err)

	lines, err := client.Exec(ctx, "AT+ID=?")
	require.NoError(t, err)
	require.Equal(t, []string{"+ID=214012"}, lines)

	_, err = client.Exec(ctx, "AT+KMAC=0")
	require.NoError(t, err)
	lines, err = client.Exec(ctx, "AT+KMAC=?")
	require.NoError(t, err)
	require.Equal(t, []string{"+KMAC=0,000000000000"}, lines)

	_, err = client.Exec(ctx, "AT+TX=DEAD")
	require.NoError(t, err)
	select {
	case evt := <-client.EventChan():
		require.Equal(t, "+TX=0,DEAD", evt)
	case <-ctx.Done():
		t.Fatal("no TX report")
	}

	_, err = client.Exec(ctx, "AT+NOPE=?")
	require.Error(t, err)
}

func TestSPISession(t *testing.T) {
	r := startApp(t, Options{Frontend: FrontendSPI, Backend: queue.BackendChannel})
	defer r.stop(t)

	_, err := r.host.Write([]byte{byte(spicmd.CmdPing)})
	require.NoError(t, err)
	reply := make([]byte, 1)
	r.host.SetReadDeadline(time.Now().Add(time.Second))
	_, err = io.ReadFull(r.host, reply)
	require.NoError(t, err)
	require.Equal(t, []byte{1}, reply)
}

func TestStandalone(t *testing.T) {
	store := device.NewStore()
	store.Update(func(s *device.Settings) { s.Radio.Modulation = device.ModVLDA4 })
	a, err := New(Options{
		Frontend: FrontendStandalone,
		Settings: store,
		TxDelay:  time.Millisecond,
		Period:   time.Millisecond,
		Seed:     1,
	})
	require.NoError(t, err)
	a.Standalone.Count = 2

	ctx := context.Background()
	require.Eventually(t, func() bool {
		a.Scheduler.RunOnce(ctx)
		return a.Standalone.Finished()
	}, 2*time.Second, time.Millisecond)
	require.Equal(t, 2, a.Standalone.Done())
	require.Zero(t, a.Standalone.Failed())
	require.Zero(t, a.Pool.Count())
	profile, _, inited := a.Loopback.Profile()
	require.True(t, inited)
	require.Equal(t, mac.ProfileBasic, profile)
}

func TestStandaloneInitError(t *testing.T) {
	store := device.NewStore()
	store.Update(func(s *device.Settings) { s.Profile = mac.ProfileBlind })
	a, err := New(Options{Frontend: FrontendStandalone, Settings: store})
	require.NoError(t, err)

	ctx := context.Background()
	var pollErr error
	require.Eventually(t, func() bool {
		a.Loopback.Poll(ctx)
		pollErr = a.Standalone.Poll(ctx)
		return pollErr != nil
	}, time.Second, time.Millisecond)
	require.Error(t, pollErr)
	require.False(t, a.Standalone.Finished())
}

func TestPayloadBits(t *testing.T) {
	testCases := []struct {
		mod    device.Modulation
		bitlen uint16
		fail   bool
	}{
		{mod: device.ModLDA2, bitlen: 192},
		{mod: device.ModLDA2L, bitlen: 196},
		{mod: device.ModVLDA4, bitlen: 24},
		{mod: device.ModLDK, bitlen: 152},
		{mod: device.ModHDA4, fail: true},
	}
	for _, tc := range testCases {
		t.Run(tc.mod.String(), func(t *testing.T) {
			bitlen, err := PayloadBits(tc.mod)
			if tc.fail {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.bitlen, bitlen)
		})
	}
}
