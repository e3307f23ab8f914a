package mac

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/kns"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/queue"
)

func TestAppEventLayout(t *testing.T) {
	evt := NewSendData([]byte{0xAA, 0xBB, 0xC0}, 20, SFPack)
	b, err := evt.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, AppEventSize)
	require.Equal(t, []byte{byte(AppEvtSendData), byte(SFPack), 20, 0, 0xAA, 0xBB, 0xC0}, b[:7])
	require.Equal(t, []byte{0xAA, 0xBB, 0xC0}, evt.Payload())

	initEvt := AppEvent{ID: AppEvtInit, Profile: ProfileBlind,
		Blind: BlindConfig{RetxNb: 3, NbParallel: 2, RetxPeriodS: 0x0102}}
	b, err = initEvt.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, []byte{byte(AppEvtInit), byte(ProfileBlind), 0, 0, 3, 2, 0x02, 0x01, 0, 0}, b[:10])

	var decoded AppEvent
	require.NoError(t, decoded.UnmarshalBinary(b))
	require.Equal(t, initEvt, decoded)
	require.Error(t, decoded.UnmarshalBinary(b[:4]))
}

func TestServiceEventLayout(t *testing.T) {
	evt := NewTxEvent(SrvcEvtTxDone, AppEvtSendData, []byte{1, 2}, 16)
	evt.BcMc = 0x1234
	b, err := evt.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, ServiceEventSize)
	require.Equal(t, []byte{byte(SrvcEvtTxDone), byte(AppEvtSendData), 16, 0, 0x34, 0x12, 1, 2}, b[:8])
	var decoded ServiceEvent
	require.NoError(t, decoded.UnmarshalBinary(b))
	require.Equal(t, evt, decoded)
}

func TestEventNames(t *testing.T) {
	require.Equal(t, "STOP_SEND_DATA", AppEvtStopSendData.String())
	require.Equal(t, "TXACK_TIMEOUT", SrvcEvtTxAckTimeout.String())
	require.Equal(t, "SRVC_EVT(99)", ServiceEventID(99).String())
	require.True(t, SrvcEvtRxTimeout.HasTxContext())
	require.False(t, SrvcEvtDlBC.HasTxContext())
}

func TestBlindConfigValidate(t *testing.T) {
	require.NoError(t, BlindConfig{RetxNb: 1, NbParallel: 1, RetxPeriodS: 60}.Validate())
	require.Error(t, BlindConfig{RetxNb: 0, NbParallel: 1, RetxPeriodS: 60}.Validate())
	require.Error(t, BlindConfig{RetxNb: 1, NbParallel: 1, RetxPeriodS: 59}.Validate())
	require.Equal(t, BlindConfig{RetxNb: -1}, ParseBlindConfig([]byte{0xff}))
}

func TestQueueGeometry(t *testing.T) {
	for _, backend := range []queue.Backend{queue.BackendArray, queue.BackendChannel} {
		q, err := NewQueueSet(backend)
		require.NoError(t, err)
		conf, ok := q.Config(QueueApp2Mac)
		require.True(t, ok)
		require.Equal(t, AppEventSize, conf.ElemSize)
		require.Equal(t, QueueCapacity, conf.Capacity)
	}
}

type loopbackFixture struct {
	t  *testing.T
	q  *queue.Set
	lb *Loopback
}

func newLoopbackFixture(t *testing.T) *loopbackFixture {
	q, err := NewQueueSet(queue.BackendArray)
	require.NoError(t, err)
	lb := NewLoopback(q)
	lb.TxDelay = time.Millisecond
	return &loopbackFixture{t: t, q: q, lb: lb}
}

func (f *loopbackFixture) push(evt AppEvent) *loopbackFixture {
	require.Equal(f.t, kns.StatusOK, PushAppEvent(f.q, evt))
	return f
}

// expect polls the loopback until the next service event is available.
func (f *loopbackFixture) expect(id ServiceEventID, app AppEventID) ServiceEvent {
	var evt ServiceEvent
	require.Eventually(f.t, func() bool {
		f.lb.Poll(context.Background())
		var st kns.Status
		evt, st = PopServiceEvent(f.q)
		return st == kns.StatusOK
	}, time.Second, time.Millisecond)
	require.Equal(f.t, id, evt.ID)
	require.Equal(f.t, app, evt.AppEvt)
	return evt
}

func TestLoopbackInit(t *testing.T) {
	f := newLoopbackFixture(t)
	f.push(AppEvent{ID: AppEvtInit, Profile: ProfileBlind})
	f.expect(SrvcEvtError, AppEvtInit)

	blind := BlindConfig{RetxNb: 2, NbParallel: 1, RetxPeriodS: 120}
	f.push(AppEvent{ID: AppEvtInit, Profile: ProfileBlind, Blind: blind})
	f.expect(SrvcEvtOK, AppEvtInit)
	prfl, cfg, ok := f.lb.Profile()
	require.True(t, ok)
	require.Equal(t, ProfileBlind, prfl)
	require.Equal(t, blind, cfg)
}

func TestLoopbackSendBeforeInit(t *testing.T) {
	f := newLoopbackFixture(t)
	f.push(NewSendData([]byte{1}, 8, SFNone))
	evt := f.expect(SrvcEvtError, AppEvtSendData)
	require.Equal(t, []byte{1}, evt.Payload())
}

func TestLoopbackTxDone(t *testing.T) {
	woken := make(chan struct{}, 1)
	f := newLoopbackFixture(t)
	f.lb.Wake = func() { woken <- struct{}{} }
	f.push(AppEvent{ID: AppEvtInit, Profile: ProfileBasic})
	f.expect(SrvcEvtOK, AppEvtInit)

	f.push(NewSendData([]byte{0xDE, 0xAD}, 16, SFNone))
	f.expect(SrvcEvtOK, AppEvtSendData)
	evt := f.expect(SrvcEvtTxDone, AppEvtSendData)
	require.Equal(t, []byte{0xDE, 0xAD}, evt.Payload())
	<-woken
}

func TestLoopbackMailRequest(t *testing.T) {
	f := newLoopbackFixture(t)
	f.push(AppEvent{ID: AppEvtInit})
	f.expect(SrvcEvtOK, AppEvtInit)

	f.push(NewSendData([]byte{0x42}, 8, SFMailRequest))
	f.expect(SrvcEvtOK, AppEvtSendData)
	f.expect(SrvcEvtTxDone, AppEvtSendData)
	f.expect(SrvcEvtDlBC, AppEvtSendData)
	evt := f.expect(SrvcEvtTxAckDone, AppEvtSendData)
	require.Equal(t, []byte{0x42}, evt.Payload())
}

func TestLoopbackTimeoutOutcome(t *testing.T) {
	f := newLoopbackFixture(t)
	f.lb.Outcome = SrvcEvtTxTimeout
	f.push(AppEvent{ID: AppEvtInit})
	f.expect(SrvcEvtOK, AppEvtInit)
	f.push(NewSendData([]byte{0x01}, 4, SFNone))
	f.expect(SrvcEvtOK, AppEvtSendData)
	f.expect(SrvcEvtTxTimeout, AppEvtSendData)
}

func TestLoopbackStopAndRx(t *testing.T) {
	f := newLoopbackFixture(t)
	f.lb.TxDelay = time.Hour
	f.push(AppEvent{ID: AppEvtInit})
	f.expect(SrvcEvtOK, AppEvtInit)
	f.push(NewSendData([]byte{0x01}, 8, SFNone))
	f.push(AppEvent{ID: AppEvtStopSendData})
	f.expect(SrvcEvtOK, AppEvtSendData)
	f.expect(SrvcEvtOK, AppEvtStopSendData)
	require.Empty(t, f.lb.pending)

	f.push(AppEvent{ID: AppEvtRxStart})
	f.expect(SrvcEvtOK, AppEvtRxStart)
	require.True(t, f.lb.Receiving())
	f.push(AppEvent{ID: AppEvtRxStop})
	f.expect(SrvcEvtOK, AppEvtRxStop)
	require.False(t, f.lb.Receiving())
}

func TestLoopbackCompletionsWithFullMac2App(t *testing.T) {
	f := newLoopbackFixture(t)
	f.lb.TxDelay = time.Hour
	f.push(AppEvent{ID: AppEvtInit})
	f.expect(SrvcEvtOK, AppEvtInit)
	f.push(NewSendData([]byte{0x01}, 8, SFMailRequest))
	f.expect(SrvcEvtOK, AppEvtSendData)
	for _, b := range []byte{0x02, 0x03} {
		f.push(NewSendData([]byte{b}, 8, SFNone))
		f.expect(SrvcEvtOK, AppEvtSendData)
	}

	// the mail request alone fills MAC2APP
	for seq := uint32(1); seq <= 3; seq++ {
		require.Equal(t, kns.StatusOK, PushInternalEvent(f.q, InternalEvent{Kind: InternalRadioDone, Seq: seq}))
	}

	var got []ServiceEventID
	for n := 0; n < 100 && len(got) < 5; n++ {
		f.lb.Poll(context.Background())
		if evt, st := PopServiceEvent(f.q); st == kns.StatusOK {
			got = append(got, evt.ID)
		}
	}
	require.Equal(t, []ServiceEventID{
		SrvcEvtTxDone, SrvcEvtDlBC, SrvcEvtTxAckDone, SrvcEvtTxDone, SrvcEvtTxDone,
	}, got)
	require.False(t, f.q.IsDataInAnyQueue())
	require.Empty(t, f.lb.pending)
}
