package msgs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/mac"
)

func TestTypedEnvelope(t *testing.T) {
	evt := mac.NewSendData([]byte{0xDE, 0xAD, 0xB0}, 20, mac.SFMailRequest)
	typed, err := TypedFrom(FromAppEvent(evt))
	require.NoError(t, err)
	require.True(t, typed.IsCommand())
	typed.Sequence = 7

	data, err := typed.Encode()
	require.NoError(t, err)
	decoded, err := DecodeTyped(data)
	require.NoError(t, err)
	require.Equal(t, uint32(7), decoded.Sequence)

	msg, err := decoded.Decode()
	require.NoError(t, err)
	appMsg, ok := msg.(*AppEventMsg)
	require.True(t, ok)
	require.Equal(t, []byte{0xDE, 0xAD, 0xB0}, appMsg.Data)
	back, err := appMsg.AppEvent()
	require.NoError(t, err)
	require.Equal(t, evt, back)
}

func TestInitEvent(t *testing.T) {
	evt := mac.AppEvent{ID: mac.AppEvtInit, Profile: mac.ProfileBlind,
		Blind: mac.BlindConfig{RetxNb: -1, NbParallel: 2, RetxPeriodS: 300}}
	back, err := FromAppEvent(evt).AppEvent()
	require.NoError(t, err)
	require.Equal(t, evt, back)
}

func TestServiceEvent(t *testing.T) {
	evt := mac.NewTxEvent(mac.SrvcEvtDlBC, mac.AppEvtSendData, []byte{1, 2, 3}, 24)
	evt.BcMc = 0xBEEF
	typed, err := TypedFrom(FromServiceEvent(evt))
	require.NoError(t, err)
	require.True(t, typed.IsEvent())
	msg, err := typed.Decode()
	require.NoError(t, err)
	back, err := msg.(*ServiceEventMsg).ServiceEvent()
	require.NoError(t, err)
	require.Equal(t, evt, back)
	require.Equal(t, "SRVC DL_BC/SEND_DATA bits=24 data=010203", Describe(msg))
}

func TestDecodeErrors(t *testing.T) {
	_, err := (&Typed{TypeId: 0x1234}).Decode()
	require.Equal(t, &ErrUnknownType{TypeID: 0x1234}, err)

	_, err = TypedFrom(&Typed{})
	require.Equal(t, ErrNotSerializable, err)

	_, err = (&AppEventMsg{BitLen: 201}).AppEvent()
	require.Error(t, err)
	_, err = (&ServiceEventMsg{Data: make([]byte, 49)}).ServiceEvent()
	require.Error(t, err)
}
