package device

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/kns"
)

func TestRadioConfRoundTrip(t *testing.T) {
	conf := RadioConf{MinFreq: 401625000, MaxFreq: 401635000, RFLevel: -3, Modulation: ModVLDA4}
	b := conf.Bytes()
	require.Len(t, b, RadioConfSize)
	parsed, err := ParseRadioConf(b)
	require.NoError(t, err)
	require.Equal(t, conf, parsed)

	_, err = ParseRadioConf(b[:8])
	require.Error(t, err)
	bad := RadioConf{MinFreq: 2, MaxFreq: 1}.Bytes()
	_, err = ParseRadioConf(bad)
	require.Error(t, err)
}

func TestModulationNames(t *testing.T) {
	require.Equal(t, "LDA2L", ModLDA2L.String())
	require.Equal(t, "UNKNOWN", Modulation(9).String())
}

func TestDefaults(t *testing.T) {
	s := DefaultSettings()
	require.Equal(t, SNLength, len(s.SN))
	require.Equal(t, []byte(DefaultSN), s.SNBytes())
	require.Len(t, FirmwareBytes(), FirmwareLength)
}

func TestStorePersists(t *testing.T) {
	dir, err := ioutil.TempDir("", "kns-settings")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "settings.json")

	s, err := OpenStore(path)
	require.NoError(t, err)
	require.Equal(t, DefaultSettings(), s.Get())

	s.Update(func(st *Settings) { st.ID = 42 })
	require.Equal(t, uint32(DefaultID), s.Saved().ID)
	require.NoError(t, s.Save())
	require.Equal(t, uint32(42), s.Saved().ID)

	reopened, err := OpenStore(path)
	require.NoError(t, err)
	require.Equal(t, uint32(42), reopened.Get().ID)
}

func TestStoreWriteFailure(t *testing.T) {
	s := NewStore()
	s.Path = filepath.Join(os.DevNull, "nope", "settings.json")
	require.Equal(t, kns.StatusNVMAccessErr, kns.StatusOf(s.Save()))
}

func TestMemoryStore(t *testing.T) {
	s := NewStore()
	s.Update(func(st *Settings) { st.Prepass = true })
	require.NoError(t, s.Save())
	require.True(t, s.Saved().Prepass)
}
