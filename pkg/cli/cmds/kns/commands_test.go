package kns

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func findCmd(t *testing.T, name string) *atCmd {
	for n := range atCmds {
		if atCmds[n].Name == name {
			return &atCmds[n]
		}
	}
	t.Fatalf("no command %s", name)
	return nil
}

func TestLine(t *testing.T) {
	testCases := []struct {
		name   string
		args   []string
		expect string
		fail   bool
	}{
		{name: "ping", expect: "AT+PING=?"},
		{name: "id", args: []string{"1234"}, expect: "AT+ID=1234"},
		{name: "kmac", args: []string{"1", "0102003C0000"}, expect: "AT+KMAC=1,0102003C0000"},
		{name: "tx", args: []string{"DEAD", "0x1"}, expect: "AT+TX=DEAD,0x1"},
		{name: "tx", fail: true},
		{name: "rx", fail: true},
		{name: "rconf.save", expect: "AT+SAVE_RCONF"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			line, err := findCmd(t, tc.name).Line(tc.args)
			if tc.fail {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expect, line)
		})
	}
}
