package atcmd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseStream(t *testing.T) {
	testCases := []struct {
		name      string
		in        string
		remaining int
		consumed  bool
		frame     string
	}{
		{name: "no carriage return", in: "AT+PING=?", remaining: 9},
		{name: "too short", in: "AT+\r", remaining: 4},
		{name: "no start marker", in: "HELLO WORLD\r", remaining: 12},
		{name: "complete", in: "AT+PING=?\r", consumed: true, frame: "AT+PING=?\r"},
		{name: "leading garbage", in: "xyAT+FW=?\r", remaining: 2, consumed: true, frame: "AT+FW=?\r"},
		{name: "last command wins", in: "AT+FW=?\rAT+SN=?\r", remaining: 8, consumed: true, frame: "AT+SN=?\r"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := NewFifo(FifoSize)
			remaining, consumed := f.ParseStream([]byte(tc.in))
			require.Equal(t, tc.remaining, remaining)
			require.Equal(t, tc.consumed, consumed)
			require.Equal(t, tc.consumed, f.IsPending())
			if tc.consumed {
				require.Equal(t, tc.frame, string(f.PopNext()))
			}
			require.Nil(t, f.PopNext())
		})
	}
}

// feed delivers the stream one byte at a time the way the console does.
func feed(f *Fifo, stream string) {
	var buf []byte
	for i := 0; i < len(stream); i++ {
		buf = append(buf, stream[i])
		for {
			remaining, consumed := f.ParseStream(buf)
			buf = buf[:remaining]
			if !consumed {
				break
			}
		}
	}
}

func TestParseStreamByteByByte(t *testing.T) {
	f := NewFifo(FifoSize)
	feed(f, "noise AT+FW=?\r\nAT+ID=12\r")
	require.Equal(t, "AT+FW=?\r", string(f.PopNext()))
	require.Equal(t, "AT+ID=12\r", string(f.PopNext()))
	require.False(t, f.IsPending())
}

func TestFifoFullDropsNewest(t *testing.T) {
	f := NewFifo(FifoSize)
	for _, cmd := range []string{"AT+A=1\r", "AT+B=1\r", "AT+C=1\r", "AT+D=1\r"} {
		remaining, consumed := f.ParseStream([]byte(cmd))
		require.True(t, consumed)
		require.Zero(t, remaining)
	}
	require.Equal(t, 1, f.Dropped())
	for _, expect := range []string{"AT+A=1\r", "AT+B=1\r", "AT+C=1\r"} {
		require.Equal(t, expect, string(f.PopNext()))
	}
	require.Nil(t, f.PopNext())
}

func TestFrameTruncated(t *testing.T) {
	f := NewFifo(2)
	cmd := "AT+TX=" + strings.Repeat("A", 200) + "\r"
	_, consumed := f.ParseStream([]byte(cmd))
	require.True(t, consumed)
	raw := f.PopNext()
	require.Len(t, raw, FrameMaxLen-1)
	require.Equal(t, cmd[:FrameMaxLen-1], string(raw))
}

func TestAsciiToBits(t *testing.T) {
	testCases := []struct {
		in     string
		data   []byte
		bitlen int
	}{
		{in: "", data: []byte{}, bitlen: 0},
		{in: "A", data: []byte{0xA0}, bitlen: 4},
		{in: "0aFf", data: []byte{0x0A, 0xFF}, bitlen: 16},
		{in: "12345", data: []byte{0x12, 0x34, 0x50}, bitlen: 20},
		{in: "12G4", data: nil, bitlen: 0},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			data, bitlen := AsciiToBits(tc.in)
			require.Equal(t, tc.data, data)
			require.Equal(t, tc.bitlen, bitlen)
		})
	}
}

func TestFormatBits(t *testing.T) {
	testCases := []struct {
		name   string
		data   []byte
		bitlen int
		expect string
	}{
		{name: "whole bytes", data: []byte{0x01, 0xAB}, bitlen: 16, expect: "01AB"},
		{name: "nibble", data: []byte{0x01, 0xAB}, bitlen: 12, expect: "01A"},
		{name: "one bit", data: []byte{0x80}, bitlen: 1, expect: "8"},
		{name: "seven bits", data: []byte{0xFE}, bitlen: 7, expect: "FE"},
		{name: "short data", data: []byte{0x12}, bitlen: 24, expect: "12"},
		{name: "empty", data: []byte{0x12}, bitlen: 0, expect: ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expect, FormatBits(tc.data, tc.bitlen))
		})
	}
}
