package console

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type clientTestEnv struct {
	t      *testing.T
	rw     *chanReadWriter
	client *Client
}

func newClientTestEnv(t *testing.T) *clientTestEnv {
	rw := newChanReadWriter()
	return &clientTestEnv{t: t, rw: rw, client: NewClient(rw)}
}

func (e *clientTestEnv) reply(lines ...string) *clientTestEnv {
	for _, line := range lines {
		e.client.HandleLine(line)
	}
	return e
}

func (e *clientTestEnv) result(cmd *Command) Result {
	select {
	case r := <-cmd.ResultChan():
		return r
	case <-time.After(time.Second):
		e.t.Fatalf("no result for %s", cmd.Line())
	}
	return Result{}
}

func (e *clientTestEnv) noResult(cmd *Command) {
	select {
	case r := <-cmd.ResultChan():
		e.t.Fatalf("unexpected result for %s: %v", cmd.Line(), r)
	default:
	}
}

func TestClientReplies(t *testing.T) {
	testCases := []struct {
		name    string
		command string
		replies []string
		lines   []string
		code    int
	}{
		{name: "ok", command: "AT+PING=?", replies: []string{"+OK"}},
		{name: "status", command: "AT+ID=?", replies: []string{"+ID=214012"}, lines: []string{"+ID=214012"}},
		{name: "status with ok", command: "AT+RCONF=?", replies: []string{"+RCONF=401625000,401635000,27,LDA2", "+OK"},
			lines: []string{"+RCONF=401625000,401635000,27,LDA2"}},
		{name: "error", command: "AT+TX=0102", replies: []string{"+ERROR=21"}, code: 21},
		{name: "blank lines", command: "AT+SN=?", replies: []string{"", "  ", "+SN=SMD_10__TEST02"}, lines: []string{"+SN=SMD_10__TEST02"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newClientTestEnv(t)
			cmd := env.client.Do(tc.command)
			env.reply(tc.replies...)
			r := env.result(cmd)
			require.Equal(t, tc.lines, r.Lines)
			if tc.code != 0 {
				require.Equal(t, &CommandError{Code: tc.code}, r.Err)
			} else {
				require.NoError(t, r.Err)
			}
			require.Equal(t, tc.command+"\r", env.rw.written())
		})
	}
}

func TestClientOrderAndEvents(t *testing.T) {
	env := newClientTestEnv(t)
	tx := env.client.Do("AT+TX=DEAD")
	ping := env.client.Do("AT+PING=?")

	env.reply("+TX=0,DEAD")
	env.noResult(tx)
	require.Equal(t, "+TX=0,DEAD", <-env.client.EventChan())

	env.reply("+OK")
	require.NoError(t, env.result(tx).Err)
	env.noResult(ping)
	env.reply("+OK")
	require.NoError(t, env.result(ping).Err)

	env.reply("+DL=0102", "garbage", "+OK")
	require.Equal(t, "+DL=0102", <-env.client.EventChan())
	require.Equal(t, "+OK", <-env.client.EventChan())
}

func TestClientExecTimeout(t *testing.T) {
	env := newClientTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := env.client.Exec(ctx, "AT+PING=?")
	require.Equal(t, context.DeadlineExceeded, err)

	next := env.client.Do("AT+FW=?")
	env.reply("+FW=KIM2_V3.0")
	require.Equal(t, []string{"+FW=KIM2_V3.0"}, env.result(next).Lines)
}

func TestClientRun(t *testing.T) {
	env := newClientTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- env.client.Run(ctx) }()

	first := env.client.Do("AT+ADDR=?")
	env.rw.readCh <- []byte("+ADDR=22675c70\r")
	env.rw.readCh <- []byte("\n")
	require.Equal(t, []string{"+ADDR=22675c70"}, env.result(first).Lines)

	pending := env.client.Do("AT+PING=?")
	close(env.rw.readCh)
	require.Equal(t, ErrClosed, env.result(pending).Err)
	require.Error(t, <-errCh)
}
