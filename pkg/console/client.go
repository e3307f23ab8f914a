package console

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/golang/glog"
)

var (
	// ErrClosed is reported to commands pending when the stream ends.
	ErrClosed = errors.New("console closed")
)

// CommandError is a +ERROR reply.
type CommandError struct {
	Code int
}

// Error implements error.
func (e *CommandError) Error() string {
	return fmt.Sprintf("command error %d", e.Code)
}

// Result is the result of a command using Do.
type Result struct {
	Err   error
	Lines []string
}

// Command represents a pending command waiting for reply.
type Command struct {
	line       string
	replyTag   string
	trailingOK bool
	lines      []string
	resultCh   chan Result
	next       *Command
}

// Line returns the command line as sent.
func (c *Command) Line() string {
	return c.line
}

// ResultChan returns the chan to retrieve result.
func (c *Command) ResultChan() <-chan Result {
	return c.resultCh
}

// Client issues AT commands to a device console. Replies are matched with
// pending commands in order; other lines are unsolicited notifications
// delivered on EventChan.
type Client struct {
	ReadWriter io.ReadWriter

	eventCh   chan string
	cmdsHead  *Command
	cmdsTail  *Command
	cmdsLock  sync.Mutex
	writeLock sync.Mutex
}

// NewClient creates a client over rw.
func NewClient(rw io.ReadWriter) *Client {
	return &Client{ReadWriter: rw, eventCh: make(chan string, 16)}
}

// EventChan retrieves the notification chan (+TX, +TXACK, +DL, +RX, +SATDET).
func (c *Client) EventChan() <-chan string {
	return c.eventCh
}

// DoWith sends a command and expects a result in the provided chan.
func (c *Client) DoWith(line string, ch chan Result) *Command {
	line = strings.TrimRight(line, "\r\n")
	cmd := &Command{line: line, resultCh: ch}
	if name, query := replyName(line); query {
		cmd.replyTag = "+" + name + "="
		cmd.trailingOK = name == "RCONF"
	}

	c.cmdsLock.Lock()
	defer c.cmdsLock.Unlock()
	c.writeLock.Lock()
	_, err := io.WriteString(c.ReadWriter, line+"\r")
	c.writeLock.Unlock()
	if err != nil {
		cmd.resultCh <- Result{Err: err}
		return cmd
	}
	if c.cmdsHead == nil {
		c.cmdsHead = cmd
	} else {
		c.cmdsTail.next = cmd
	}
	c.cmdsTail = cmd
	return cmd
}

// Do sends a command and returns a Command for result.
func (c *Client) Do(line string) *Command {
	return c.DoWith(line, make(chan Result, 1))
}

// Exec sends a command and waits for its result or ctx.
func (c *Client) Exec(ctx context.Context, line string) ([]string, error) {
	cmd := c.Do(line)
	select {
	case r := <-cmd.resultCh:
		return r.Lines, r.Err
	case <-ctx.Done():
		c.remove(cmd)
		return nil, ctx.Err()
	}
}

func (c *Client) remove(cmd *Command) {
	c.cmdsLock.Lock()
	defer c.cmdsLock.Unlock()
	var prev *Command
	for curr := c.cmdsHead; curr != nil; prev, curr = curr, curr.next {
		if curr != cmd {
			continue
		}
		if prev == nil {
			c.cmdsHead = curr.next
		} else {
			prev.next = curr.next
		}
		if c.cmdsTail == curr {
			c.cmdsTail = prev
		}
		return
	}
}

// HandleLine processes one reply line from the device.
func (c *Client) HandleLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	c.cmdsLock.Lock()
	head := c.cmdsHead
	var result *Result
	matched := false
	if head != nil {
		switch {
		case line == "+OK":
			result = &Result{Lines: head.lines}
		case strings.HasPrefix(line, "+ERROR="):
			code, err := strconv.Atoi(strings.TrimPrefix(line, "+ERROR="))
			if err != nil {
				code = -1
			}
			result = &Result{Err: &CommandError{Code: code}, Lines: head.lines}
		case head.replyTag != "" && strings.HasPrefix(line, head.replyTag):
			matched = true
			head.lines = append(head.lines, line)
			if !head.trailingOK {
				result = &Result{Lines: head.lines}
			}
		}
	}
	if result != nil {
		if c.cmdsHead = head.next; c.cmdsHead == nil {
			c.cmdsTail = nil
		}
		head.next = nil
	}
	c.cmdsLock.Unlock()

	switch {
	case result != nil:
		head.resultCh <- *result
	case matched:
	case !strings.HasPrefix(line, "+"):
		glog.V(2).Infof("console client: ignored %q", line)
	default:
		select {
		case c.eventCh <- line:
		default:
			glog.Warningf("console client: event dropped %q", line)
		}
	}
}

// Run reads reply lines until the stream fails or ctx is done. Pending
// commands then fail with ErrClosed.
func (c *Client) Run(ctx context.Context) error {
	lineCh, errCh := make(chan string), make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go c.readLoop(subCtx, lineCh, errCh)
	for {
		select {
		case line := <-lineCh:
			c.HandleLine(line)
		case err := <-errCh:
			c.closeAll()
			return err
		case <-ctx.Done():
			c.closeAll()
			return ctx.Err()
		}
	}
}

func (c *Client) readLoop(ctx context.Context, lineCh chan string, errCh chan error) {
	scanner := bufio.NewScanner(c.ReadWriter)
	scanner.Split(scanLines)
	for scanner.Scan() {
		select {
		case lineCh <- scanner.Text():
		case <-ctx.Done():
			return
		}
	}
	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	errCh <- err
}

func (c *Client) closeAll() {
	c.cmdsLock.Lock()
	head := c.cmdsHead
	c.cmdsHead, c.cmdsTail = nil, nil
	c.cmdsLock.Unlock()
	for ; head != nil; head = head.next {
		head.resultCh <- Result{Err: ErrClosed}
	}
}

// replyName returns the command name of a status query, e.g. "RCONF" for
// "AT+RCONF=?".
func replyName(line string) (string, bool) {
	if !strings.HasPrefix(line, "AT+") || !strings.HasSuffix(line, "=?") {
		return "", false
	}
	return strings.TrimSuffix(strings.TrimPrefix(line, "AT+"), "=?"), true
}

// scanLines splits on CR or LF.
func scanLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
