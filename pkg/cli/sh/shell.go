package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/console"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/env"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool
	Timeout     time.Duration

	Shell  *ishell.Shell
	Config *env.Config
	Conn   *Conn
}

// Conn is a connected device console.
type Conn struct {
	Ctx    context.Context
	Cancel func()
	Target string
	Client *console.Client

	stream io.ReadWriteCloser
}

// Result is the JSON form of a command result.
type Result struct {
	Command string   `json:"command"`
	Lines   []string `json:"lines,omitempty"`
	Error   string   `json:"error,omitempty"`
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool
	timeout    = 2 * time.Second

	// commands
	commands = []*ishell.Cmd{
		&ConnectCmd,
		&DisconnectCmd,
		&RawCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.DurationVar(&timeout, "timeout", timeout, "Command timeout.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Timeout:     timeout,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Conn == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// ATLine builds an AT command line: a status query without args, a set
// command with comma separated args otherwise.
func ATLine(name string, args ...string) string {
	if len(args) == 0 {
		return "AT+" + name + "=?"
	}
	return "AT+" + name + "=" + strings.Join(args, ",")
}

// FormatResult prints a command result for display.
func FormatResult(lines []string, err error, asJSON bool, command string) string {
	if asJSON {
		r := Result{Command: command, Lines: lines}
		if err != nil {
			r.Error = err.Error()
		}
		out, _ := json.Marshal(&r)
		return string(out)
	}
	if err != nil {
		return err.Error()
	}
	if len(lines) == 0 {
		return "OK"
	}
	return strings.Join(lines, "\n")
}

// DoCommand runs a command line and waits for result.
func DoCommand(c *ishell.Context, line string) error {
	s := ShellFrom(c)
	if s.Conn == nil {
		err := fmt.Errorf("not connected")
		c.Err(err)
		return err
	}
	ctx, cancel := context.WithTimeout(s.Conn.Ctx, s.Timeout)
	defer cancel()
	lines, err := s.Conn.Client.Exec(ctx, line)
	if err != nil && !s.OutputJSON {
		c.Err(err)
		return err
	}
	c.Println(FormatResult(lines, err, s.OutputJSON, line))
	return err
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// HostTarget converts the console target of the device into the target
// the host dials: a listening device is reached over TCP.
func HostTarget(target string) string {
	if strings.HasPrefix(target, "listen://") {
		return "tcp://" + strings.TrimPrefix(target, "listen://")
	}
	return target
}

// Connect opens the device console at target.
func (s *Shell) Connect(target string) error {
	target = HostTarget(target)
	dialer, err := console.ParseTarget(target, s.Config.BaudRate)
	if err != nil {
		return err
	}
	conn := &Conn{Target: target}
	conn.Ctx, conn.Cancel = context.WithCancel(context.Background())
	if conn.stream, err = dialer.Dial(conn.Ctx); err != nil {
		conn.Cancel()
		return err
	}
	conn.Client = console.NewClient(conn.stream)
	if s.Conn != nil {
		s.Disconnect()
	}
	s.Conn = conn
	go func() {
		if err := conn.Client.Run(conn.Ctx); err != nil && err != context.Canceled {
			s.Shell.Printf("connection %s closed: %v\n", conn.Target, err)
		}
	}()
	go s.printEvents(conn)
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", target))
	return nil
}

func (s *Shell) printEvents(conn *Conn) {
	for {
		select {
		case <-conn.Ctx.Done():
			return
		case evt := <-conn.Client.EventChan():
			s.Shell.Println(evt)
		}
	}
}

// Disconnect disconnects current device.
func (s *Shell) Disconnect() {
	if s.Conn != nil {
		s.Conn.Cancel()
		s.Conn.stream.Close()
		s.Conn = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect && s.Config.Console != "" {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Config.Console)
		}
		if err := s.Connect(s.Config.Console); err != nil {
			log.Fatalf("connect %q failed: %v", s.Config.Console, err)
		}
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// ConnectCmd connects a device console.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[TARGET]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			target := s.Config.Console
			if len(c.Args) > 0 {
				target = c.Args[0]
			}
			if err := s.Connect(target); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd disconnects current device.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// RawCmd sends a raw AT command line.
	RawCmd = ishell.Cmd{
		Name:    "at",
		Aliases: []string{"raw"},
		Help:    "AT+NAME=...",
		Func: MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("command line required"))
				return
			}
			DoCommand(c, strings.Join(c.Args, " "))
		}),
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(env.NewConfig()).WithAutoConnect(true).Run(flag.Args()...)
}
