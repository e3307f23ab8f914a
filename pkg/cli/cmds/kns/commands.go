// Package kns exposes the AT commands of the device in the shell.
package kns

import (
	"fmt"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/cli/sh"
)

// atCmd maps a shell command onto AT+<AT>. Without args the status is
// queried when Query is set, the bare action is sent when Action is set.
type atCmd struct {
	Name    string
	Aliases []string
	AT      string
	Help    string
	MinArgs int
	Query   bool
	Action  bool
}

var atCmds = []atCmd{
	{Name: "ping", AT: "PING", Query: true},
	{Name: "version", AT: "VERSION", Query: true},
	{Name: "fw", AT: "FW", Query: true},
	{Name: "addr", AT: "ADDR", Help: "[ADDR]", Query: true},
	{Name: "id", AT: "ID", Help: "[ID]", Query: true},
	{Name: "sn", AT: "SN", Help: "[SN]", Query: true},
	{Name: "rconf", AT: "RCONF", Help: "[CONF(hex)]", Query: true},
	{Name: "rconf.save", Aliases: []string{"save"}, AT: "SAVE_RCONF", Action: true},
	{Name: "seckey", AT: "SECKEY", Help: "[KEY(hex)]", Query: true},
	{Name: "lpm", AT: "LPM", Help: "[MODE]", Query: true},
	{Name: "kmac", AT: "KMAC", Help: "[PROFILE [CONF(hex)]]", Query: true},
	{Name: "tx", AT: "TX", Help: "DATA(hex) [0xATTR]", MinArgs: 1},
	{Name: "rx", AT: "RX", Help: "0|1", MinArgs: 1},
	{Name: "prepass", AT: "PREPASS_EN", Help: "[0|1]", Query: true},
	{Name: "udate", AT: "UDATE", Help: "[DATE]", Query: true},
}

// Line returns the AT command line for args.
func (a *atCmd) Line(args []string) (string, error) {
	switch {
	case len(args) == 0 && a.Action:
		return "AT+" + a.AT, nil
	case len(args) < a.MinArgs || (len(args) == 0 && !a.Query):
		return "", fmt.Errorf("%s required", strings.Fields(a.Help)[0])
	}
	return sh.ATLine(a.AT, args...), nil
}

func (a *atCmd) command() *ishell.Cmd {
	return &ishell.Cmd{
		Name:    a.Name,
		Aliases: a.Aliases,
		Help:    a.Help,
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			line, err := a.Line(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			sh.DoCommand(c, line)
		}),
	}
}

func init() {
	for n := range atCmds {
		sh.AddCmds(atCmds[n].command())
	}
}
