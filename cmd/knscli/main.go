package main

import (
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/cli/sh"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/env"

	_ "github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/cli/cmds/kns"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
