package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"log"

	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/env"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/framework"
)

func init() {
	env.SetupFlags()
}

func main() {
	flag.Parse()

	conf := env.NewConfig()
	if conf.MAC == env.MACLoopback {
		log.Fatalln("a MAC URL is required: tcp://addr, ws://addr/path or mqtt://broker/prefix")
	}
	runner := framework.NewRunner().HandleSignals()
	if err := runner.Go(framework.NamedRun("stack", framework.RunnableFunc(conf.ServeStack))).Wait(); err != nil {
		log.Fatalln(err)
	}
}
