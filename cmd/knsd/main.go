package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"io"
	"log"

	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/app"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/env"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/framework"
)

func init() {
	env.SetupFlags()
}

func main() {
	flag.Parse()

	conf := env.NewConfig().MustValidate()
	settings, err := conf.NewSettings()
	if err != nil {
		log.Fatalln(err)
	}
	runner := framework.NewRunner().HandleSignals()

	var host io.ReadWriteCloser
	if conf.Frontend != env.FrontendStandalone {
		dialer, err := conf.NewConsoleDialer()
		if err != nil {
			log.Fatalln(err)
		}
		if host, err = dialer.Dial(runner.Context); err != nil {
			log.Fatalln(err)
		}
	}
	link, err := conf.DialMAC(runner.Context, settings.Get())
	if err != nil {
		log.Fatalln(err)
	}
	device, err := app.New(conf.AppOptions(settings, host, link))
	if err != nil {
		log.Fatalln(err)
	}
	if err := runner.Go(device).Wait(); err != nil {
		log.Fatalln(err)
	}
}
