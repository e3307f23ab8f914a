package main

import (
	"flag"
	"log"
	"strings"

	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/env"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/mac/comm/mqtt"
	"github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/mac/msgs"
)

func init() {
	env.SetupFlags()
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	b, err := mqtt.NewBrokerFromURL(env.NewConfig().MQTTURL)
	if err != nil {
		log.Fatalln(err)
	}
	if token := b.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}

	b.Sub("#", mqtt.Handler(func(topic string, payload []byte) {
		if strings.HasSuffix(topic, "/"+mqtt.TopicMeta) {
			log.Printf("%s: %s", topic, string(payload))
			return
		}
		typed, err := msgs.DecodeTyped(payload)
		if err != nil {
			log.Printf("%s: bad message: %v", topic, err)
			return
		}
		msg, err := typed.Decode()
		if err != nil {
			log.Printf("%s: decode error: (type_id=%x) %v", topic, typed.TypeId, err)
			return
		}
		log.Printf("%s: #%d %s", topic, typed.Sequence, msgs.Describe(msg))
	}))
	<-(chan struct{})(nil)
}
