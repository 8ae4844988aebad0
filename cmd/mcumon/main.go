package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/robotalks/mcu.go/pkg/l1/comm/mqtt"
	"github.com/robotalks/mcu.go/pkg/l1/msgs"
)

var (
	mqttURL = "mqtt://localhost:1883/mcu/"
	serial  bool
)

func init() {
	if val := os.Getenv("MCU_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.BoolVar(&serial, "serial", serial, "Also dump serial line traffic.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}

	q.Sub("#", mqtt.Handler(func(topic string, payload []byte) {
		switch {
		case strings.HasSuffix(topic, "/meta"):
			if info, ok := mqtt.ParseMeta(topic, payload); ok {
				log.Printf("%s: online %+v", info.Ref.Name(), info.Meta)
			} else {
				log.Printf("%s: offline", strings.TrimSuffix(topic, "/meta"))
			}
			return
		case strings.HasSuffix(topic, "/rx"), strings.HasSuffix(topic, "/tx"):
			if serial {
				log.Printf("%s: % x", topic, payload)
			}
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
		log.Printf("%s: %s", topic, msg.Serializable().String())
	}))
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}
	<-(chan struct{})(nil)
}
