package mqtt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/mcu.go/pkg/l1"
	"github.com/robotalks/mcu.go/pkg/l1/msgs"
	"github.com/robotalks/mcu.go/pkg/mcu/board"
)

// Registrar announces an MCU on MQTT: a retained meta record for
// discovery and status events for its life-cycle.
type Registrar struct {
	Queue *Queue
	Info  l1.MCUInfo

	metaJSON string
}

// NewRegistrar creates a Registrar.
func NewRegistrar(brokerURL string, info l1.MCUInfo) (*Registrar, error) {
	meta, err := json.Marshal(&info.Meta)
	if err != nil {
		return nil, err
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+info.Ref.Name()+"/meta", nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("mcu:" + info.Ref.Name())
	}
	r := &Registrar{
		Queue:    NewQueue(opts, topicPrefix),
		Info:     info,
		metaJSON: string(meta),
	}
	r.Queue.OnConnect = func(*Queue) { r.onConnected() }
	return r, nil
}

// Observe implements board.Observer. Publishing does not wait for
// the broker.
func (r *Registrar) Observe(ev board.Event) {
	payload, err := msgs.Encode(msgs.StatusFromEvent(ev, time.Now()))
	if err != nil {
		glog.Errorf("encode status: %v", err)
		return
	}
	r.Queue.PubWith(r.Info.Ref.Name()+"/status", payload, 1, false)
}

// Run implements Runnable.
func (r *Registrar) Run(ctx context.Context) error {
	r.Queue.Connect()
	<-ctx.Done()
	token := r.Queue.PubWith(r.Info.Ref.Name()+"/meta", nil, 1, true)
	token.WaitTimeout(time.Second)
	r.Queue.Close()
	return ctx.Err()
}

func (r *Registrar) onConnected() {
	r.Queue.PubWith(r.Info.Ref.Name()+"/meta", []byte(r.metaJSON), 1, true)
}
