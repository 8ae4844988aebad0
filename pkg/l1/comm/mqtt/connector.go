package mqtt

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/robotalks/mcu.go/pkg/l1"
	"github.com/robotalks/mcu.go/pkg/l1/comm"
	"github.com/robotalks/mcu.go/pkg/l1/msgs"
)

// Connector implements l1.Connector using MQTT.
type Connector struct {
	DiscoverTimeout time.Duration

	options     *paho.ClientOptions
	topicPrefix string
}

// DefaultDiscoverTimeout defines the default timeout value of discovery.
const DefaultDiscoverTimeout = 500 * time.Millisecond

// NewConnector creates a Connector.
func NewConnector(brokerURL string) (*Connector, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return &Connector{
		DiscoverTimeout: DefaultDiscoverTimeout,
		options:         opts,
		topicPrefix:     topicPrefix,
	}, nil
}

// ParseMeta builds MCUInfo from a retained meta record. ok is false
// for topics which are not meta records and for cleared records.
func ParseMeta(topic string, payload []byte) (info l1.MCUInfo, ok bool) {
	items := strings.Split(topic, "/")
	if len(items) != 3 || items[2] != "meta" || len(payload) == 0 {
		return
	}
	info.Ref = l1.MCURef{Type: items[0], ID: items[1]}
	if err := json.Unmarshal(payload, &info.Meta); err != nil {
		glog.Warningf("%s: bad meta: %v", topic, err)
	}
	return info, true
}

// Discover implements Connector.
func (c *Connector) Discover(ctx context.Context) (res []l1.MCUInfo, err error) {
	q := NewQueue(c.options, c.topicPrefix)
	if err = q.ConnectWait(ctx); err != nil {
		return nil, err
	}
	defer q.Close()
	resCh := make(chan l1.MCUInfo, 1)
	q.Sub("+/+/meta", Handler(func(topic string, payload []byte) {
		if info, ok := ParseMeta(topic, payload); ok {
			select {
			case resCh <- info:
			case <-time.After(time.Second):
			}
		}
	}))

	dur := c.DiscoverTimeout
	if dur == 0 {
		dur = DefaultDiscoverTimeout
	}
	timeout := time.After(dur)
	for {
		select {
		case info := <-resCh:
			res = append(res, info)
		case <-timeout:
			return
		case <-ctx.Done():
			err = ctx.Err()
			return
		}
	}
}

// Connect implements Connector.
func (c *Connector) Connect(ctx context.Context, ref l1.MCURef) (io.ReadWriteCloser, error) {
	q := NewQueue(c.options, c.topicPrefix)
	rw := NewPacketReadWriter(q).ForHost(ref).Open()
	if err := q.ConnectWait(ctx); err != nil {
		rw.Close()
		return nil, err
	}
	return &queueStream{Stream: comm.NewStream(rw), queue: q}, nil
}

// WatchStatus delivers the status events of all MCUs until ctx is
// done.
func (c *Connector) WatchStatus(ctx context.Context, handler func(l1.MCURef, *msgs.Status)) error {
	q := NewQueue(c.options, c.topicPrefix)
	q.Sub("+/+/status", Handler(func(topic string, payload []byte) {
		items := strings.Split(topic, "/")
		typed, err := msgs.DecodeTyped(payload)
		if err != nil {
			glog.Warningf("%s: bad message: %v", topic, err)
			return
		}
		msg, err := typed.Decode()
		if err != nil {
			glog.Warningf("%s: decode error: (type_id=%x) %v", topic, typed.TypeId, err)
			return
		}
		if status, ok := msg.(*msgs.Status); ok {
			handler(l1.MCURef{Type: items[0], ID: items[1]}, status)
		}
	}))
	if err := q.ConnectWait(ctx); err != nil {
		return err
	}
	defer q.Close()
	<-ctx.Done()
	return ctx.Err()
}

type queueStream struct {
	*comm.Stream
	queue *Queue
}

func (s *queueStream) Close() error {
	err := s.Stream.Close()
	s.queue.Close()
	return err
}
