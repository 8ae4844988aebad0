package mqtt

import (
	"io"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/mcu.go/pkg/l1"
)

// DefaultPacketBacklog is the number of received packets buffered
// before new ones are dropped.
const DefaultPacketBacklog = 256

// ReadWriter implements comm.PacketReadWriteCloser over a pair of
// topics.
type ReadWriter struct {
	Queue    *Queue
	SubTopic string
	PubTopic string

	sub       *Subscription
	packetCh  chan []byte
	closeCh   chan struct{}
	closeOnce sync.Once
}

// NewPacketReadWriter creates the ReadWriter.
func NewPacketReadWriter(q *Queue) *ReadWriter {
	return &ReadWriter{
		Queue:    q,
		packetCh: make(chan []byte, DefaultPacketBacklog),
		closeCh:  make(chan struct{}),
	}
}

// WithTopics specifies the topics.
func (p *ReadWriter) WithTopics(sub, pub string) *ReadWriter {
	p.SubTopic, p.PubTopic = sub, pub
	return p
}

// ForHost sets topics using default convention for a host:
// SubTopic = prefix/tx
// PubTopic = prefix/rx
func (p *ReadWriter) ForHost(ref l1.MCURef) *ReadWriter {
	prefix := ref.Name()
	return p.WithTopics(prefix+"/tx", prefix+"/rx")
}

// ForMCU sets topics using default convention for the MCU end:
// SubTopic = prefix/rx
// PubTopic = prefix/tx
func (p *ReadWriter) ForMCU(ref l1.MCURef) *ReadWriter {
	prefix := ref.Name()
	return p.WithTopics(prefix+"/rx", prefix+"/tx")
}

// Open subscribes SubTopic. It must be called before ReadPacket.
func (p *ReadWriter) Open() *ReadWriter {
	p.sub = p.Queue.Sub(p.SubTopic, Handler(p.handleMsg))
	return p
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-p.packetCh:
		return pkt, nil
	case <-p.closeCh:
		return nil, io.EOF
	}
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	select {
	case <-p.closeCh:
		return io.ErrClosedPipe
	default:
	}
	token := p.Queue.Pub(p.PubTopic, pkt)
	token.Wait()
	return token.Error()
}

// Close implements io.Closer.
func (p *ReadWriter) Close() (err error) {
	p.closeOnce.Do(func() {
		close(p.closeCh)
		if p.sub != nil {
			err = p.sub.Close()
		}
	})
	return
}

func (p *ReadWriter) handleMsg(topic string, payload []byte) {
	select {
	case p.packetCh <- payload:
	default:
		glog.Warningf("%s: backlog full, %d bytes dropped", topic, len(payload))
	}
}
