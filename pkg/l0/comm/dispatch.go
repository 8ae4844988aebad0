package comm

import (
	"fmt"

	"github.com/golang/glog"
)

// Poller services pending events between commands of one block.
type Poller interface {
	Poll() bool
}

// Dispatcher is the MCU end of the link: it finds blocks in received
// bytes, runs the command handlers and frames responses.
type Dispatcher struct {
	Registry  *Registry
	Responder Responder
	Poller    Poller
	// Fault is called when a block carries an unknown command or
	// malformed arguments. The rest of the block is dropped.
	Fault func(reason string)

	parser *Parser
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(reg *Registry, resp Responder) *Dispatcher {
	return &Dispatcher{Registry: reg, Responder: resp, parser: NewParser()}
}

// NextSeq returns the sequence stamped on outgoing blocks.
func (d *Dispatcher) NextSeq() Seq {
	return d.parser.NextSeq()
}

// Reset forgets the link state.
func (d *Dispatcher) Reset() {
	d.parser.Reset()
}

// FindAndDispatch looks for one block at the front of buf. consumed
// reports whether pop bytes must be dropped from the front; when it
// is false nothing was done and more bytes are needed.
func (d *Dispatcher) FindAndDispatch(buf []byte) (consumed bool, pop int) {
	res, pop, nak := d.parser.FindBlock(buf)
	switch res {
	case Found:
		d.dispatch(BlockContent(buf[:pop]))
		d.sendAck()
		return true, pop
	case Discard:
		if nak {
			glog.V(3).Infof("nak, expect seq %02x", byte(d.parser.NextSeq()))
			d.sendAck()
		}
		return true, pop
	}
	return false, 0
}

func (d *Dispatcher) sendAck() {
	if d.Responder != nil {
		d.Responder.SendResponse(Ack)
	}
}

func (d *Dispatcher) dispatch(content []byte) {
	for pos := 0; pos < len(content); {
		id, n, err := ParseInt(content[pos:])
		if err != nil {
			d.fault("Command parser error", err)
			return
		}
		pos += n
		msg, handler, ok := d.Registry.Command(int(id))
		if !ok {
			d.fault("Invalid command", &UnknownMessageError{ID: int(id)})
			return
		}
		args, n, err := msg.Parse(content[pos:])
		if err != nil {
			d.fault("Command parser error", err)
			return
		}
		pos += n
		if d.Poller != nil {
			d.Poller.Poll()
		}
		glog.V(4).Infof("dispatch %s %v", msg.Name, args)
		if handler != nil {
			handler(args)
		}
	}
}

func (d *Dispatcher) fault(reason string, err error) {
	glog.Warningf("%s: %v", reason, err)
	if d.Fault != nil {
		d.Fault(reason)
	}
}

// EncodeAndFrame encodes msg with args into a complete block at the
// front of buf, which must hold MessageMax bytes, and returns the
// block length.
func (d *Dispatcher) EncodeAndFrame(buf []byte, msg *Message, args ...interface{}) (int, error) {
	if len(buf) < MessageMax {
		return 0, fmt.Errorf("frame buffer of %d bytes: %w", len(buf), ErrBlockTooLarge)
	}
	content, err := msg.Encode(buf[MessageHeaderSize:MessageHeaderSize], MessagePayloadMax, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", msg.Name, err)
	}
	return frame(buf, len(content), d.parser.NextSeq()), nil
}
