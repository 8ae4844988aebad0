// Package console is the firmware end of the host link: it assembles
// received bytes into blocks for the protocol dispatcher and writes
// encoded responses to the uart.
package console

import (
	"github.com/golang/glog"

	"github.com/robotalks/mcu.go/pkg/l0/comm"
	"github.com/robotalks/mcu.go/pkg/mcu/sched"
	"github.com/robotalks/mcu.go/pkg/mcu/uart"
)

// WindowSize is the capacity of the receive window, one maximum block.
const WindowSize = comm.MessageMax

// FrameDispatcher finds and dispatches one block at the front of buf.
// When consumed is true, pop bytes are removed from the front.
type FrameDispatcher interface {
	FindAndDispatch(buf []byte) (consumed bool, pop int)
}

// FrameEncoder encodes a message into a complete block in buf and
// returns its length.
type FrameEncoder interface {
	EncodeAndFrame(buf []byte, msg *comm.Message, args ...interface{}) (int, error)
}

// Waker is the scheduler wake API used by the console task.
type Waker interface {
	WakeTask(*sched.Wake)
	CheckWake(*sched.Wake) bool
}

// Console is the console task.
type Console struct {
	Port       uart.Port
	Scheduler  Waker
	Dispatcher FrameDispatcher
	Encoder    FrameEncoder

	window [WindowSize]byte
	pos    int
	wake   sched.Wake
	// Dropped counts bytes discarded because the window was full.
	Dropped int
}

// New creates a Console on port. Dispatcher and Encoder must be set
// before the task runs.
func New(port uart.Port, s Waker) *Console {
	return &Console{Port: port, Scheduler: s}
}

// Wake is the flag the poll dispatcher raises when bytes arrive.
func (c *Console) Wake() *sched.Wake {
	return &c.wake
}

// Buffered returns the number of bytes held in the receive window.
func (c *Console) Buffered() int {
	return c.pos
}

// RunTask performs one drain-and-dispatch pass.
func (c *Console) RunTask() {
	if !c.Scheduler.CheckWake(&c.wake) {
		return
	}
	copied := 0
	for avail := c.Port.Available(); avail > 0; avail-- {
		b := c.Port.Getc()
		if c.pos+copied < len(c.window) {
			c.window[c.pos+copied] = b
			copied++
		} else {
			c.Dropped++
		}
	}
	if c.pos+copied == 0 {
		// stale wake
		return
	}

	total := c.pos + copied
	msglen := total
	if msglen > comm.MessageMax {
		msglen = comm.MessageMax
	}
	consumed, pop := c.Dispatcher.FindAndDispatch(c.window[:msglen])
	if consumed {
		remaining := total - pop
		if remaining > 0 {
			copy(c.window[:], c.window[pop:total])
			c.Scheduler.WakeTask(&c.wake)
		}
		total = remaining
	}
	c.pos = total
}

// SendResponse encodes msg into one block and writes it to the port
// byte by byte.
func (c *Console) SendResponse(msg *comm.Message, args ...interface{}) {
	var buf [comm.MessageMax]byte
	n, err := c.Encoder.EncodeAndFrame(buf[:], msg, args...)
	if err != nil {
		glog.Errorf("response %s: %v", msg.Name, err)
		return
	}
	for i := 0; i < n; i++ {
		c.Port.Putc(buf[i])
	}
}
