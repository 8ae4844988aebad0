package irq

import (
	"github.com/robotalks/mcu.go/pkg/mcu/sched"
)

// TimerLatch is the hardware timer as seen by the poll dispatcher.
type TimerLatch interface {
	Pending() bool
	ClearLatch()
	Arm(deadline uint32)
}

// TimerQueue runs due software timers and returns the next deadline.
type TimerQueue interface {
	DispatchMany() uint32
}

// ByteCounter reports bytes waiting on a receive line.
type ByteCounter interface {
	Available() int
}

// Waker sets a task wake flag.
type Waker interface {
	WakeTask(*sched.Wake)
}

// Dispatcher is the only place hardware event state is observed.
// It never blocks.
type Dispatcher struct {
	Timer  TimerLatch
	Timers TimerQueue
	RX     ByteCounter
	Waker  Waker
	// Console is woken when bytes are available on RX.
	Console *sched.Wake
}

// Poll implements Poller.
func (d *Dispatcher) Poll() bool {
	var handled bool
	if d.Timer != nil && d.Timer.Pending() {
		d.Timer.ClearLatch()
		d.Timer.Arm(d.Timers.DispatchMany())
		handled = true
	}
	if d.RX != nil && d.RX.Available() > 0 {
		d.Waker.WakeTask(d.Console)
		handled = true
	}
	return handled
}
