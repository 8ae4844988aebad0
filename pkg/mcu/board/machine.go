// Package board assembles the management MCU: working data, timer,
// scheduler, interrupt shim, console and the command set.
package board

import (
	"context"
	"runtime"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/mcu.go/pkg/l0/comm"
	"github.com/robotalks/mcu.go/pkg/mcu/console"
	"github.com/robotalks/mcu.go/pkg/mcu/irq"
	"github.com/robotalks/mcu.go/pkg/mcu/region"
	"github.com/robotalks/mcu.go/pkg/mcu/sched"
	"github.com/robotalks/mcu.go/pkg/mcu/timer"
	"github.com/robotalks/mcu.go/pkg/mcu/uart"
)

// Entry points of the firmware.
const (
	ColdStart   uint32 = 0
	ResetVector uint32 = 0x9000
)

// Working data layout.
const (
	DataConfigCRC  = 0x00 // u32
	DataConfigured = 0x04 // u8
	DataOIDCount   = 0x05 // u8
	DataMoveCount  = 0x06 // u16
	DataUser       = 0x10 // start of free area
)

// Defaults.
const (
	DefaultName          = "ar100"
	DefaultDataSize      = 256
	DefaultStatsInterval = 5 * time.Second
	DefaultIdleInterval  = 200 * time.Microsecond
)

// HaltError is returned by Run when the firmware shut down.
type HaltError struct {
	Reason string
}

// Error implements error.
func (e *HaltError) Error() string {
	return "mcu halted: " + e.Reason
}

// Machine is the simulated MCU. All firmware state is owned by one
// goroutine started by Run.
type Machine struct {
	Name          string
	Port          uart.Port
	Counter       timer.Counter
	Frequency     uint32
	Version       string
	Banner        string
	StatsInterval time.Duration
	IdleInterval  time.Duration
	Observer      Observer

	data   *region.Region
	shadow *region.Shadow
	boots  int
	entry  uint32

	hw         *timer.Hardware
	sched      *sched.Scheduler
	shim       *irq.Shim
	console    *console.Console
	dispatcher *comm.Dispatcher
	registry   *comm.Registry
	stats      stats
	clockHigh  uint32
	lastClock  uint32
	responses  responses
}

// New creates a Machine on port with size bytes of working data,
// initialized from initial. Sizes below DataUser are raised to it.
func New(port uart.Port, size int, initial []byte) *Machine {
	switch {
	case size <= 0:
		size = DefaultDataSize
	case size < DataUser:
		glog.Warningf("data size %d below the fixed layout, using %d", size, DataUser)
		size = DataUser
	}
	m := &Machine{
		Name:          DefaultName,
		Port:          port,
		Frequency:     timer.DefaultFrequency,
		StatsInterval: DefaultStatsInterval,
		IdleInterval:  DefaultIdleInterval,
		data:          region.New(size),
	}
	if err := m.data.PutRange(0, initial...); err != nil {
		glog.Warningf("initial data of %d bytes: %v", len(initial), err)
	}
	m.shadow = region.NewShadow(m.data)
	return m
}

// Data returns the working data region. It must not be accessed while
// Run is active.
func (m *Machine) Data() *region.Region {
	return m.data
}

// Boots returns the number of starts, cold and warm.
func (m *Machine) Boots() int {
	return m.boots
}

// Run starts the firmware at the cold entry and supervises it. A
// reset restarts it at ResetVector; a shutdown ends Run with a
// HaltError.
func (m *Machine) Run(ctx context.Context) error {
	if m.Counter == nil {
		m.Counter = timer.NewClock(m.Frequency)
	}
	entry := ColdStart
	for {
		m.entry = 0
		done := make(chan struct{})
		go func() {
			defer close(done)
			m.main(ctx, entry)
		}()
		<-done

		switch {
		case m.entry != 0:
			glog.Infof("%s: jump to %#x", m.Name, m.entry)
			entry = m.entry
			m.notify(Event{Kind: EventReset, Entry: entry, Boots: m.boots})
		case m.sched != nil && m.sched.IsShutdown():
			reason := m.sched.ShutdownReason()
			m.notify(Event{Kind: EventHalt, Entry: entry, Boots: m.boots, Reason: reason})
			return &HaltError{Reason: reason}
		default:
			return ctx.Err()
		}
	}
}

// main is the firmware entry. It returns only when ctx is done;
// reset and shutdown end the goroutine instead.
func (m *Machine) main(ctx context.Context, entry uint32) {
	if entry == ColdStart {
		m.shadow.Save()
	}
	m.boots++
	m.setup(ctx)
	if entry == ColdStart && m.Banner != "" {
		for i := 0; i < len(m.Banner); i++ {
			m.Port.Putc(m.Banner[i])
		}
		m.Port.Putc(comm.MessageSync)
	}
	glog.Infof("%s: started at %#x, boot %d", m.Name, entry, m.boots)
	m.notify(Event{Kind: EventBoot, Entry: entry, Boots: m.boots})
	m.console.SendResponse(m.responses.starting, entry, m.boots)
	m.sched.Run(ctx)
}

func (m *Machine) setup(ctx context.Context) {
	m.hw = timer.New(m.Counter)
	m.sched = sched.New(m.hw)
	m.console = console.New(m.Port, m.sched)
	m.registry = m.newRegistry()
	m.dispatcher = comm.NewDispatcher(m.registry, m.console)
	m.dispatcher.Fault = m.shutdown
	m.console.Dispatcher, m.console.Encoder = m.dispatcher, m.dispatcher
	m.shim = &irq.Shim{
		Poller: &irq.Dispatcher{
			Timer:   m.hw,
			Timers:  m.sched,
			RX:      m.Port,
			Waker:   m.sched,
			Console: m.console.Wake(),
		},
		Idle: func() bool {
			if ctx.Err() != nil {
				return false
			}
			time.Sleep(m.IdleInterval)
			return true
		},
	}
	m.dispatcher.Poller = m.shim
	m.sched.Waiter = m.shim
	m.clockHigh, m.lastClock = 0, m.hw.Now()
	m.stats.init(m)
	m.sched.AddTask(m.console, &m.stats)
	m.sched.AddTimer(&m.stats.timer)
}

// shutdown halts the firmware. It does not return.
func (m *Machine) shutdown(reason string) {
	m.console.SendResponse(m.responses.shutdown, m.hw.Now(), reason)
	m.sched.Shutdown(reason)
}

// jump transfers control to addr. It does not return.
func (m *Machine) jump(addr uint32) {
	m.entry = addr
	runtime.Goexit()
}

// uptime extends the 32-bit clock with a wrap counter.
func (m *Machine) uptime() (high, low uint32) {
	now := m.hw.Now()
	if now < m.lastClock {
		m.clockHigh++
	}
	m.lastClock = now
	return m.clockHigh, now
}

func (m *Machine) notify(ev Event) {
	ev.MCU = m.Name
	if m.Observer != nil {
		m.Observer.Observe(ev)
	}
}
