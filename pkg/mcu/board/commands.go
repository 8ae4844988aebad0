package board

import (
	"github.com/golang/glog"

	"github.com/robotalks/mcu.go/pkg/l0/comm"
	"github.com/robotalks/mcu.go/pkg/mcu/console"
)

type responses struct {
	uptime   *comm.Message
	clock    *comm.Message
	config   *comm.Message
	debug    *comm.Message
	stats    *comm.Message
	starting *comm.Message
	shutdown *comm.Message
}

// Debug access widths of debug_read and debug_write.
const (
	debugU8 = iota
	debugU16
	debugU32
)

func (m *Machine) newRegistry() *comm.Registry {
	reg := comm.NewRegistry()
	reg.Version = m.Version
	reg.BuildVersions = "go"
	reg.SetHandler("identify", reg.IdentifyHandler(m.console))

	m.responses = responses{
		uptime:   reg.MustAddResponse("uptime high=%u clock=%u"),
		clock:    reg.MustAddResponse("clock clock=%u"),
		config:   reg.MustAddResponse("config is_config=%c crc=%u is_shutdown=%c move_count=%hu"),
		debug:    reg.MustAddResponse("debug_result val=%u"),
		stats:    reg.MustAddResponse("stats count=%u sum=%u sumsq=%u"),
		starting: reg.MustAddResponse("starting entry=%u boot=%u"),
		shutdown: reg.MustAddResponse("shutdown clock=%u reason=%*s"),
	}
	reg.MustAddCommand("get_uptime", m.commandGetUptime)
	reg.MustAddCommand("get_clock", m.commandGetClock)
	reg.MustAddCommand("get_config", m.commandGetConfig)
	reg.MustAddCommand("finalize_config crc=%u", m.commandFinalizeConfig)
	reg.MustAddCommand("allocate_oids count=%c", m.commandAllocateOIDs)
	reg.MustAddCommand("debug_read order=%c addr=%u", m.commandDebugRead)
	reg.MustAddCommand("debug_write order=%c addr=%u val=%u", m.commandDebugWrite)
	reg.MustAddCommand("emergency_stop", m.commandEmergencyStop)
	reg.MustAddCommand("reset", m.commandReset)

	reg.AddConstant("MCU", m.Name)
	reg.AddConstant("CLOCK_FREQ", m.Frequency)
	reg.AddConstant("STATS_SUMSQ_BASE", statsSumsqBase)
	reg.AddConstant("RECEIVE_WINDOW", console.WindowSize)
	reg.AddConstant("DATA_SIZE", m.data.Size())
	reg.AddConstant("RESET_VECTOR", ResetVector)
	return reg
}

func (m *Machine) commandGetUptime(comm.Args) {
	high, clock := m.uptime()
	m.console.SendResponse(m.responses.uptime, high, clock)
}

func (m *Machine) commandGetClock(comm.Args) {
	m.console.SendResponse(m.responses.clock, m.hw.Now())
}

func (m *Machine) commandGetConfig(comm.Args) {
	crc, _ := m.data.GetU32(DataConfigCRC)
	configured, _ := m.data.Get(DataConfigured)
	moves, _ := m.data.GetU16(DataMoveCount)
	m.console.SendResponse(m.responses.config, configured, crc, m.sched.IsShutdown(), moves)
}

func (m *Machine) commandFinalizeConfig(args comm.Args) {
	m.data.SetU32(DataConfigCRC, args.Uint(0))
	m.data.Set(DataConfigured, 1)
}

func (m *Machine) commandAllocateOIDs(args comm.Args) {
	if count, _ := m.data.Get(DataOIDCount); count != 0 {
		m.shutdown("oids already allocated")
	}
	m.data.Set(DataOIDCount, uint8(args.Uint(0)))
}

func (m *Machine) commandDebugRead(args comm.Args) {
	order, addr := args.Uint(0), args.Uint(1)
	var val uint32
	var err error
	switch order {
	case debugU8:
		var v uint8
		v, err = m.data.Get(addr)
		val = uint32(v)
	case debugU16:
		var v uint16
		v, err = m.data.GetU16(addr)
		val = uint32(v)
	default:
		val, err = m.data.GetU32(addr)
	}
	if err != nil {
		glog.Warningf("debug_read %#x: %v", addr, err)
	}
	m.console.SendResponse(m.responses.debug, val)
}

func (m *Machine) commandDebugWrite(args comm.Args) {
	order, addr, val := args.Uint(0), args.Uint(1), args.Uint(2)
	var err error
	switch order {
	case debugU8:
		err = m.data.Set(addr, uint8(val))
	case debugU16:
		err = m.data.SetU16(addr, uint16(val))
	default:
		err = m.data.SetU32(addr, val)
	}
	if err != nil {
		glog.Warningf("debug_write %#x: %v", addr, err)
	}
}

func (m *Machine) commandEmergencyStop(comm.Args) {
	m.shutdown("Request from " + m.Name)
}

// commandReset restores the working data saved at cold start and
// restarts at ResetVector.
func (m *Machine) commandReset(comm.Args) {
	m.hw.Reset()
	m.shadow.Restore()
	m.jump(ResetVector)
}
