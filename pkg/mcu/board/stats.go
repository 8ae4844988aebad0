package board

import (
	"time"

	"github.com/robotalks/mcu.go/pkg/mcu/sched"
)

const statsSumsqBase = 256

// stats measures the task loop and reports it every StatsInterval.
type stats struct {
	m        *Machine
	wake     sched.Wake
	timer    sched.Timer
	interval uint32
	last     uint32

	count, sum, sumsq uint32
}

func (s *stats) init(m *Machine) {
	*s = stats{m: m, last: m.hw.Now()}
	s.interval = uint32(uint64(m.Frequency) * uint64(m.StatsInterval) / uint64(time.Second))
	if s.interval == 0 || s.interval >= 1<<31 {
		s.interval = m.Frequency
	}
	s.timer.WakeTime = s.last + s.interval
	s.timer.Func = func(t *sched.Timer) sched.Result {
		m.sched.WakeTask(&s.wake)
		t.WakeTime += s.interval
		return sched.Reschedule
	}
}

// RunTask implements sched.Task.
func (s *stats) RunTask() {
	now := s.m.hw.Now()
	diff := now - s.last
	s.last = now
	s.count++
	s.sum += diff
	s.sumsq = addSumsq(s.sumsq, diff)
	if !s.m.sched.CheckWake(&s.wake) {
		return
	}
	s.m.uptime()
	s.m.console.SendResponse(s.m.responses.stats, s.count, s.sum, s.sumsq)
	s.count, s.sum, s.sumsq = 0, 0, 0
}

// addSumsq accumulates the scaled square of diff, saturating at the
// top of the u32 range.
func addSumsq(sumsq, diff uint32) uint32 {
	q := (uint64(diff) + statsSumsqBase - 1) / statsSumsqBase
	if next := uint64(sumsq) + q*q; next < 0xffffffff {
		return uint32(next)
	}
	return 0xffffffff
}
