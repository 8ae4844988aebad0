// Package sched is the cooperative, non-preemptive task scheduler of
// the firmware. Everything here runs on a single goroutine.
package sched

import (
	"context"
	"runtime"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/robotalks/mcu.go/pkg/mcu/timer"
)

// Wake is the one-bit "task has pending work" flag.
type Wake struct {
	pending atomic.Bool
}

// Pending peeks at the flag without consuming it.
func (w *Wake) Pending() bool {
	return w.pending.Load()
}

// Task is a cooperative task. It is invoked every time the scheduler
// runs its task list and must return promptly.
type Task interface {
	RunTask()
}

// TaskFunc is func form of Task.
type TaskFunc func()

// RunTask implements Task.
func (f TaskFunc) RunTask() {
	f()
}

// Waiter idles the processor until some event may have happened.
type Waiter interface {
	Wait()
}

// TimerHardware is the compare unit timers are programmed on.
type TimerHardware interface {
	Now() uint32
	Arm(deadline uint32)
}

// Result tells the scheduler what to do with a timer after it ran.
type Result int

const (
	// Done removes the timer.
	Done Result = iota
	// Reschedule reinserts the timer at its updated WakeTime.
	Reschedule
)

// Timer is a software timer. Func runs on expiry and may update
// WakeTime before returning Reschedule.
type Timer struct {
	WakeTime uint32
	Func     func(*Timer) Result

	next *Timer
}

const (
	// sentinelPeriod keeps one timer always queued, within half the
	// counter range so wrap-safe comparisons stay valid.
	sentinelPeriod uint32 = 0x40000000
	// maxDispatch bounds the timers run per dispatch so tasks are not
	// starved by a storm of due timers.
	maxDispatch = 32
)

type taskStatus int32

const (
	tsIdle taskStatus = iota
	tsRequested
	tsRunning
)

// Scheduler runs tasks and timers.
type Scheduler struct {
	Waiter Waiter

	hw       TimerHardware
	tasks    []Task
	status   atomic.Int32
	timers   *Timer
	sentinel Timer

	shutdown bool
	reason   string
}

// New creates a Scheduler programming timers on hw.
func New(hw TimerHardware) *Scheduler {
	s := &Scheduler{hw: hw}
	s.sentinel.Func = func(t *Timer) Result {
		t.WakeTime += sentinelPeriod
		return Reschedule
	}
	s.sentinel.WakeTime = hw.Now() + sentinelPeriod
	s.timers = &s.sentinel
	return s
}

// AddTask registers a task.
func (s *Scheduler) AddTask(tasks ...Task) *Scheduler {
	s.tasks = append(s.tasks, tasks...)
	return s
}

// WakeTask flags w and requests a run of the task list. Waking an
// already pending flag changes nothing.
func (s *Scheduler) WakeTask(w *Wake) {
	w.pending.Store(true)
	s.status.Store(int32(tsRequested))
}

// CheckWake consumes w, reporting whether it was pending.
func (s *Scheduler) CheckWake(w *Wake) bool {
	return w.pending.Swap(false)
}

// AddTimer queues t. When t becomes the earliest timer the hardware
// is re-armed for it.
func (s *Scheduler) AddTimer(t *Timer) {
	s.insert(t)
	if s.timers == t {
		s.hw.Arm(t.WakeTime)
	}
}

// DelTimer removes t from the queue if present.
func (s *Scheduler) DelTimer(t *Timer) {
	for pp := &s.timers; *pp != nil; pp = &(*pp).next {
		if *pp == t {
			*pp, t.next = t.next, nil
			return
		}
	}
}

// NextWake is the wake time of the earliest queued timer.
func (s *Scheduler) NextWake() uint32 {
	return s.timers.WakeTime
}

// DispatchMany runs all timers that are due and returns the deadline
// the hardware should be armed for next.
func (s *Scheduler) DispatchMany() uint32 {
	for n := 0; n < maxDispatch; n++ {
		t := s.timers
		if timer.IsBefore(s.hw.Now(), t.WakeTime) {
			return t.WakeTime
		}
		s.timers, t.next = t.next, nil
		if t.Func(t) == Reschedule {
			s.insert(t)
		}
	}
	glog.V(2).Info("timer dispatch limit reached")
	return s.hw.Now() + 1
}

func (s *Scheduler) insert(t *Timer) {
	pp := &s.timers
	for *pp != nil && !timer.IsBefore(t.WakeTime, (*pp).WakeTime) {
		pp = &(*pp).next
	}
	t.next, *pp = *pp, t
}

// Run is the main loop. It runs the task list whenever a task was
// woken and idles on the Waiter otherwise. It only returns when ctx
// is done.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if taskStatus(s.status.Load()) != tsRequested {
			s.status.Store(int32(tsIdle))
			for taskStatus(s.status.Load()) != tsRequested {
				if err := ctx.Err(); err != nil {
					return err
				}
				if s.Waiter != nil {
					s.Waiter.Wait()
				}
			}
		}
		s.status.Store(int32(tsRunning))
		for _, t := range s.tasks {
			t.RunTask()
		}
	}
}

// Shutdown halts the firmware with a reason. It does not return: the
// calling goroutine, which is the firmware goroutine, is terminated
// after deferred calls run.
func (s *Scheduler) Shutdown(reason string) {
	s.shutdown, s.reason = true, reason
	glog.Errorf("shutdown: %s", reason)
	runtime.Goexit()
}

// IsShutdown reports whether Shutdown was called.
func (s *Scheduler) IsShutdown() bool {
	return s.shutdown
}

// ShutdownReason returns the reason passed to Shutdown.
func (s *Scheduler) ShutdownReason() string {
	return s.reason
}
