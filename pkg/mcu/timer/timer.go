// Package timer emulates the free-running counter and the compare
// latch of the co-processor timer block.
package timer

import (
	"sync"
	"time"
)

// DefaultFrequency is the counter rate in ticks per second.
const DefaultFrequency uint32 = 24000000

// Counter reads a free-running 32-bit tick counter.
type Counter interface {
	Now() uint32
}

// IsBefore reports whether tick a is before tick b, across wraparound.
func IsBefore(a, b uint32) bool {
	return int32(a-b) < 0
}

// Clock is a Counter derived from the host monotonic clock.
type Clock struct {
	Frequency uint32

	start time.Time
	now   func() time.Time
}

// NewClock creates a Clock counting at freq ticks per second.
func NewClock(freq uint32) *Clock {
	if freq == 0 {
		freq = DefaultFrequency
	}
	return &Clock{Frequency: freq, start: time.Now(), now: time.Now}
}

// Now implements Counter.
func (c *Clock) Now() uint32 {
	elapsed := c.now().Sub(c.start)
	secs, rem := uint64(elapsed/time.Second), uint64(elapsed%time.Second)
	return uint32(secs*uint64(c.Frequency) + rem*uint64(c.Frequency)/uint64(time.Second))
}

// Restart zeroes the counter.
func (c *Clock) Restart() {
	c.start = c.now()
}

// Ticks converts a duration into counter ticks.
func (c *Clock) Ticks(d time.Duration) uint32 {
	return uint32(uint64(d) * uint64(c.Frequency) / uint64(time.Second))
}

// ManualClock is a Counter only advanced explicitly.
type ManualClock struct {
	lock  sync.Mutex
	ticks uint32
}

// Now implements Counter.
func (c *ManualClock) Now() uint32 {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.ticks
}

// Advance moves the counter forward.
func (c *ManualClock) Advance(ticks uint32) {
	c.lock.Lock()
	c.ticks += ticks
	c.lock.Unlock()
}

// Set places the counter at an absolute value.
func (c *ManualClock) Set(ticks uint32) {
	c.lock.Lock()
	c.ticks = ticks
	c.lock.Unlock()
}

// Restart zeroes the counter.
func (c *ManualClock) Restart() {
	c.Set(0)
}

type restarter interface {
	Restart()
}

// Hardware is the compare unit: once armed, the latch reads pending
// as soon as the counter reaches the deadline, and stays pending
// until cleared.
type Hardware struct {
	counter  Counter
	armed    bool
	deadline uint32
}

// New creates the timer hardware over a counter.
func New(counter Counter) *Hardware {
	return &Hardware{counter: counter}
}

// Now reads the counter.
func (h *Hardware) Now() uint32 {
	return h.counter.Now()
}

// Arm programs the compare register.
func (h *Hardware) Arm(deadline uint32) {
	h.deadline, h.armed = deadline, true
}

// Deadline returns the armed deadline.
func (h *Hardware) Deadline() (uint32, bool) {
	return h.deadline, h.armed
}

// Pending reports the latch state.
func (h *Hardware) Pending() bool {
	return h.armed && !IsBefore(h.counter.Now(), h.deadline)
}

// ClearLatch acknowledges the expiry.
func (h *Hardware) ClearLatch() {
	h.armed = false
}

// Reset disarms the compare unit and restarts the counter when the
// counter supports it.
func (h *Hardware) Reset() {
	h.armed, h.deadline = false, 0
	if r, ok := h.counter.(restarter); ok {
		r.Restart()
	}
}
