// Package irq presents an interrupt-shaped API on hardware that has
// no maskable interrupts. All event handling is done by polling.
package irq

// Status is the saved interrupt state.
type Status uint32

// StatusDisabled is the only state Save ever reports: with no
// interrupts there is nothing to save.
const StatusDisabled Status = 0

// Poller checks hardware event state once. It reports whether any
// event was handled.
type Poller interface {
	Poll() bool
}

// Shim implements the interrupt control surface.
type Shim struct {
	Poller Poller
	// Idle is called between polls that found nothing. Returning false
	// makes Wait return without an event, which lets the host process
	// stop the firmware loop.
	Idle func() bool
}

// Disable is a no-op.
func (s *Shim) Disable() {}

// Enable is a no-op.
func (s *Shim) Enable() {}

// Save returns StatusDisabled.
func (s *Shim) Save() Status {
	return StatusDisabled
}

// Restore is a no-op.
func (s *Shim) Restore(Status) {}

// Wait polls until an event is handled.
func (s *Shim) Wait() {
	for !s.Poll() {
		if s.Idle != nil && !s.Idle() {
			return
		}
	}
}

// Poll runs the poll dispatcher once.
func (s *Shim) Poll() bool {
	if s.Poller == nil {
		return false
	}
	return s.Poller.Poll()
}
