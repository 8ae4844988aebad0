package board

// EventKind classifies machine life-cycle events.
type EventKind int

// Event kinds.
const (
	EventBoot EventKind = iota
	EventReset
	EventHalt
)

func (k EventKind) String() string {
	switch k {
	case EventBoot:
		return "boot"
	case EventReset:
		return "reset"
	case EventHalt:
		return "halt"
	}
	return "unknown"
}

// Event is reported to the Observer of a Machine.
type Event struct {
	MCU    string
	Kind   EventKind
	Entry  uint32
	Boots  int
	Reason string
}

// Observer receives machine events. Boot events are delivered on the
// firmware goroutine, so Observe must not block.
type Observer interface {
	Observe(Event)
}

// ObserverFunc is func form of Observer.
type ObserverFunc func(Event)

// Observe implements Observer.
func (f ObserverFunc) Observe(ev Event) {
	f(ev)
}

// Observers fans events out to multiple observers.
type Observers []Observer

// Observe implements Observer.
func (o Observers) Observe(ev Event) {
	for _, ob := range o {
		ob.Observe(ev)
	}
}
