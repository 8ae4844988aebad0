package msgs

import (
	"time"

	"github.com/golang/protobuf/proto"

	"github.com/robotalks/mcu.go/pkg/mcu/board"
	pb "github.com/robotalks/mcu.go/pkg/proto/mcu/l1/v1"
)

// TypeID Groups
const (
	GroupMCU    uint32 = 0x00010000
	GroupCustom uint32 = 0x7f000000 // base group id for custom messages.
)

// TypeIDs
const (
	StatusTypeID uint32 = TypeIDKindEvent | GroupMCU | 0x0001
)

// Status event.
type Status struct {
	pb.Status
}

// NewMessage implements Message.
func (m *Status) NewMessage() Message { return &Status{} }

// TypeID implements Message.
func (m *Status) TypeID() uint32 { return StatusTypeID }

// Serializable implements Message.
func (m *Status) Serializable() proto.Message { return &m.Status }

var statusKinds = map[board.EventKind]pb.StatusKind{
	board.EventBoot:  pb.StatusKind_BOOT,
	board.EventReset: pb.StatusKind_RESET,
	board.EventHalt:  pb.StatusKind_HALT,
}

// StatusFromEvent converts a machine event, stamped with at.
func StatusFromEvent(ev board.Event, at time.Time) *Status {
	return &Status{Status: pb.Status{
		Mcu:       ev.MCU,
		Kind:      statusKinds[ev.Kind],
		Entry:     ev.Entry,
		Boots:     uint32(ev.Boots),
		Reason:    ev.Reason,
		Timestamp: at.UnixNano(),
	}}
}
