// Package v1 holds the wire messages described in l1.proto.
package v1

import (
	"github.com/golang/protobuf/proto"
)

// StatusKind is the kind of a Status.
type StatusKind int32

// Status kinds.
const (
	StatusKind_BOOT  StatusKind = 0
	StatusKind_RESET StatusKind = 1
	StatusKind_HALT  StatusKind = 2
)

// StatusKind_name maps values to names.
var StatusKind_name = map[int32]string{
	0: "BOOT",
	1: "RESET",
	2: "HALT",
}

// StatusKind_value maps names to values.
var StatusKind_value = map[string]int32{
	"BOOT":  0,
	"RESET": 1,
	"HALT":  2,
}

func (x StatusKind) String() string {
	return proto.EnumName(StatusKind_name, int32(x))
}

// Typed is the envelope of every message published by an MCU.
type Typed struct {
	TypeId  uint32 `protobuf:"varint,1,opt,name=type_id,json=typeId,proto3" json:"type_id,omitempty"`
	Message []byte `protobuf:"bytes,2,opt,name=message,proto3" json:"message,omitempty"`
}

func (m *Typed) Reset()         { *m = Typed{} }
func (m *Typed) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*Typed) ProtoMessage() {}

// Status reports a life-cycle change of an MCU.
type Status struct {
	Mcu       string     `protobuf:"bytes,1,opt,name=mcu,proto3" json:"mcu,omitempty"`
	Kind      StatusKind `protobuf:"varint,2,opt,name=kind,proto3,enum=mcu.l1.v1.StatusKind" json:"kind,omitempty"`
	Entry     uint32     `protobuf:"varint,3,opt,name=entry,proto3" json:"entry,omitempty"`
	Boots     uint32     `protobuf:"varint,4,opt,name=boots,proto3" json:"boots,omitempty"`
	Reason    string     `protobuf:"bytes,5,opt,name=reason,proto3" json:"reason,omitempty"`
	Timestamp int64      `protobuf:"varint,6,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
}

func (m *Status) Reset()         { *m = Status{} }
func (m *Status) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*Status) ProtoMessage() {}

func init() {
	proto.RegisterEnum("mcu.l1.v1.StatusKind", StatusKind_name, StatusKind_value)
	proto.RegisterType((*Typed)(nil), "mcu.l1.v1.Typed")
	proto.RegisterType((*Status)(nil), "mcu.l1.v1.Status")
}
