// Package region provides the firmware working-data memory and its
// preserved shadow copy used across warm resets.
package region

import (
	"encoding/binary"
	"errors"

	"github.com/golang/glog"
)

// Order is the byte order of multi-byte values in a Region.
var Order = binary.LittleEndian

// ErrOutOfRange is returned when an access exceeds the region.
var ErrOutOfRange = errors.New("address out of range")

// Region is a fixed-size byte-addressed memory.
type Region struct {
	buf []byte
}

// New allocates a zeroed region of size bytes.
func New(size int) *Region {
	return &Region{buf: make([]byte, size)}
}

// Size returns the size in bytes.
func (r *Region) Size() int {
	return len(r.buf)
}

// Bytes exposes the backing memory.
func (r *Region) Bytes() []byte {
	return r.buf
}

func (r *Region) check(addr uint32, size int) error {
	if uint64(addr)+uint64(size) > uint64(len(r.buf)) {
		return ErrOutOfRange
	}
	return nil
}

// Get reads one byte.
func (r *Region) Get(addr uint32) (uint8, error) {
	if err := r.check(addr, 1); err != nil {
		return 0, err
	}
	return r.buf[addr], nil
}

// Set writes one byte.
func (r *Region) Set(addr uint32, v uint8) error {
	if err := r.check(addr, 1); err != nil {
		return err
	}
	r.buf[addr] = v
	return nil
}

// GetU16 reads a 16-bit value.
func (r *Region) GetU16(addr uint32) (uint16, error) {
	if err := r.check(addr, 2); err != nil {
		return 0, err
	}
	return Order.Uint16(r.buf[addr:]), nil
}

// SetU16 writes a 16-bit value.
func (r *Region) SetU16(addr uint32, v uint16) error {
	if err := r.check(addr, 2); err != nil {
		return err
	}
	Order.PutUint16(r.buf[addr:], v)
	return nil
}

// GetU32 reads a 32-bit value.
func (r *Region) GetU32(addr uint32) (uint32, error) {
	if err := r.check(addr, 4); err != nil {
		return 0, err
	}
	return Order.Uint32(r.buf[addr:]), nil
}

// SetU32 writes a 32-bit value.
func (r *Region) SetU32(addr uint32, v uint32) error {
	if err := r.check(addr, 4); err != nil {
		return err
	}
	Order.PutUint32(r.buf[addr:], v)
	return nil
}

// PutRange copies data into the region starting at addr.
func (r *Region) PutRange(addr uint32, data ...byte) error {
	if err := r.check(addr, len(data)); err != nil {
		return err
	}
	copy(r.buf[addr:], data)
	return nil
}

// Shadow is the preserved copy of a Region. It has no header and is
// exactly the size of the region it mirrors. A fresh Shadow holds
// zeros, so restoring before any save yields a zeroed region.
type Shadow struct {
	live  *Region
	buf   []byte
	saved bool
}

// NewShadow creates the shadow for live.
func NewShadow(live *Region) *Shadow {
	return &Shadow{live: live, buf: make([]byte, live.Size())}
}

// Save copies the live region into the shadow.
func (s *Shadow) Save() {
	copy(s.buf, s.live.buf)
	s.saved = true
}

// Restore copies the shadow back over the live region.
func (s *Shadow) Restore() {
	if !s.saved {
		glog.Warning("restoring working data before any save, region zeroed")
	}
	copy(s.live.buf, s.buf)
}

// Saved reports whether Save has been called.
func (s *Shadow) Saved() bool {
	return s.saved
}
