// Package uart provides the byte-level serial line of the firmware
// and the transports that carry it to a host.
package uart

import (
	"io"
	"sync"

	"github.com/golang/glog"
)

// Port is the register-level view of a serial line.
type Port interface {
	// Available returns the number of bytes waiting in the receive FIFO.
	Available() int
	// Getc pops one received byte. It must only be called when
	// Available reported data.
	Getc() byte
	// Putc transmits one byte.
	Putc(byte)
}

// DefaultCapacity is the receive FIFO depth.
const DefaultCapacity = 4096

// NoFlush disables flush-on-byte in FIFO.
const NoFlush = -1

type flusher interface {
	Flush() error
}

// FIFO is an in-memory Port. Received bytes are fed from any
// goroutine; transmitted bytes go to the output writer.
type FIFO struct {
	// Capacity bounds the receive FIFO; bytes fed beyond it are dropped.
	Capacity int
	// FlushByte makes Putc flush a buffered output after writing it.
	FlushByte int

	lock    sync.Mutex
	rx      []byte
	dropped int

	outLock sync.Mutex
	out     io.Writer
}

// NewFIFO creates a FIFO writing transmitted bytes to out.
func NewFIFO(capacity int, out io.Writer) *FIFO {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &FIFO{Capacity: capacity, FlushByte: NoFlush, out: out}
}

// Feed appends received bytes and returns how many were accepted.
func (f *FIFO) Feed(p []byte) int {
	f.lock.Lock()
	defer f.lock.Unlock()
	n := len(p)
	if room := f.Capacity - len(f.rx); n > room {
		n = room
	}
	if n < 0 {
		n = 0
	}
	f.rx = append(f.rx, p[:n]...)
	if lost := len(p) - n; lost > 0 {
		f.dropped += lost
		glog.V(1).Infof("uart rx overrun, %d bytes dropped", lost)
	}
	return n
}

// Write implements io.Writer by feeding the receive side.
func (f *FIFO) Write(p []byte) (int, error) {
	f.Feed(p)
	return len(p), nil
}

// Dropped returns the number of bytes lost to overrun.
func (f *FIFO) Dropped() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.dropped
}

// Available implements Port.
func (f *FIFO) Available() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return len(f.rx)
}

// Getc implements Port. It returns 0 when the FIFO is empty.
func (f *FIFO) Getc() byte {
	f.lock.Lock()
	defer f.lock.Unlock()
	if len(f.rx) == 0 {
		return 0
	}
	b := f.rx[0]
	f.rx = f.rx[1:]
	if len(f.rx) == 0 {
		f.rx = nil
	}
	return b
}

// SetOutput replaces the transmit writer.
func (f *FIFO) SetOutput(out io.Writer) {
	f.outLock.Lock()
	f.out = out
	f.outLock.Unlock()
}

// Putc implements Port. Without an output the byte is discarded.
func (f *FIFO) Putc(b byte) {
	f.outLock.Lock()
	defer f.outLock.Unlock()
	if f.out == nil {
		return
	}
	if _, err := f.out.Write([]byte{b}); err != nil {
		glog.V(1).Infof("uart tx error: %v", err)
		return
	}
	if int(b) == f.FlushByte {
		if fl, ok := f.out.(flusher); ok {
			if err := fl.Flush(); err != nil {
				glog.V(1).Infof("uart tx flush error: %v", err)
			}
		}
	}
}
