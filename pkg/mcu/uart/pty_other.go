//go:build !linux

package uart

import "errors"

// PTY is only supported on linux.
type PTY struct{}

// OpenPTY is only supported on linux.
func OpenPTY(link string) (*PTY, error) {
	return nil, errors.New("pty uart requires linux")
}

// Name returns the slave device path.
func (p *PTY) Name() string { return "" }

// Available implements Port.
func (p *PTY) Available() int { return 0 }

// Getc implements Port.
func (p *PTY) Getc() byte { return 0 }

// Putc implements Port.
func (p *PTY) Putc(byte) {}

// Close implements io.Closer.
func (p *PTY) Close() error { return nil }
