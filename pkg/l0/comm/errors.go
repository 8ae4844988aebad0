package comm

import (
	"errors"
	"fmt"
)

var (
	// ErrShortData indicates content ended in the middle of a value.
	ErrShortData = errors.New("short data")
	// ErrBadVLQ indicates an integer encoding longer than 5 bytes.
	ErrBadVLQ = errors.New("malformed integer encoding")
	// ErrBlockTooLarge indicates content does not fit in one block.
	ErrBlockTooLarge = errors.New("message block too large")
	// ErrEncode indicates arguments do not fit the message format.
	ErrEncode = errors.New("message encode error")
	// ErrNotReady indicates the client has not loaded a dictionary.
	ErrNotReady = errors.New("not ready")
	// ErrNoAck indicates the MCU did not acknowledge a block in time.
	ErrNoAck = errors.New("no ack")
)

// UnknownMessageError is returned for ids or names missing from a
// dictionary.
type UnknownMessageError struct {
	ID   int
	Name string
}

// Error implements error.
func (e *UnknownMessageError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("unknown message %q", e.Name)
	}
	return fmt.Sprintf("unknown message id %d", e.ID)
}

// FormatError indicates a malformed message format string.
type FormatError struct {
	Format string
	Reason string
}

// Error implements error.
func (e *FormatError) Error() string {
	return fmt.Sprintf("bad format %q: %s", e.Format, e.Reason)
}
