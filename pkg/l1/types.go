// Package l1 names MCUs on a network and defines how a host finds and
// reaches their serial line.
package l1

import (
	"context"
	"io"
)

// MCURef is a reference to an MCU instance.
type MCURef struct {
	// Type is the MCU type, reported as the MCU constant.
	Type string
	// ID is unique ID of the board.
	ID string
}

// Name retrieves the name from ref.
func (r MCURef) Name() string {
	return r.Type + "/" + r.ID
}

// IsValid indicates MCURef is valid.
func (r MCURef) IsValid() bool {
	return r.Type != "" && r.ID != ""
}

// MCUMeta provides metadata for an MCU.
type MCUMeta struct {
	Description string            `json:"description,omitempty"`
	Version     string            `json:"version,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// MCUInfo provides information of an MCU.
type MCUInfo struct {
	Ref  MCURef
	Meta MCUMeta
}

// Connector is used by hosts to reach an MCU.
type Connector interface {
	// Discover enumerates registered MCUs.
	Discover(context.Context) ([]MCUInfo, error)
	// Connect opens the serial line of the specified MCU.
	Connect(context.Context, MCURef) (io.ReadWriteCloser, error)
}
