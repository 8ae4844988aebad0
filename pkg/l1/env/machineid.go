// Package env holds helpers shared by the MCU and host environments.
package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// MachineID retrieves the unique ID identifying the machine. The
// hostname is used where the platform has no machine ID.
func MachineID() string {
	id, err := machineid.ProtectedID("mcu.go")
	if err == nil {
		if len(id) > 16 {
			id = id[:16]
		}
		return id
	}
	glog.Warningf("machine id: %v", err)
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
