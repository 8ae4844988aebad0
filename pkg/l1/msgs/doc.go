// Package msgs provides the messages an MCU publishes next to its
// serial line, wrapped in a Typed envelope.
//
// Producer: the MCU daemon
// Consumer: hosts and monitors
package msgs
