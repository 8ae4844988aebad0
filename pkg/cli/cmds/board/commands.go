package board

import (
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/mcu.go/pkg/cli/sh"
)

var debugOrders = map[string]uint8{"u8": 0, "u16": 1, "u32": 2}

func parseUint(name, s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("Invalid %s: %v", name, err)
	}
	return uint32(v), nil
}

func parseOrder(s string) (uint8, error) {
	order, ok := debugOrders[s]
	if !ok {
		return 0, fmt.Errorf("Invalid WIDTH %q, expect u8, u16 or u32", s)
	}
	return order, nil
}

// FinalizeArgs maps "CRC" to finalize_config arguments.
func FinalizeArgs(args []string) ([]interface{}, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("CRC required")
	}
	crc, err := parseUint("CRC", args[0])
	if err != nil {
		return nil, err
	}
	return []interface{}{crc}, nil
}

// PeekArgs maps "WIDTH ADDR" to debug_read arguments.
func PeekArgs(args []string) ([]interface{}, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("WIDTH and ADDR required")
	}
	order, err := parseOrder(args[0])
	if err != nil {
		return nil, err
	}
	addr, err := parseUint("ADDR", args[1])
	if err != nil {
		return nil, err
	}
	return []interface{}{order, addr}, nil
}

// PokeArgs maps "WIDTH ADDR VALUE" to debug_write arguments.
func PokeArgs(args []string) ([]interface{}, error) {
	if len(args) < 3 {
		return nil, fmt.Errorf("WIDTH, ADDR and VALUE required")
	}
	values, err := PeekArgs(args[:2])
	if err != nil {
		return nil, err
	}
	val, err := parseUint("VALUE", args[2])
	if err != nil {
		return nil, err
	}
	return append(values, val), nil
}

var (
	// UptimeCmd queries the uptime.
	UptimeCmd = ishell.Cmd{
		Name:    "uptime",
		Aliases: []string{"up"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoQuery(c, "uptime", "get_uptime")
		}),
	}

	// ClockCmd queries the clock.
	ClockCmd = ishell.Cmd{
		Name: "clock",
		Help: "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoQuery(c, "clock", "get_clock")
		}),
	}

	// ConfigCmd queries the configuration state.
	ConfigCmd = ishell.Cmd{
		Name:    "config",
		Aliases: []string{"cfg"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoQuery(c, "config", "get_config")
		}),
	}

	// FinalizeCmd finalizes the configuration.
	FinalizeCmd = ishell.Cmd{
		Name: "finalize",
		Help: "CRC",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if args, err := FinalizeArgs(c.Args); err != nil {
				c.Err(err)
			} else {
				sh.DoSend(c, "finalize_config", args...)
			}
		}),
	}

	// PeekCmd reads working data.
	PeekCmd = ishell.Cmd{
		Name: "peek",
		Help: "u8|u16|u32 ADDR",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if args, err := PeekArgs(c.Args); err != nil {
				c.Err(err)
			} else {
				sh.DoQuery(c, "debug_result", "debug_read", args...)
			}
		}),
	}

	// PokeCmd writes working data.
	PokeCmd = ishell.Cmd{
		Name: "poke",
		Help: "u8|u16|u32 ADDR VALUE",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if args, err := PokeArgs(c.Args); err != nil {
				c.Err(err)
			} else {
				sh.DoSend(c, "debug_write", args...)
			}
		}),
	}

	// ResetCmd restarts the MCU at its reset vector.
	ResetCmd = ishell.Cmd{
		Name: "reset",
		Help: "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoPost(c, "reset")
		}),
	}

	// EmergencyStopCmd shuts the MCU down.
	EmergencyStopCmd = ishell.Cmd{
		Name:    "estop",
		Aliases: []string{"stop"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoPost(c, "emergency_stop")
		}),
	}
)

func init() {
	sh.AddCmds(
		&UptimeCmd,
		&ClockCmd,
		&ConfigCmd,
		&FinalizeCmd,
		&PeekCmd,
		&PokeCmd,
		&ResetCmd,
		&EmergencyStopCmd,
	)
}
