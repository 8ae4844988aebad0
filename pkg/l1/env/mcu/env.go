// Package mcu sets up the environment of an MCU daemon: the serial
// line transport and the registration on MQTT.
package mcu

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/url"
	"os"

	"github.com/golang/glog"

	fx "github.com/robotalks/mcu.go/pkg/framework"
	"github.com/robotalks/mcu.go/pkg/l0/comm"
	"github.com/robotalks/mcu.go/pkg/l1"
	l1comm "github.com/robotalks/mcu.go/pkg/l1/comm"
	"github.com/robotalks/mcu.go/pkg/l1/comm/mqtt"
	"github.com/robotalks/mcu.go/pkg/l1/env"
	"github.com/robotalks/mcu.go/pkg/mcu/board"
	"github.com/robotalks/mcu.go/pkg/mcu/uart"
)

// Config provides common options to setup an env for an MCU.
type Config struct {
	Info l1.MCUInfo

	// UARTURL specifies where the serial line is exposed.
	// e.g. pty:/tmp/ar100, tcp://:7070, ws://:7071/console,
	// mqtt://host:port/topic-prefix
	UARTURL string
	// MQTTBrokerURL specifies the MQTT broker to register with.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string
	// Capacity is the receive FIFO depth of stream transports.
	Capacity int
}

var defaultConfig = Config{
	Info: l1.MCUInfo{
		Ref:  l1.MCURef{Type: board.DefaultName},
		Meta: l1.MCUMeta{Description: "AR100 management co-processor"},
	},
	UARTURL:  "pty:/tmp/ar100",
	Capacity: uart.DefaultCapacity,
}

func init() {
	if val := os.Getenv("MCU_UART_URL"); val != "" {
		defaultConfig.UARTURL = val
	}
	if val := os.Getenv("MCU_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	defaultConfig.Info.Ref.ID = env.MachineID()
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Info.Ref.ID, "id", defaultConfig.Info.Ref.ID, "MCU ID")
	flag.StringVar(&defaultConfig.UARTURL, "uart", defaultConfig.UARTURL, "Serial line URL")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL")
	flag.IntVar(&defaultConfig.Capacity, "rx-fifo", defaultConfig.Capacity, "Receive FIFO depth")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Env is the env of an MCU.
type Env struct {
	Config   *Config
	Port     uart.Port
	Observer board.Observer
	Runners  []fx.Runnable

	closers []io.Closer
}

// NewEnv creates Env from config.
func (c *Config) NewEnv() (*Env, error) {
	if !c.Info.Ref.IsValid() {
		return nil, fmt.Errorf("mcu type and id must be specified")
	}
	e := &Env{Config: c}
	if err := e.setupUART(); err != nil {
		e.Close()
		return nil, err
	}
	if c.MQTTBrokerURL != "" {
		reg, err := mqtt.NewRegistrar(c.MQTTBrokerURL, c.Info)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("create MQTT registrar error: %w", err)
		}
		e.Observer = reg
		e.Runners = append(e.Runners, fx.NamedRun("registrar", reg))
	}
	return e, nil
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv() *Env {
	e, err := c.NewEnv()
	if err != nil {
		log.Fatalln(err)
	}
	return e
}

func (e *Env) newLine() *uart.Line {
	line := uart.NewLine(e.Config.Capacity, comm.MessageSync)
	e.Port = line
	return line
}

func (e *Env) setupUART() error {
	u, err := url.Parse(e.Config.UARTURL)
	if err != nil {
		return fmt.Errorf("invalid uart URL: %w", err)
	}
	switch u.Scheme {
	case "pty":
		path := u.Opaque
		if path == "" {
			path = u.Path
		}
		pty, err := uart.OpenPTY(path)
		if err != nil {
			return err
		}
		e.Port = pty
		e.closers = append(e.closers, pty)
	case "tcp":
		ln, err := net.Listen("tcp", u.Host)
		if err != nil {
			return err
		}
		glog.Infof("uart on tcp %s", ln.Addr())
		e.Runners = append(e.Runners, fx.NamedRun("uart-tcp", &uart.Server{Line: e.newLine(), Listener: ln}))
	case "ws":
		glog.Infof("uart on websocket %s%s", u.Host, u.Path)
		e.Runners = append(e.Runners, fx.NamedRun("uart-ws", &uart.WSServer{Line: e.newLine(), Addr: u.Host, Path: u.Path}))
	case "mqtt":
		q, err := mqtt.NewQueueFromURL(e.Config.UARTURL)
		if err != nil {
			return err
		}
		line := e.newLine()
		rw := mqtt.NewPacketReadWriter(q).ForMCU(e.Config.Info.Ref)
		e.Runners = append(e.Runners, fx.NamedRun("uart-mqtt", fx.RunFunc(func(ctx context.Context) error {
			rw.Open()
			if err := q.ConnectWait(ctx); err != nil {
				return err
			}
			defer q.Close()
			glog.Infof("uart on mqtt %s%s/{rx,tx}", q.TopicPrefix, e.Config.Info.Ref.Name())
			return line.Attach(ctx, l1comm.NewStream(rw))
		})))
	default:
		return fmt.Errorf("unknown uart URL scheme: %q", u.Scheme)
	}
	return nil
}

// Close releases the transports opened by NewEnv.
func (e *Env) Close() error {
	var errs fx.AggregatedError
	for _, c := range e.closers {
		errs.Add(c.Close())
	}
	e.closers = nil
	return errs.Aggregate()
}
