// Package host sets up the connection of a host to an MCU.
package host

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/url"
	"os"
	"strings"

	"golang.org/x/net/websocket"

	"github.com/robotalks/mcu.go/pkg/l1"
	"github.com/robotalks/mcu.go/pkg/l1/comm/mqtt"
)

// Config provides common options to reach an MCU.
type Config struct {
	Ref l1.MCURef

	// RegistryURL specifies the URL of MCU registry.
	// e.g. mqtt://host:port/topic-prefix
	RegistryURL string
	// Serial specifies a direct serial line, skipping the registry.
	// e.g. /tmp/ar100, tcp://host:7070, ws://host:7071/console
	Serial string
}

var defaultConfig = Config{
	RegistryURL: "mqtt://localhost:1883/mcu/",
}

func init() {
	if val := os.Getenv("MCU_TYPE"); val != "" {
		defaultConfig.Ref.Type = val
	}
	if val := os.Getenv("MCU_ID"); val != "" {
		defaultConfig.Ref.ID = val
	}
	if val := os.Getenv("MCU_REGISTRY_URL"); val != "" {
		defaultConfig.RegistryURL = val
	}
	if val := os.Getenv("MCU_SERIAL"); val != "" {
		defaultConfig.Serial = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Ref.Type, "mcu-type", defaultConfig.Ref.Type, "MCU type to connect.")
	flag.StringVar(&defaultConfig.Ref.ID, "mcu-id", defaultConfig.Ref.ID, "MCU ID to connect.")
	flag.StringVar(&defaultConfig.RegistryURL, "mcu-reg", defaultConfig.RegistryURL, "MCU Registry URL.")
	flag.StringVar(&defaultConfig.Serial, "serial", defaultConfig.Serial, "Serial line of the MCU, skips the registry.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewConnector creates a Connector using current config.
func (c *Config) NewConnector() (l1.Connector, error) {
	parsedURL, err := url.Parse(c.RegistryURL)
	if err != nil {
		return nil, fmt.Errorf("invalid registry URL: %w", err)
	}
	switch parsedURL.Scheme {
	case "mqtt":
		return mqtt.NewConnector(c.RegistryURL)
	default:
		return nil, fmt.Errorf("unknown registry URL scheme: %q", parsedURL.Scheme)
	}
}

// MustNewConnector creates a Connector and fails on error.
func (c *Config) MustNewConnector() l1.Connector {
	conn, err := c.NewConnector()
	if err != nil {
		log.Fatalln(err)
	}
	return conn
}

// HasSerial reports whether a direct serial line is configured.
func (c *Config) HasSerial() bool {
	return c.Serial != ""
}

// DialSerial opens the direct serial line.
func (c *Config) DialSerial(ctx context.Context) (io.ReadWriteCloser, error) {
	if !strings.Contains(c.Serial, "://") {
		return os.OpenFile(c.Serial, os.O_RDWR, 0)
	}
	u, err := url.Parse(c.Serial)
	if err != nil {
		return nil, fmt.Errorf("invalid serial URL: %w", err)
	}
	switch u.Scheme {
	case "tcp":
		var d net.Dialer
		return d.DialContext(ctx, "tcp", u.Host)
	case "ws":
		conn, err := websocket.Dial(c.Serial, "", "http://"+u.Host+"/")
		if err != nil {
			return nil, err
		}
		conn.PayloadType = websocket.BinaryFrame
		return conn, nil
	default:
		return nil, fmt.Errorf("unknown serial URL scheme: %q", u.Scheme)
	}
}

// Connect opens the serial line of the MCU, directly or through the
// registry.
func (c *Config) Connect(ctx context.Context) (io.ReadWriteCloser, error) {
	if c.HasSerial() {
		return c.DialSerial(ctx)
	}
	if !c.Ref.IsValid() {
		return nil, fmt.Errorf("mcu type and id must be specified")
	}
	connector, err := c.NewConnector()
	if err != nil {
		return nil, err
	}
	return connector.Connect(ctx, c.Ref)
}
