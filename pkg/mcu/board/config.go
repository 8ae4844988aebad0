package board

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/robotalks/mcu.go/pkg/mcu/timer"
	"github.com/robotalks/mcu.go/pkg/mcu/uart"
)

// Config defines the machine options.
type Config struct {
	Name          string
	DataSize      int
	InitialData   []byte
	Frequency     uint32
	StatsInterval time.Duration
	IdleInterval  time.Duration
	Banner        string
	Version       string
}

var defaultConfig = Config{
	Name:          DefaultName,
	DataSize:      DefaultDataSize,
	Frequency:     timer.DefaultFrequency,
	StatsInterval: DefaultStatsInterval,
	IdleInterval:  DefaultIdleInterval,
	Banner:        "**AR100 v0.1.0**\n",
	Version:       "v0.1.0",
}

func init() {
	if val := os.Getenv("MCU_NAME"); val != "" {
		defaultConfig.Name = val
	}
	if val := os.Getenv("MCU_CONFIG"); val != "" {
		if err := defaultConfig.LoadFile(val); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

type frequencyFlag struct {
	v *uint32
}

func (f frequencyFlag) String() string {
	if f.v == nil {
		return ""
	}
	return fmt.Sprint(*f.v)
}

func (f frequencyFlag) Set(s string) error {
	var v uint32
	if _, err := fmt.Sscan(s, &v); err != nil || v == 0 {
		return fmt.Errorf("invalid frequency %q", s)
	}
	*f.v = v
	return nil
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Name, "mcu-name", defaultConfig.Name, "MCU name, reported as the MCU constant")
	flag.IntVar(&defaultConfig.DataSize, "data-size", defaultConfig.DataSize, "Working data size in bytes")
	flag.Var(frequencyFlag{&defaultConfig.Frequency}, "clock-freq", "Timer frequency in Hz")
	flag.DurationVar(&defaultConfig.StatsInterval, "stats", defaultConfig.StatsInterval, "Stats report interval")
	flag.DurationVar(&defaultConfig.IdleInterval, "idle", defaultConfig.IdleInterval, "Sleep between idle polls")
	flag.StringVar(&defaultConfig.Banner, "banner", defaultConfig.Banner, "Text written on cold start")
	flag.Func("config", "TOML config file", defaultConfig.LoadFile)
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

type fileConfig struct {
	Name          string `toml:"name"`
	DataSize      int    `toml:"data_size"`
	InitialData   string `toml:"initial_data"`
	Frequency     int64  `toml:"clock_freq"`
	StatsInterval string `toml:"stats_interval"`
	IdleInterval  string `toml:"idle_interval"`
	Banner        string `toml:"banner"`
	Version       string `toml:"version"`
}

// LoadFile overlays the keys defined in a TOML file.
func (c *Config) LoadFile(path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load mcu config: %w", err)
	}
	return c.apply(&raw, meta)
}

// LoadString overlays the keys defined in TOML text.
func (c *Config) LoadString(text string) error {
	var raw fileConfig
	meta, err := toml.Decode(text, &raw)
	if err != nil {
		return fmt.Errorf("load mcu config: %w", err)
	}
	return c.apply(&raw, meta)
}

func (c *Config) apply(raw *fileConfig, meta toml.MetaData) error {
	if meta.IsDefined("name") {
		if name := strings.TrimSpace(raw.Name); name != "" {
			c.Name = name
		}
	}
	if meta.IsDefined("data_size") {
		if raw.DataSize < DataUser {
			return fmt.Errorf("invalid data_size %d, at least %d required", raw.DataSize, DataUser)
		}
		c.DataSize = raw.DataSize
	}
	if meta.IsDefined("initial_data") {
		data, err := hex.DecodeString(strings.Join(strings.Fields(raw.InitialData), ""))
		if err != nil {
			return fmt.Errorf("parse initial_data: %w", err)
		}
		c.InitialData = data
	}
	if meta.IsDefined("clock_freq") {
		if raw.Frequency <= 0 || raw.Frequency > 0xffffffff {
			return fmt.Errorf("invalid clock_freq %d", raw.Frequency)
		}
		c.Frequency = uint32(raw.Frequency)
	}
	if meta.IsDefined("stats_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.StatsInterval))
		if err != nil {
			return fmt.Errorf("parse stats_interval: %w", err)
		}
		c.StatsInterval = d
	}
	if meta.IsDefined("idle_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.IdleInterval))
		if err != nil {
			return fmt.Errorf("parse idle_interval: %w", err)
		}
		c.IdleInterval = d
	}
	if meta.IsDefined("banner") {
		c.Banner = raw.Banner
	}
	if meta.IsDefined("version") {
		c.Version = raw.Version
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown mcu config keys: %v", undecoded)
	}
	return nil
}

// NewMachine creates a Machine on port using the config.
func (c *Config) NewMachine(port uart.Port) *Machine {
	m := New(port, c.DataSize, c.InitialData)
	m.Name = c.Name
	m.Frequency = c.Frequency
	m.StatsInterval = c.StatsInterval
	m.IdleInterval = c.IdleInterval
	m.Banner = c.Banner
	m.Version = c.Version
	return m
}
