package board

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/mcu.go/pkg/mcu/uart"
)

func TestConfigLoadString(t *testing.T) {
	conf := NewConfig()
	err := conf.LoadString(`
name = "sun50i"
data_size = 128
initial_data = "00 01 02 03"
clock_freq = 1000000
stats_interval = "1s"
idle_interval = "1ms"
banner = ""
`)
	require.NoError(t, err)
	require.Equal(t, "sun50i", conf.Name)
	require.Equal(t, 128, conf.DataSize)
	require.Equal(t, []byte{0, 1, 2, 3}, conf.InitialData)
	require.Equal(t, uint32(1000000), conf.Frequency)
	require.Equal(t, time.Second, conf.StatsInterval)
	require.Equal(t, time.Millisecond, conf.IdleInterval)
	require.Empty(t, conf.Banner)
	require.Equal(t, Default().Version, conf.Version)
}

func TestConfigLoadStringKeepsUndefined(t *testing.T) {
	conf := NewConfig()
	require.NoError(t, conf.LoadString(`version = "v9"`))
	require.Equal(t, "v9", conf.Version)
	require.Equal(t, Default().Name, conf.Name)
	require.Equal(t, Default().DataSize, conf.DataSize)
	require.Equal(t, Default().Banner, conf.Banner)
}

func TestConfigLoadStringErrors(t *testing.T) {
	testCases := []struct {
		name string
		text string
	}{
		{"syntax", `name = `},
		{"data size", `data_size = 0`},
		{"data size below layout", `data_size = 8`},
		{"initial data", `initial_data = "0g"`},
		{"frequency", `clock_freq = -1`},
		{"stats", `stats_interval = "soon"`},
		{"idle", `idle_interval = "5"`},
		{"unknown key", `speed = 3`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Error(t, NewConfig().LoadString(tc.text))
		})
	}
}

func TestConfigLoadFile(t *testing.T) {
	dir, err := os.MkdirTemp("", "mcu-config")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "mcu.toml")
	require.NoError(t, os.WriteFile(path, []byte("name = \"r40\"\n"), 0644))

	conf := NewConfig()
	require.NoError(t, conf.LoadFile(path))
	require.Equal(t, "r40", conf.Name)
	require.Error(t, conf.LoadFile(filepath.Join(dir, "missing.toml")))
}

func TestConfigNewMachine(t *testing.T) {
	conf := NewConfig()
	conf.Name = "h6"
	conf.DataSize = 32
	conf.InitialData = []byte{0xaa}
	conf.Frequency = 1000
	conf.StatsInterval = time.Minute
	conf.IdleInterval = time.Millisecond
	conf.Banner = "hi"
	conf.Version = "v1"

	m := conf.NewMachine(uart.NewFIFO(0, nil))
	require.Equal(t, "h6", m.Name)
	require.Equal(t, 32, m.Data().Size())
	v, err := m.Data().Get(0)
	require.NoError(t, err)
	require.Equal(t, uint8(0xaa), v)
	require.Equal(t, uint32(1000), m.Frequency)
	require.Equal(t, time.Minute, m.StatsInterval)
	require.Equal(t, time.Millisecond, m.IdleInterval)
	require.Equal(t, "hi", m.Banner)
	require.Equal(t, "v1", m.Version)
}

func TestNewRaisesDataSize(t *testing.T) {
	testCases := []struct {
		size, expected int
	}{
		{0, DefaultDataSize},
		{-1, DefaultDataSize},
		{4, DataUser},
		{DataUser, DataUser},
		{64, 64},
	}
	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%d", tc.size), func(t *testing.T) {
			m := New(uart.NewFIFO(0, nil), tc.size, nil)
			require.Equal(t, tc.expected, m.Data().Size())
			_, err := m.Data().GetU16(DataMoveCount)
			require.NoError(t, err)
		})
	}
}
