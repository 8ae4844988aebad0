package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIsBefore(t *testing.T) {
	require.True(t, IsBefore(1, 2))
	require.False(t, IsBefore(2, 2))
	require.False(t, IsBefore(3, 2))
	require.True(t, IsBefore(0xfffffff0, 0x10))
	require.False(t, IsBefore(0x10, 0xfffffff0))
}

func TestHardwareLatch(t *testing.T) {
	var clk ManualClock
	hw := New(&clk)
	require.False(t, hw.Pending())

	hw.Arm(100)
	require.False(t, hw.Pending())
	clk.Advance(99)
	require.False(t, hw.Pending())
	clk.Advance(1)
	require.True(t, hw.Pending())
	clk.Advance(50)
	require.True(t, hw.Pending())

	hw.ClearLatch()
	require.False(t, hw.Pending())
	_, armed := hw.Deadline()
	require.False(t, armed)
}

func TestHardwareWrap(t *testing.T) {
	var clk ManualClock
	clk.Set(0xfffffff0)
	hw := New(&clk)
	hw.Arm(0x20)
	require.False(t, hw.Pending())
	clk.Advance(0x30)
	require.True(t, hw.Pending())
}

func TestHardwareReset(t *testing.T) {
	var clk ManualClock
	clk.Set(500)
	hw := New(&clk)
	hw.Arm(400)
	require.True(t, hw.Pending())
	hw.Reset()
	require.False(t, hw.Pending())
	require.Equal(t, uint32(0), hw.Now())
}

func TestClock(t *testing.T) {
	base := time.Unix(1000, 0)
	now := base
	c := &Clock{Frequency: 1000000, start: base, now: func() time.Time { return now }}
	require.Equal(t, uint32(0), c.Now())
	now = base.Add(1500 * time.Millisecond)
	require.Equal(t, uint32(1500000), c.Now())
	require.Equal(t, uint32(2000), c.Ticks(2*time.Millisecond))

	c.Restart()
	require.Equal(t, uint32(0), c.Now())
}
