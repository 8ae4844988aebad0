package uart

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFIFOReceive(t *testing.T) {
	f := NewFIFO(4, nil)
	require.Equal(t, 0, f.Available())
	require.Equal(t, byte(0), f.Getc())

	require.Equal(t, 3, f.Feed([]byte{1, 2, 3}))
	require.Equal(t, 1, f.Feed([]byte{4, 5, 6}))
	require.Equal(t, 2, f.Dropped())
	require.Equal(t, 4, f.Available())
	for _, b := range []byte{1, 2, 3, 4} {
		require.Equal(t, b, f.Getc())
	}
	require.Equal(t, 0, f.Available())

	n, err := f.Write([]byte{9})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, byte(9), f.Getc())
}

func TestFIFOTransmit(t *testing.T) {
	var out bytes.Buffer
	f := NewFIFO(0, &out)
	f.Putc('a')
	f.Putc('b')
	require.Equal(t, "ab", out.String())

	f.SetOutput(nil)
	f.Putc('c')
	require.Equal(t, "ab", out.String())
}

func TestFIFOFlushByte(t *testing.T) {
	var out bytes.Buffer
	w := bufio.NewWriter(&out)
	f := NewFIFO(0, w)
	f.FlushByte = 0x7e
	f.Putc(1)
	f.Putc(2)
	require.Zero(t, out.Len())
	f.Putc(0x7e)
	require.Equal(t, []byte{1, 2, 0x7e}, out.Bytes())
}

func TestLineAttach(t *testing.T) {
	line := NewLine(0, 0x7e)
	host, dev := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- line.Attach(ctx, dev) }()

	_, err := host.Write([]byte{5, 6, 7})
	require.NoError(t, err)
	deadline := time.Now().Add(time.Second)
	for line.Available() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	require.Equal(t, 3, line.Available())
	require.True(t, line.Attached())

	go func() {
		line.Putc(1)
		line.Putc(0x7e)
	}()
	buf := make([]byte, 2)
	_, err = io.ReadFull(host, buf)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 0x7e}, buf)

	host.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("attach did not return")
	}
	require.False(t, line.Attached())
}
