package comm

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeMCU is the MCU end of a pipe: it dispatches commands the way the
// console task does and writes framed responses back.
type fakeMCU struct {
	conn net.Conn
	disp *Dispatcher
	lock sync.Mutex
	drop int
}

func (m *fakeMCU) SendResponse(msg *Message, args ...interface{}) {
	var buf [MessageMax]byte
	n, err := m.disp.EncodeAndFrame(buf[:], msg, args...)
	if err != nil {
		return
	}
	m.conn.Write(buf[:n])
}

func (m *fakeMCU) dropNext(n int) {
	m.lock.Lock()
	m.drop = n
	m.lock.Unlock()
}

func (m *fakeMCU) run() {
	var buf []byte
	data := make([]byte, MessageMax)
	for {
		n, err := m.conn.Read(data)
		if err != nil {
			return
		}
		m.lock.Lock()
		if m.drop > 0 {
			m.drop--
			m.lock.Unlock()
			continue
		}
		m.lock.Unlock()
		buf = append(buf, data[:n]...)
		for {
			consumed, pop := m.disp.FindAndDispatch(buf)
			if !consumed {
				break
			}
			buf = buf[pop:]
		}
	}
}

type clientTestEnv struct {
	mcu    *fakeMCU
	client *Client
	cancel func()
}

func newClientTestEnv(t *testing.T) *clientTestEnv {
	mcuConn, hostConn := net.Pipe()
	reg := NewRegistry()
	reg.Version = "test"
	mcu := &fakeMCU{conn: mcuConn}
	mcu.disp = NewDispatcher(reg, mcu)
	reg.SetHandler("identify", reg.IdentifyHandler(mcu))
	value := reg.MustAddResponse("value value=%u name=%s")
	reg.MustAddCommand("get_value id=%u", func(args Args) {
		mcu.SendResponse(value, args.Uint(0)*2, "double")
	})
	event := reg.MustAddResponse("event count=%u")
	reg.MustAddCommand("emit count=%c", func(args Args) {
		for i := uint32(0); i < args.Uint(0); i++ {
			mcu.SendResponse(event, i)
		}
	})
	reg.AddConstant("MCU", "test")

	env := &clientTestEnv{mcu: mcu, client: NewClient(hostConn)}
	env.client.RetryTimeout = 50 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	env.cancel = func() {
		cancel()
		mcuConn.Close()
		hostConn.Close()
	}
	go mcu.run()
	go env.client.Run(ctx)
	return env
}

func testContext() (context.Context, func()) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func TestClientIdentifyAndQuery(t *testing.T) {
	env := newClientTestEnv(t)
	defer env.cancel()
	ctx, cancel := testContext()
	defer cancel()

	require.False(t, env.client.Ready())
	_, err := env.client.Query(ctx, "value", "get_value", 1)
	require.True(t, errors.Is(err, ErrNotReady))

	reg, err := env.client.Identify(ctx)
	require.NoError(t, err)
	require.True(t, env.client.Ready())
	require.Equal(t, "test", reg.Version)
	mcu, _ := reg.Constant("MCU")
	require.Equal(t, "test", mcu)

	r, err := env.client.Query(ctx, "value", "get_value", 21)
	require.NoError(t, err)
	require.Equal(t, uint32(42), r.Args.Uint(0))
	require.Equal(t, map[string]interface{}{
		"value": uint32(42),
		"name":  []byte("double"),
	}, r.Values())

	_, err = env.client.Query(ctx, "value", "unknown")
	var ue *UnknownMessageError
	require.True(t, errors.As(err, &ue))
}

func TestClientSubscribe(t *testing.T) {
	env := newClientTestEnv(t)
	defer env.cancel()
	ctx, cancel := testContext()
	defer cancel()

	_, err := env.client.Identify(ctx)
	require.NoError(t, err)
	eventCh := make(chan uint32, 8)
	env.client.Subscribe("event", func(r *Response) {
		eventCh <- r.Args.Uint(0)
	})
	require.NoError(t, env.client.Send(ctx, "emit", 3))
	for i := uint32(0); i < 3; i++ {
		select {
		case v := <-eventCh:
			require.Equal(t, i, v)
		case <-ctx.Done():
			t.Fatal("event not received")
		}
	}
}

func TestClientRetransmit(t *testing.T) {
	env := newClientTestEnv(t)
	defer env.cancel()
	ctx, cancel := testContext()
	defer cancel()

	// out of sequence: the MCU NAKs and the client adopts its sequence
	env.client.seq = Seq(0x15)
	_, err := env.client.Identify(ctx)
	require.NoError(t, err)

	// lost block: resent after the retry timeout
	env.mcu.dropNext(1)
	r, err := env.client.Query(ctx, "value", "get_value", 2)
	require.NoError(t, err)
	require.Equal(t, uint32(4), r.Args.Uint(0))

	// after a block posted without ack, the next send recovers
	require.NoError(t, env.client.Post("get_value", 3))
	r, err = env.client.Query(ctx, "value", "get_value", 4)
	require.NoError(t, err)
	require.Contains(t, []uint32{6, 8}, r.Args.Uint(0))
}

func TestClientNoAck(t *testing.T) {
	env := newClientTestEnv(t)
	defer env.cancel()
	ctx, cancel := testContext()
	defer cancel()

	env.client.Retries = 2
	env.mcu.dropNext(3)
	err := env.client.Send(ctx, "identify", 0, 1)
	require.True(t, errors.Is(err, ErrNoAck))
}
