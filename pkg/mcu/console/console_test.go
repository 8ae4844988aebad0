package console

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/mcu.go/pkg/l0/comm"
	"github.com/robotalks/mcu.go/pkg/mcu/sched"
	"github.com/robotalks/mcu.go/pkg/mcu/timer"
	"github.com/robotalks/mcu.go/pkg/mcu/uart"
)

type stubDispatcher struct {
	pop    func(buf []byte) (bool, int)
	offers [][]byte
}

func (d *stubDispatcher) FindAndDispatch(buf []byte) (bool, int) {
	d.offers = append(d.offers, append([]byte(nil), buf...))
	if d.pop == nil {
		return false, 0
	}
	return d.pop(buf)
}

type testEnv struct {
	fifo    *uart.FIFO
	out     bytes.Buffer
	sched   *sched.Scheduler
	console *Console
}

func newTestEnv() *testEnv {
	env := &testEnv{sched: sched.New(timer.New(&timer.ManualClock{}))}
	env.fifo = uart.NewFIFO(uart.DefaultCapacity, &env.out)
	env.console = New(env.fifo, env.sched)
	return env
}

// arrive feeds bytes and raises the wake the way the poll dispatcher
// does.
func (e *testEnv) arrive(p []byte) {
	e.fifo.Feed(p)
	if e.fifo.Available() > 0 {
		e.sched.WakeTask(e.console.Wake())
	}
}

// drain runs passes while the console keeps itself woken.
func (e *testEnv) drain() int {
	passes := 0
	for e.console.Wake().Pending() {
		e.console.RunTask()
		passes++
	}
	return passes
}

func withRealDispatcher(env *testEnv) (*comm.Registry, *[]uint32) {
	reg := comm.NewRegistry()
	var seen []uint32
	reg.MustAddCommand("mark value=%u", func(args comm.Args) {
		seen = append(seen, args.Uint(0))
	})
	disp := comm.NewDispatcher(reg, env.console)
	env.console.Dispatcher, env.console.Encoder = disp, disp
	return reg, &seen
}

func markBlock(t *testing.T, reg *comm.Registry, seq comm.Seq, value uint32) []byte {
	content, err := reg.Message("mark").Encode(nil, comm.MessagePayloadMax, value)
	require.NoError(t, err)
	block, err := comm.AppendBlock(nil, seq, content)
	require.NoError(t, err)
	return block
}

func TestConsoleIgnoresWithoutWake(t *testing.T) {
	env := newTestEnv()
	d := &stubDispatcher{}
	env.console.Dispatcher = d
	env.fifo.Feed([]byte{1, 2, 3})
	env.console.RunTask()
	require.Empty(t, d.offers)
	require.Equal(t, 3, env.fifo.Available())
}

func TestConsoleStaleWake(t *testing.T) {
	env := newTestEnv()
	d := &stubDispatcher{}
	env.console.Dispatcher = d
	env.sched.WakeTask(env.console.Wake())
	env.console.RunTask()
	require.Empty(t, d.offers)
	require.Equal(t, 0, env.console.Buffered())
	require.False(t, env.console.Wake().Pending())
}

func TestConsoleTruncation(t *testing.T) {
	env := newTestEnv()
	d := &stubDispatcher{}
	env.console.Dispatcher = d
	input := make([]byte, WindowSize+5)
	for i := range input {
		input[i] = byte(i + 1)
	}
	env.arrive(input)
	require.Equal(t, 1, env.drain())
	require.Equal(t, WindowSize, env.console.Buffered())
	require.Equal(t, input[:WindowSize], env.console.window[:])
	require.Equal(t, 5, env.console.Dropped)
	require.Equal(t, 0, env.fifo.Available())
	require.Equal(t, [][]byte{input[:WindowSize]}, d.offers)
}

func TestConsoleCompaction(t *testing.T) {
	testCases := []struct {
		name  string
		total int
		pop   int
	}{
		{"partial", 10, 4},
		{"all", 10, 10},
		{"one", 20, 1},
		{"full window", WindowSize, 7},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv()
			env.console.Dispatcher = &stubDispatcher{pop: func([]byte) (bool, int) {
				return true, tc.pop
			}}
			input := make([]byte, tc.total)
			for i := range input {
				input[i] = byte(0xa0 + i)
			}
			env.arrive(input)
			env.console.RunTask()
			require.Equal(t, tc.total-tc.pop, env.console.Buffered())
			require.Equal(t, input[tc.pop:], env.console.window[:env.console.Buffered()])
			require.Equal(t, tc.total > tc.pop, env.console.Wake().Pending())
		})
	}
}

func TestConsoleRetainsIncomplete(t *testing.T) {
	env := newTestEnv()
	reg, seen := withRealDispatcher(env)
	block := markBlock(t, reg, comm.InitialSeq, 7)
	env.arrive(block[:3])
	env.drain()
	require.Equal(t, 3, env.console.Buffered())
	require.Empty(t, *seen)
	env.arrive(block[3:])
	env.drain()
	require.Equal(t, 0, env.console.Buffered())
	require.Equal(t, []uint32{7}, *seen)
}

func TestConsoleTwoFramesTwoPasses(t *testing.T) {
	env := newTestEnv()
	reg, seen := withRealDispatcher(env)
	first := markBlock(t, reg, comm.InitialSeq, 1)
	second := markBlock(t, reg, comm.InitialSeq.Next(), 2)
	env.arrive(append(append([]byte(nil), first...), second...))

	env.console.RunTask()
	require.Equal(t, []uint32{1}, *seen)
	require.True(t, env.console.Wake().Pending())
	require.Equal(t, len(second), env.console.Buffered())

	env.console.RunTask()
	require.Equal(t, []uint32{1, 2}, *seen)
	require.Equal(t, 0, env.console.Buffered())
	require.False(t, env.console.Wake().Pending())
}

func TestConsoleStreamEquivalence(t *testing.T) {
	env := newTestEnv()
	reg, seen := withRealDispatcher(env)
	var stream []byte
	var expect []uint32
	seq := comm.InitialSeq
	for i := uint32(0); i < 50; i++ {
		stream = append(stream, markBlock(t, reg, seq, i*1000)...)
		expect = append(expect, i*1000)
		seq = seq.Next()
	}
	rnd := rand.New(rand.NewSource(1))
	for len(stream) > 0 {
		n := 1 + rnd.Intn(20)
		if n > len(stream) {
			n = len(stream)
		}
		env.arrive(stream[:n])
		env.drain()
		stream = stream[n:]
	}
	require.Equal(t, expect, *seen)
	require.Equal(t, 0, env.console.Buffered())
}

func TestConsoleSendResponse(t *testing.T) {
	env := newTestEnv()
	reg, _ := withRealDispatcher(env)
	value := reg.MustAddResponse("value value=%u")
	env.console.SendResponse(value, 1000)

	content, err := value.Encode(nil, comm.MessagePayloadMax, 1000)
	require.NoError(t, err)
	expect, err := comm.AppendBlock(nil, comm.InitialSeq, content)
	require.NoError(t, err)
	require.Equal(t, expect, env.out.Bytes())

	// encode failures write nothing
	env.out.Reset()
	env.console.SendResponse(value)
	require.Zero(t, env.out.Len())
}
