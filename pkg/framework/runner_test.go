package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Add(nil, nil).Aggregate())

	e1, e2 := errors.New("one"), errors.New("two")
	require.Equal(t, "one", errs.Add(e1).Aggregate().Error())
	err := errs.Add(nil, e2).Aggregate()
	require.Equal(t, "Multiple errors:\none\ntwo", err.Error())
	require.True(t, errors.Is(err, e2))
}

func TestRunnerStopsOthersOnExit(t *testing.T) {
	failure := errors.New("halted")
	r := NewRunner()
	r.Go(
		NamedRun("fails", RunFunc(func(ctx context.Context) error {
			return failure
		})),
		RunFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}),
	)
	done := make(chan error, 1)
	go func() { done <- r.Wait() }()
	select {
	case err := <-done:
		require.True(t, errors.Is(err, failure))
		require.Equal(t, "fails: halted", err.Error())
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}
}

func TestRunnerStop(t *testing.T) {
	r := NewRunner()
	for i := 0; i < 3; i++ {
		r.Go(RunFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}))
	}
	r.Stop()
	require.NoError(t, r.Wait())
	require.Len(t, r.Runners, 3)
}

func TestRunWithContextCloser(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	closed := make(chan struct{})
	c := closerFunc(func() error { close(closed); return nil })
	go cancel()
	err := RunWithContextCloser(ctx, c, func() error {
		<-closed
		return errors.New("closed")
	})
	require.Equal(t, context.Canceled, err)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
