package bt

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joeycumines/bteng/internal/testutil"
	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/require"
)

const asyncTimeout = 2 * time.Second

// tickUntilDone ticks n until it stops reporting Running.
func tickUntilDone(t *testing.T, n Node) (Status, error) {
	t.Helper()
	return testutil.TickUntil(context.Background(), n.Tick,
		func(s Status) bool { return s != Running },
		asyncTimeout, time.Millisecond)
}

func TestAsyncAction_Completes(t *testing.T) {
	t.Parallel()

	n := NewAsyncAction("work", func(ctx context.Context) (Status, error) {
		return Success, nil
	})

	status, err := n.Tick()
	require.NoError(t, err)
	require.Equal(t, Running, status, "first tick only starts the worker")

	status, err = tickUntilDone(t, n)
	require.NoError(t, err)
	require.Equal(t, Success, status)
	require.Equal(t, StateIdle, n.State())
	require.Equal(t, Success, n.Status())
}

func TestAsyncAction_TickDoesNotBlock(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	n := NewAsyncAction("slow", func(ctx context.Context) (Status, error) {
		select {
		case <-release:
			return Success, nil
		case <-ctx.Done():
			return Failure, ctx.Err()
		}
	})

	start := time.Now()
	for range 10 {
		status, err := n.Tick()
		require.NoError(t, err)
		require.Equal(t, Running, status)
	}
	require.Less(t, time.Since(start), time.Second)
	require.Equal(t, StateRunning, n.State())

	close(release)
	status, err := tickUntilDone(t, n)
	require.NoError(t, err)
	require.Equal(t, Success, status)
}

func TestAsyncAction_WorkerError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	n := NewAsyncAction("work", func(ctx context.Context) (Status, error) {
		return Success, boom
	})

	_, err := n.Tick()
	require.NoError(t, err)
	status, err := tickUntilDone(t, n)
	require.NoError(t, err)
	require.Equal(t, Failure, status)
	require.ErrorIs(t, n.Err(), boom)
}

func TestAsyncAction_WorkerPanic(t *testing.T) {
	t.Parallel()

	n := NewAsyncAction("work", func(ctx context.Context) (Status, error) {
		panic("kaboom")
	})

	_, err := n.Tick()
	require.NoError(t, err)
	status, err := tickUntilDone(t, n)
	require.NoError(t, err)
	require.Equal(t, Failure, status)
	require.ErrorContains(t, n.Err(), "kaboom")
}

func TestAsyncAction_WorkerReturningRunningIsLogicError(t *testing.T) {
	t.Parallel()

	n := NewAsyncAction("work", func(ctx context.Context) (Status, error) {
		return Running, nil
	})

	_, err := n.Tick()
	require.NoError(t, err)
	_, err = tickUntilDone(t, n)
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestAsyncAction_HaltCancelsAndWaits(t *testing.T) {
	t.Parallel()

	var exited atomic.Bool
	started := make(chan struct{})
	n := NewAsyncAction("work", func(ctx context.Context) (Status, error) {
		close(started)
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		exited.Store(true)
		return Failure, ctx.Err()
	})

	status, err := n.Tick()
	require.NoError(t, err)
	require.Equal(t, Running, status)
	<-started

	require.NoError(t, n.Halt())
	require.True(t, exited.Load(), "halt returns only after the worker acknowledged")
	require.Equal(t, Idle, n.Status())
	require.Equal(t, StateIdle, n.State())

	// halting again is a no-op
	require.NoError(t, n.Halt())
}

func TestAsyncAction_StaleResultDiscarded(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	n := NewAsyncAction("work", func(ctx context.Context) (Status, error) {
		if runs.Add(1) == 1 {
			<-ctx.Done()
			// the cancelled run reports success, which must not leak
			return Success, nil
		}
		return Failure, nil
	})

	_, err := n.Tick()
	require.NoError(t, err)
	require.NoError(t, testutil.Poll(context.Background(), func() bool { return runs.Load() == 1 }, asyncTimeout, time.Millisecond))
	require.NoError(t, n.Halt())

	status, err := n.Tick()
	require.NoError(t, err)
	require.Equal(t, Running, status)

	status, err = tickUntilDone(t, n)
	require.NoError(t, err)
	require.Equal(t, Failure, status)
	require.Equal(t, int32(2), runs.Load())
}

func TestAsyncAction_HaltTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	n := NewAsyncAction("stubborn", func(ctx context.Context) (Status, error) {
		<-release
		return Success, nil
	}, WithHaltTimeout(20*time.Millisecond))

	_, err := n.Tick()
	require.NoError(t, err)

	err = n.Halt()
	require.ErrorIs(t, err, ErrHaltTimeout)
	var hte *HaltTimeoutError
	require.True(t, errors.As(err, &hte))
	require.Equal(t, "stubborn", hte.Node)
	require.Equal(t, 20*time.Millisecond, hte.Timeout)
	require.Equal(t, Idle, n.Status())

	// the abandoned worker blocks a restart
	_, err = n.Tick()
	require.ErrorIs(t, err, ErrWorkerInFlight)
	require.ErrorIs(t, err, ErrLogic)

	close(release)
	require.NoError(t, testutil.Poll(context.Background(), func() bool {
		status, err := n.Tick()
		return err == nil && status == Running
	}, asyncTimeout, time.Millisecond))

	status, err := tickUntilDone(t, n)
	require.NoError(t, err)
	require.Equal(t, Success, status)
}

func TestAsyncAction_SelfHaltIsLogicError(t *testing.T) {
	t.Parallel()

	var n *AsyncAction
	proceed := make(chan struct{})
	result := make(chan error, 1)
	n = NewAsyncAction("self", func(ctx context.Context) (Status, error) {
		<-proceed
		result <- n.Halt()
		return Success, nil
	})

	_, err := n.Tick()
	require.NoError(t, err)
	close(proceed)

	select {
	case err := <-result:
		require.ErrorIs(t, err, ErrSelfHalt)
	case <-time.After(asyncTimeout):
		t.Fatal("worker did not run")
	}
	require.Equal(t, Running, n.Status())

	status, err := tickUntilDone(t, n)
	require.NoError(t, err)
	require.Equal(t, Success, status)
}

func TestAsyncAction_WakesTree(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	n := NewAsyncAction("work", func(ctx context.Context) (Status, error) {
		<-release
		return Success, nil
	})
	tree, err := NewTree(n)
	require.NoError(t, err)

	status, err := tree.TickOnce()
	require.NoError(t, err)
	require.Equal(t, Running, status)

	close(release)
	select {
	case <-tree.wakeCh:
	case <-time.After(asyncTimeout):
		t.Fatal("completion did not wake the tree")
	}

	status, err = tree.TickOnce()
	require.NoError(t, err)
	require.Equal(t, Success, status)
}

func TestAsyncAction_InSequenceIsHaltedByReactiveParent(t *testing.T) {
	t.Parallel()

	var cancelled atomic.Bool
	work := NewAsyncAction("work", func(ctx context.Context) (Status, error) {
		<-ctx.Done()
		cancelled.Store(true)
		return Failure, ctx.Err()
	})
	guard := newCounter("guard", true)
	seq := NewReactiveSequence("seq", guard, work)

	status, err := seq.Tick()
	require.NoError(t, err)
	require.Equal(t, Running, status)

	guard.set(false)
	status, err = seq.Tick()
	require.NoError(t, err)
	require.Equal(t, Failure, status)
	require.True(t, cancelled.Load())
	require.Equal(t, StateIdle, work.State())
}

func TestAsyncAction_RunsOnExecutor(t *testing.T) {
	t.Parallel()

	pool, err := ants.NewPool(1)
	require.NoError(t, err)
	t.Cleanup(pool.Release)

	n := NewAsyncAction("pooled", func(ctx context.Context) (Status, error) {
		return Success, nil
	}, WithExecutor(pool))

	for range 3 {
		status, err := tickUntilDone(t, n)
		require.NoError(t, err)
		require.Equal(t, Success, status)
	}
}

type rejectingExecutor struct{}

func (rejectingExecutor) Submit(func()) error { return errors.New("pool overloaded") }

func TestAsyncAction_RejectedSubmissionFails(t *testing.T) {
	t.Parallel()

	var ran atomic.Bool
	n := NewAsyncAction("rejected", func(ctx context.Context) (Status, error) {
		ran.Store(true)
		return Success, nil
	}, WithExecutor(rejectingExecutor{}))

	status, err := n.Tick()
	require.NoError(t, err)
	require.Equal(t, Failure, status)
	require.ErrorContains(t, n.Err(), "pool overloaded")
	require.Equal(t, StateIdle, n.State())
	require.False(t, ran.Load())

	// the action is reusable once the executor accepts work again
	require.NoError(t, n.Halt())
	require.Equal(t, Idle, n.Status())
}
