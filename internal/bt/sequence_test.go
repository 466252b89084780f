package bt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSequence_AllSuccess(t *testing.T) {
	t.Parallel()

	a, b, c := newProbe("a", Success), newProbe("b", Success), newProbe("c", Success)
	seq := NewSequence("seq", a, b, c)

	status, err := seq.Tick()
	require.NoError(t, err)
	require.Equal(t, Success, status)
	require.Equal(t, Success, seq.Status())

	// exhaustion halts every child
	require.Equal(t, []Status{Idle, Idle, Idle}, statuses(a, b, c))
	require.Equal(t, 1, a.tickCount())
	require.Equal(t, 1, c.tickCount())
}

func TestSequence_ResumesRunningChild(t *testing.T) {
	t.Parallel()

	a, b, c := newProbe("a", Running), newProbe("b", Success), newProbe("c", Success)
	seq := NewSequence("seq", a, b, c)

	for range 3 {
		status, err := seq.Tick()
		require.NoError(t, err)
		require.Equal(t, Running, status)
	}
	require.Equal(t, 3, a.tickCount())
	require.Equal(t, 0, b.tickCount())
	require.Equal(t, 0, c.tickCount())

	a.set(Success)
	status, err := seq.Tick()
	require.NoError(t, err)
	require.Equal(t, Success, status)
	require.Equal(t, 4, a.tickCount())
	require.Equal(t, 1, b.tickCount())
	require.Equal(t, 1, c.tickCount())
}

func TestSequence_FinishedActionIsReused(t *testing.T) {
	t.Parallel()

	a, b := newProbe("a", Success), newProbe("b", Running)
	seq := NewSequence("seq", a, b)

	for range 2 {
		status, err := seq.Tick()
		require.NoError(t, err)
		require.Equal(t, Running, status)
	}
	require.Equal(t, 1, a.tickCount(), "finished action must not be re-ticked")
	require.Equal(t, 2, b.tickCount())
	require.Equal(t, Success, a.Status())
}

func TestSequence_ConditionIsReevaluated(t *testing.T) {
	t.Parallel()

	cond, a := newCounter("cond", true), newProbe("a", Running)
	seq := NewSequence("seq", cond, a)

	for range 3 {
		status, err := seq.Tick()
		require.NoError(t, err)
		require.Equal(t, Running, status)
	}
	require.Equal(t, 3, cond.evalCount())
}

func TestSequence_FailureHaltsAllChildren(t *testing.T) {
	t.Parallel()

	a, b, c := newProbe("a", Success), newProbe("b", Running), newProbe("c", Success)
	seq := NewSequence("seq", a, b, c)

	status, err := seq.Tick()
	require.NoError(t, err)
	require.Equal(t, Running, status)

	b.set(Failure)
	status, err = seq.Tick()
	require.NoError(t, err)
	require.Equal(t, Failure, status)
	require.Equal(t, []Status{Idle, Idle, Idle}, statuses(a, b, c))
	require.Equal(t, 0, c.tickCount())

	// the next execution starts from the first child
	b.set(Success)
	status, err = seq.Tick()
	require.NoError(t, err)
	require.Equal(t, Success, status)
	require.Equal(t, 2, a.tickCount())
}

func TestSequence_Empty(t *testing.T) {
	t.Parallel()

	status, err := NewSequence("seq").Tick()
	require.NoError(t, err)
	require.Equal(t, Success, status)
}

func TestSequence_AllSkipped(t *testing.T) {
	t.Parallel()

	never := func() (bool, error) { return false, nil }
	a := NewPrecondition("pa", never, newProbe("a", Success))
	b := NewPrecondition("pb", never, newProbe("b", Success))
	seq := NewSequence("seq", a, b)

	status, err := seq.Tick()
	require.NoError(t, err)
	require.Equal(t, Skipped, status)

	// partly skipped is a plain success
	seq2 := NewSequence("seq2", NewPrecondition("p", never, newProbe("x", Success)), newProbe("y", Success))
	status, err = seq2.Tick()
	require.NoError(t, err)
	require.Equal(t, Success, status)
}

func TestSequence_IdleChildIsLogicError(t *testing.T) {
	t.Parallel()

	seq := NewSequence("seq", newProbe("a", Success), newRogue("rogue", Idle))

	status, err := seq.Tick()
	require.Error(t, err)
	require.Equal(t, Failure, status)
	require.ErrorIs(t, err, ErrLogic)
	require.ErrorIs(t, err, ErrIdleStatus)

	var le *LogicError
	require.True(t, errors.As(err, &le))
	require.Equal(t, "seq", le.Node)
}

func TestSequence_ActionReturningIdleIsLogicError(t *testing.T) {
	t.Parallel()

	bad := NewAction("bad", func() (Status, error) { return Idle, nil })
	seq := NewSequence("seq", bad)

	_, err := seq.Tick()
	require.ErrorIs(t, err, ErrIdleStatus)

	var le *LogicError
	require.True(t, errors.As(err, &le))
	require.Equal(t, "bad", le.Node)

	// the started composite can still be halted
	require.Equal(t, Running, seq.Status())
	require.NoError(t, seq.Halt())
	require.Equal(t, Idle, seq.Status())
}

func TestSequence_ChildErrorPropagates(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	seq := NewSequence("seq", NewAction("a", func() (Status, error) { return Failure, boom }))

	_, err := seq.Tick()
	require.ErrorIs(t, err, boom)
}

func TestSequence_PanicsOnNilChild(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() { NewSequence("seq", newProbe("a", Success), nil) })
}

func TestReactiveSequence_ReticksFromStart(t *testing.T) {
	t.Parallel()

	a, b, c := newProbe("a", Success), newProbe("b", Running), newProbe("c", Success)
	seq := NewReactiveSequence("seq", a, b, c)

	for range 3 {
		status, err := seq.Tick()
		require.NoError(t, err)
		require.Equal(t, Running, status)
	}
	require.Equal(t, 3, a.tickCount(), "first child re-ticked every cycle")
	require.Equal(t, 3, b.tickCount())
	require.Equal(t, 0, c.tickCount())
}

func TestReactiveSequence_HaltsChildNoLongerReached(t *testing.T) {
	t.Parallel()

	guard := newCounter("guard", true)
	a := newProbe("a", Running)
	seq := NewReactiveSequence("seq", guard, a)

	status, err := seq.Tick()
	require.NoError(t, err)
	require.Equal(t, Running, status)
	require.Equal(t, Running, a.Status())

	guard.set(false)
	status, err = seq.Tick()
	require.NoError(t, err)
	require.Equal(t, Failure, status)
	require.Equal(t, 1, a.haltCount())
	require.Equal(t, Idle, a.Status())
}

func TestReactiveSequence_RunningHaltsLaterChildren(t *testing.T) {
	t.Parallel()

	a, b := newProbe("a", Success), newProbe("b", Running)
	seq := NewReactiveSequence("seq", a, b)

	status, err := seq.Tick()
	require.NoError(t, err)
	require.Equal(t, Running, status)

	// an earlier child starts running again, so the later one is cancelled
	a.set(Running)
	status, err = seq.Tick()
	require.NoError(t, err)
	require.Equal(t, Running, status)
	require.Equal(t, 1, b.haltCount())
	require.Equal(t, Idle, b.Status())
	require.Equal(t, Running, a.Status())
}

func TestSequenceWithMemory_RetriesFailedChild(t *testing.T) {
	t.Parallel()

	a, b, c := newProbe("a", Success), newProbe("b", Failure), newProbe("c", Success)
	seq := NewSequenceWithMemory("seq", a, b, c)

	status, err := seq.Tick()
	require.NoError(t, err)
	require.Equal(t, Failure, status)
	require.Equal(t, Idle, b.Status())

	b.set(Success)
	status, err = seq.Tick()
	require.NoError(t, err)
	require.Equal(t, Success, status)
	require.Equal(t, 1, a.tickCount(), "memory skips the children that already succeeded")
	require.Equal(t, 2, b.tickCount())
	require.Equal(t, 1, c.tickCount())

	// after completing it starts over
	status, err = seq.Tick()
	require.NoError(t, err)
	require.Equal(t, Success, status)
	require.Equal(t, 2, a.tickCount())
}

func TestSequenceWithMemory_HaltResetsPosition(t *testing.T) {
	t.Parallel()

	a, b := newProbe("a", Success), newProbe("b", Running)
	seq := NewSequenceWithMemory("seq", a, b)

	status, err := seq.Tick()
	require.NoError(t, err)
	require.Equal(t, Running, status)

	require.NoError(t, seq.Halt())
	require.Equal(t, 1, b.haltCount())

	_, err = seq.Tick()
	require.NoError(t, err)
	require.Equal(t, 2, a.tickCount())
}
