package bt

import (
	"fmt"
	"iter"
)

// TickFunc is the body of a function-based action.
type TickFunc func() (Status, error)

// Condition is a leaf that resolves within a single tick. It is
// re-evaluated from scratch every time it is visited.
type Condition struct {
	Core
	fn func() (bool, error)
}

// NewCondition creates a Condition from a predicate. A predicate error
// wrapping ErrMissingValue is reported as Failure.
func NewCondition(name string, fn func() (bool, error), opts ...Option) *Condition {
	o := collectOptions(opts)
	n := &Condition{fn: fn}
	n.Init(name, KindCondition)
	n.ports = o.ports
	return n
}

func (n *Condition) Tick() (Status, error) {
	return n.Execute(func() (Status, error) {
		ok, err := n.fn()
		if err != nil {
			return Failure, err
		}
		if ok {
			return Success, nil
		}
		return Failure, nil
	})
}

func (n *Condition) Halt() error { return n.Stop(nil) }

// Action is a function-based leaf that may return Running to span
// multiple ticks. The function is invoked on every tick; it is expected to
// poll its own progress.
type Action struct {
	Core
	fn     TickFunc
	onHalt func()
	sync   bool
}

// NewAction creates an Action. Use WithHaltFunc to observe halts of a
// running action.
func NewAction(name string, fn TickFunc, opts ...Option) *Action {
	o := collectOptions(opts)
	n := &Action{fn: fn, onHalt: o.onHalt}
	n.Init(name, KindAction)
	n.ports = o.ports
	return n
}

// NewSyncAction creates an Action that must complete within the tick.
// Returning Running is a logic error.
func NewSyncAction(name string, fn TickFunc, opts ...Option) *Action {
	n := NewAction(name, fn, opts...)
	n.sync = true
	return n
}

func (n *Action) Tick() (Status, error) {
	return n.Execute(func() (Status, error) {
		status, err := n.fn()
		if err == nil && n.sync && status == Running {
			return Failure, logicError(n.name, ErrInvalidStatus, "synchronous action returned RUNNING")
		}
		return status, err
	})
}

func (n *Action) Halt() error {
	return n.Stop(func() error {
		if n.Status() == Running && n.onHalt != nil {
			n.onHalt()
		}
		return nil
	})
}

// StatefulHandler holds the callbacks of a StatefulAction. OnStart and
// OnRunning are required; OnHalted is optional.
type StatefulHandler struct {
	// OnStart is called on the first tick after the action was idle or
	// completed.
	OnStart func() (Status, error)
	// OnRunning is called on every tick while the action is Running.
	OnRunning func() (Status, error)
	// OnHalted is called when the action is halted while Running.
	OnHalted func()
}

// StatefulAction is an action with distinct start, progress and halt
// callbacks.
type StatefulAction struct {
	Core
	h StatefulHandler
}

func NewStatefulAction(name string, h StatefulHandler, opts ...Option) *StatefulAction {
	o := collectOptions(opts)
	n := &StatefulAction{h: h}
	n.Init(name, KindAction)
	n.ports = o.ports
	return n
}

func (n *StatefulAction) Tick() (Status, error) {
	return n.Execute(func() (Status, error) {
		if n.Status() == Running {
			if n.h.OnRunning == nil {
				return Failure, logicError(n.name, ErrInvalidStatus, "missing OnRunning")
			}
			return n.h.OnRunning()
		}
		if n.h.OnStart == nil {
			return Failure, logicError(n.name, ErrInvalidStatus, "missing OnStart")
		}
		return n.h.OnStart()
	})
}

func (n *StatefulAction) Halt() error {
	return n.Stop(func() error {
		if n.Status() == Running && n.h.OnHalted != nil {
			n.h.OnHalted()
		}
		return nil
	})
}

// CoroutineAction runs its body as a coroutine that is resumed once per
// tick. Each call to yield suspends the body and reports Running; when the
// body returns, its status completes the action (Idle is read as Success).
// A panicking body fails the action, and the panic is kept for Err.
//
// Halting a running coroutine makes the pending yield return false, and the
// body is expected to return promptly. The body never runs concurrently
// with the tree.
type CoroutineAction struct {
	Core
	body   func(yield func() bool) Status
	next   func() (struct{}, bool)
	stop   func()
	result Status
	err    error
}

func NewCoroutineAction(name string, body func(yield func() bool) Status, opts ...Option) *CoroutineAction {
	o := collectOptions(opts)
	n := &CoroutineAction{body: body}
	n.Init(name, KindAction)
	n.ports = o.ports
	return n
}

func (n *CoroutineAction) Tick() (Status, error) {
	return n.Execute(func() (Status, error) {
		if n.next == nil {
			n.result, n.err = Idle, nil
			n.next, n.stop = iter.Pull(iter.Seq[struct{}](func(yield func(struct{}) bool) {
				defer func() {
					if r := recover(); r != nil {
						n.result, n.err = Failure, fmt.Errorf("panic in coroutine: %v", r)
					}
				}()
				n.result = n.body(func() bool { return yield(struct{}{}) })
			}))
		}
		if _, more := n.next(); more {
			return Running, nil
		}
		n.release()
		switch n.result {
		case Idle:
			return Success, nil
		case Running:
			return Failure, logicError(n.name, ErrInvalidStatus, "coroutine returned RUNNING")
		default:
			return n.result, nil
		}
	})
}

// Err returns the panic recovered from the last run of the body, if any.
func (n *CoroutineAction) Err() error { return n.err }

func (n *CoroutineAction) Halt() error {
	return n.Stop(func() error {
		n.release()
		return nil
	})
}

func (n *CoroutineAction) release() {
	if n.stop != nil {
		n.stop()
	}
	n.next, n.stop = nil, nil
}
