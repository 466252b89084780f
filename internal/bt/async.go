package bt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/petermattis/goid"
)

// Executor runs async workers. *ants.Pool from github.com/panjf2000/ants/v2
// satisfies it. A rejected submission completes the action with Failure.
type Executor interface {
	Submit(task func()) error
}

// WorkFunc is the body of an AsyncAction. It runs on its own goroutine and
// must return once ctx is cancelled. The returned status must be Success or
// Failure; a non-nil error completes the action with Failure.
type WorkFunc func(ctx context.Context) (Status, error)

// AsyncState is the state of the background worker of an AsyncAction.
type AsyncState int

const (
	// StateIdle indicates the action is ready to start a worker.
	StateIdle AsyncState = iota
	// StateRunning indicates a worker is executing.
	StateRunning
	// StateCompleted indicates the worker finished and its result has not
	// been collected by a tick yet.
	StateCompleted
)

// AsyncAction offloads its work to a background goroutine.
//
// The action has three states:
//   - Idle: On tick, starts a worker and returns Running.
//   - Running: On tick, returns Running without blocking.
//   - Completed: On tick, returns the worker's result and resets to Idle.
//
// Halt cancels the worker's context and blocks until the worker returns,
// or until the halt timeout elapses, in which case a *HaltTimeoutError is
// returned and no new worker may start until the stale one exits.
//
// A generation counter discards results of cancelled runs. At most one
// worker per instance is in flight.
type AsyncAction struct {
	Core
	work        WorkFunc
	haltTimeout time.Duration
	executor    Executor

	mu         sync.Mutex
	state      AsyncState
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{} // closed when the current worker returns
	lastStatus Status
	lastErr    error
	err        error
	workerGID  atomic.Int64
}

// NewAsyncAction creates an AsyncAction. See WithHaltTimeout and
// WithExecutor.
func NewAsyncAction(name string, work WorkFunc, opts ...Option) *AsyncAction {
	o := collectOptions(opts)
	n := &AsyncAction{work: work, haltTimeout: o.haltTimeout, executor: o.executor}
	n.Init(name, KindAction)
	n.ports = o.ports
	return n
}

// State returns the worker state.
func (n *AsyncAction) State() AsyncState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Err returns the error reported by the most recently collected worker.
func (n *AsyncAction) Err() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.err
}

func (n *AsyncAction) Tick() (Status, error) {
	return n.Execute(n.poll)
}

func (n *AsyncAction) poll() (Status, error) {
	n.mu.Lock()

	switch n.state {
	case StateIdle:
		if n.done != nil {
			select {
			case <-n.done:
			default:
				// only reachable after a halt timeout abandoned the worker
				n.mu.Unlock()
				return Failure, logicError(n.name, ErrWorkerInFlight, "")
			}
		}
		n.generation++
		gen := n.generation
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		n.cancel = cancel
		n.done = done
		n.state = StateRunning
		n.mu.Unlock()

		if err := n.start(func() { n.run(ctx, gen, done) }); err != nil {
			n.mu.Lock()
			if n.generation == gen {
				n.state = StateIdle
				n.err = err
			}
			n.mu.Unlock()
			cancel()
			close(done)
			n.logger().Warn("[BT] async worker rejected",
				"node", n.name,
				"error", err)
			return Failure, nil
		}
		return Running, nil

	case StateRunning:
		n.mu.Unlock()
		return Running, nil

	case StateCompleted:
		status, err := n.lastStatus, n.lastErr
		n.state = StateIdle
		n.lastStatus, n.lastErr = Idle, nil
		n.err = err
		n.cancel()
		n.mu.Unlock()

		if err != nil {
			n.logger().Debug("[BT] async worker failed",
				"node", n.name,
				"error", err)
			return Failure, nil
		}
		if !status.IsCompleted() {
			return Failure, logicError(n.name, ErrInvalidStatus, "worker returned %v", status)
		}
		return status, nil

	default:
		n.mu.Unlock()
		return Failure, logicError(n.name, ErrInvalidStatus, "invalid async state %d", n.state)
	}
}

func (n *AsyncAction) start(task func()) error {
	if n.executor == nil {
		go task()
		return nil
	}
	if err := n.executor.Submit(task); err != nil {
		return fmt.Errorf("submitting async worker: %w", err)
	}
	return nil
}

func (n *AsyncAction) run(ctx context.Context, gen uint64, done chan struct{}) {
	gid := goid.Get()
	n.workerGID.Store(gid)
	status, err := n.invoke(ctx)
	n.workerGID.CompareAndSwap(gid, 0)
	n.finish(gen, done, status, err)
	n.wake()
}

func (n *AsyncAction) invoke(ctx context.Context) (status Status, err error) {
	defer func() {
		if r := recover(); r != nil {
			status, err = Failure, fmt.Errorf("panic in async worker: %v", r)
		}
	}()
	return n.work(ctx)
}

// finish records the result. Stale callbacks from cancelled or superseded
// runs only release their done channel.
func (n *AsyncAction) finish(gen uint64, done chan struct{}, status Status, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	close(done)
	if gen != n.generation || n.state != StateRunning {
		return
	}
	n.lastStatus = status
	n.lastErr = err
	n.state = StateCompleted
}

func (n *AsyncAction) Halt() error {
	if n.onWorker() {
		// waiting for ourselves would never return
		return logicError(n.name, ErrSelfHalt, "")
	}
	return n.Stop(n.halt)
}

// onWorker reports whether the caller is the running worker goroutine.
func (n *AsyncAction) onWorker() bool {
	gid := goid.Get()
	if gid != n.workerGID.Load() {
		return false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state == StateRunning
}

func (n *AsyncAction) halt() error {
	n.mu.Lock()
	if n.state == StateIdle {
		n.mu.Unlock()
		return nil
	}
	n.generation++
	n.state = StateIdle
	n.lastStatus, n.lastErr = Idle, nil
	cancel, done := n.cancel, n.done
	n.mu.Unlock()

	cancel()
	timer := time.NewTimer(n.haltTimeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		return &HaltTimeoutError{Node: n.name, Timeout: n.haltTimeout}
	}
}
