package bt

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrLogic matches every *LogicError via errors.Is.
	ErrLogic = errors.New("bt: logic error")

	// ErrMissingValue is returned when a blackboard entry or port has not
	// been written yet. Leaves report it as Failure rather than a fault.
	ErrMissingValue = errors.New("bt: missing value")

	// ErrHaltTimeout matches every *HaltTimeoutError via errors.Is.
	ErrHaltTimeout = errors.New("bt: halt timed out")

	ErrIdleStatus       = errors.New("tick returned IDLE")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrInvalidThreshold = errors.New("invalid threshold")
	ErrInvalidCount     = errors.New("invalid count")
	ErrChildCount       = errors.New("invalid number of children")
	ErrReentrantHalt    = errors.New("halt called while already halting")
	ErrConcurrentTick   = errors.New("tree ticked or halted concurrently")
	ErrWorkerInFlight   = errors.New("previous async worker still in flight")
	ErrSelfHalt         = errors.New("async action halted from its own worker")
	ErrPortType         = errors.New("incompatible port type")
	ErrUnknownPort      = errors.New("undeclared port")
	ErrPortDirection    = errors.New("port used against its direction")

	ErrNilNode       = errors.New("bt: nil node")
	ErrDuplicateNode = errors.New("bt: node appears more than once in tree")
	ErrRemoveRunning = errors.New("bt: cannot remove a running child, halt it first")
	ErrChildIndex    = errors.New("bt: child index out of range")
)

// LogicError is a fatal invariant violation: it aborts the current tick
// cycle and surfaces to the caller of the tree runner.
type LogicError struct {
	// Node is the name of the node that detected the violation.
	Node string
	// Err is the specific violation, e.g. ErrIdleStatus.
	Err error
	// Detail is optional extra context.
	Detail string
}

func (e *LogicError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("bt: logic error in node %q: %v", e.Node, e.Err)
	}
	return fmt.Sprintf("bt: logic error in node %q: %v: %s", e.Node, e.Err, e.Detail)
}

func (e *LogicError) Unwrap() error { return e.Err }

func (e *LogicError) Is(target error) bool { return target == ErrLogic }

func logicError(node string, err error, format string, args ...any) *LogicError {
	e := &LogicError{Node: node, Err: err}
	if format != "" {
		e.Detail = fmt.Sprintf(format, args...)
	}
	return e
}

// HaltTimeoutError reports an async worker that did not acknowledge
// cancellation within its bound.
type HaltTimeoutError struct {
	Node    string
	Timeout time.Duration
}

func (e *HaltTimeoutError) Error() string {
	return fmt.Sprintf("bt: halt of node %q timed out after %v", e.Node, e.Timeout)
}

func (e *HaltTimeoutError) Is(target error) bool { return target == ErrHaltTimeout }
