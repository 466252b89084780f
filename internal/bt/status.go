package bt

// Status is the outcome of a tick, and the resting state of a node between ticks.
type Status int32

const (
	// Idle is the pre-tick and post-halt resting state. A tick must never
	// yield Idle.
	Idle Status = iota
	// Running indicates the node needs further ticks to complete.
	Running
	// Success indicates the node completed successfully.
	Success
	// Failure indicates the node completed unsuccessfully.
	Failure
	// Skipped indicates the node deliberately declined to execute.
	Skipped
)

// String returns the upper-case name of the status, e.g. "RUNNING".
func (s Status) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Running:
		return "RUNNING"
	case Success:
		return "SUCCESS"
	case Failure:
		return "FAILURE"
	case Skipped:
		return "SKIPPED"
	default:
		return "UNKNOWN"
	}
}

// IsCompleted returns true for Success and Failure.
func (s Status) IsCompleted() bool {
	return s == Success || s == Failure
}

// IsActive returns true if the node has been evaluated and did not skip.
func (s Status) IsActive() bool {
	return s != Idle && s != Skipped
}

// valid reports whether s may be returned by a tick.
func (s Status) valid() bool {
	switch s {
	case Running, Success, Failure, Skipped:
		return true
	default:
		return false
	}
}

// Kind discriminates the role of a node. It is fixed at construction and is
// what control nodes consult to special-case finished actions.
type Kind int

const (
	_ Kind = iota
	// KindAction is a leaf that may span multiple ticks.
	KindAction
	// KindCondition is a leaf that resolves within a single tick.
	KindCondition
	// KindControl is a multi-child composer.
	KindControl
	// KindDecorator is a single-child wrapper.
	KindDecorator
)

func (k Kind) String() string {
	switch k {
	case KindAction:
		return "Action"
	case KindCondition:
		return "Condition"
	case KindControl:
		return "Control"
	case KindDecorator:
		return "Decorator"
	default:
		return "Undefined"
	}
}
