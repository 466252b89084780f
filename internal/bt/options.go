package bt

import "time"

// DefaultHaltTimeout bounds how long halting an AsyncAction waits for its
// worker to acknowledge cancellation.
const DefaultHaltTimeout = 5 * time.Second

// Option configures a node at construction. Options that do not apply to a
// given node type are ignored.
type Option func(*options)

type options struct {
	ports       *Ports
	haltTimeout time.Duration
	now         func() time.Time
	onHalt      func()
	executor    Executor
}

// WithPorts attaches bound ports to the node, see NewPorts.
func WithPorts(p *Ports) Option {
	return func(o *options) { o.ports = p }
}

// WithHaltTimeout sets the cancellation bound of an AsyncAction.
func WithHaltTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.haltTimeout = d
		}
	}
}

// WithClock overrides time.Now for time-based nodes.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithHaltFunc registers a callback run when an Action is halted while
// Running.
func WithHaltFunc(fn func()) Option {
	return func(o *options) { o.onHalt = fn }
}

// WithExecutor runs the workers of an AsyncAction on e instead of a new
// goroutine each. Submit should not block: configure pools to reject work
// when saturated.
func WithExecutor(e Executor) Option {
	return func(o *options) { o.executor = e }
}

func collectOptions(opts []Option) options {
	o := options{
		haltTimeout: DefaultHaltTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
