package bt

import (
	"fmt"
	"sync"
	"time"
)

// Timeout fails its child if it does not complete within a duration.
//
// The deadline is set on the first tick of an execution. Every later tick
// checks it before ticking the child: once expired, the child is halted and
// the node returns Failure, then starts over on its next tick. A timer
// requests a wake-up at the deadline, so a runner sleeping between ticks
// notices the expiry promptly.
type Timeout struct {
	decorator
	d   time.Duration
	now func() time.Time

	mu       sync.Mutex
	deadline time.Time
	timer    *time.Timer
}

// NewTimeout creates a Timeout. d must be positive. See WithClock.
func NewTimeout(name string, d time.Duration, child Node, opts ...Option) (*Timeout, error) {
	if d <= 0 {
		return nil, fmt.Errorf("bt: timeout %q: %w: %v", name, ErrInvalidCount, d)
	}
	o := collectOptions(opts)
	n := &Timeout{d: d, now: o.now}
	if err := n.init(name, child); err != nil {
		return nil, err
	}
	return n, nil
}

// Duration returns the configured limit.
func (n *Timeout) Duration() time.Duration { return n.d }

// Deadline returns the deadline of the current execution, if one is set.
func (n *Timeout) Deadline() (time.Time, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.deadline, !n.deadline.IsZero()
}

func (n *Timeout) Tick() (Status, error) {
	return n.Execute(func() (Status, error) {
		n.mu.Lock()
		switch {
		case n.deadline.IsZero():
			n.deadline = n.now().Add(n.d)
			n.timer = time.AfterFunc(n.d, n.wake)
		case !n.now().Before(n.deadline):
			n.resetLocked()
			n.mu.Unlock()
			n.logger().Debug("[BT] timeout expired",
				"node", n.name,
				"timeout", n.d)
			if err := n.child.Halt(); err != nil {
				return Failure, err
			}
			return Failure, nil
		}
		n.mu.Unlock()

		status, err := n.child.Tick()
		if err != nil {
			n.reset()
			return Failure, err
		}
		if !status.valid() {
			n.reset()
			return Failure, unexpected(n.name, n.child, status)
		}
		if status != Running {
			n.reset()
		}
		return n.settle(status)
	})
}

func (n *Timeout) Halt() error { return n.halt(n.reset) }

func (n *Timeout) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resetLocked()
}

func (n *Timeout) resetLocked() {
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.deadline = time.Time{}
}
