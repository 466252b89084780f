package bt

import "fmt"

// Forever, as a Retry or Repeat count, removes the limit.
const Forever = -1

// Retry re-ticks its child after a Failure, up to retries more times within
// the same tick, so NewRetry(name, 2, child) makes at most three attempts.
// Success ends the loop, and Running or Skipped are returned as-is.
//
// With Forever, each failed attempt yields Running and requests a wake-up
// instead of looping, so a child that fails synchronously cannot stall the
// tick.
type Retry struct {
	decorator
	retries  int
	attempts int
}

// NewRetry creates a Retry. retries must be >= 0, or Forever.
func NewRetry(name string, retries int, child Node) (*Retry, error) {
	if retries < Forever {
		return nil, fmt.Errorf("bt: retry %q: %w: %d", name, ErrInvalidCount, retries)
	}
	n := &Retry{retries: retries}
	if err := n.init(name, child); err != nil {
		return nil, err
	}
	return n, nil
}

// Attempts returns the number of failed attempts of the current execution.
func (n *Retry) Attempts() int { return n.attempts }

func (n *Retry) Tick() (Status, error) {
	return n.Execute(func() (Status, error) {
		for {
			status, err := n.child.Tick()
			if err != nil {
				return Failure, err
			}
			switch status {
			case Running:
				return Running, nil
			case Success, Skipped:
				n.attempts = 0
				return n.settle(status)
			case Failure:
				n.attempts++
				if err := n.child.Halt(); err != nil {
					return Failure, err
				}
				if n.retries == Forever {
					n.wake()
					return Running, nil
				}
				if n.attempts > n.retries {
					n.attempts = 0
					return Failure, nil
				}
			default:
				return Failure, unexpected(n.name, n.child, status)
			}
		}
	})
}

func (n *Retry) Halt() error {
	return n.halt(func() { n.attempts = 0 })
}

// Repeat re-ticks its child after a Success until it completed cycles
// successful runs. A Failure ends the loop and is propagated, Running and
// Skipped are returned as-is.
//
// With Forever, each successful cycle yields Running and requests a wake-up,
// and the node never succeeds.
type Repeat struct {
	decorator
	cycles    int
	completed int
}

// NewRepeat creates a Repeat. cycles must be >= 1, or Forever.
func NewRepeat(name string, cycles int, child Node) (*Repeat, error) {
	if cycles < 1 && cycles != Forever {
		return nil, fmt.Errorf("bt: repeat %q: %w: %d", name, ErrInvalidCount, cycles)
	}
	n := &Repeat{cycles: cycles}
	if err := n.init(name, child); err != nil {
		return nil, err
	}
	return n, nil
}

// Completed returns the number of successful cycles of the current execution.
func (n *Repeat) Completed() int { return n.completed }

func (n *Repeat) Tick() (Status, error) {
	return n.Execute(func() (Status, error) {
		for {
			status, err := n.child.Tick()
			if err != nil {
				return Failure, err
			}
			switch status {
			case Running:
				return Running, nil
			case Failure, Skipped:
				n.completed = 0
				return n.settle(status)
			case Success:
				n.completed++
				if err := n.child.Halt(); err != nil {
					return Failure, err
				}
				if n.cycles == Forever {
					n.wake()
					return Running, nil
				}
				if n.completed >= n.cycles {
					n.completed = 0
					return Success, nil
				}
			default:
				return Failure, unexpected(n.name, n.child, status)
			}
		}
	})
}

func (n *Repeat) Halt() error {
	return n.halt(func() { n.completed = 0 })
}
