package bt

import "fmt"

// decorator is the shared base of single-child nodes.
type decorator struct {
	Core
	child Node
}

func (d *decorator) init(name string, child Node) error {
	d.Init(name, KindDecorator)
	if child == nil {
		return fmt.Errorf("%w: child of %q", ErrNilNode, d.name)
	}
	d.child = child
	return nil
}

// Child returns the wrapped node.
func (d *decorator) Child() Node { return d.child }

func (d *decorator) Children() []Node { return []Node{d.child} }

// halt halts the child, then resets the node. reset, if set, clears timers
// and counters first.
func (d *decorator) halt(reset func()) error {
	return d.Stop(func() error {
		if reset != nil {
			reset()
		}
		return d.child.Halt()
	})
}

// settle resets the child once it completed, and passes status through.
func (d *decorator) settle(status Status) (Status, error) {
	if status != Running {
		if err := d.child.Halt(); err != nil {
			return Failure, err
		}
	}
	return status, nil
}

func mustDecorate(d *decorator, name string, child Node) {
	if err := d.init(name, child); err != nil {
		panic(err)
	}
}

// Inverter swaps Success and Failure. Running and Skipped pass through.
type Inverter struct {
	decorator
}

// NewInverter creates an Inverter. It panics if child is nil.
func NewInverter(name string, child Node) *Inverter {
	n := new(Inverter)
	mustDecorate(&n.decorator, name, child)
	return n
}

func (n *Inverter) Tick() (Status, error) {
	return n.Execute(func() (Status, error) {
		status, err := n.child.Tick()
		if err != nil {
			return Failure, err
		}
		switch status {
		case Success:
			status = Failure
		case Failure:
			status = Success
		case Running, Skipped:
		default:
			return Failure, unexpected(n.name, n.child, status)
		}
		return n.settle(status)
	})
}

func (n *Inverter) Halt() error { return n.halt(nil) }

// ForceSuccess reports Success whenever its child completes.
type ForceSuccess struct {
	decorator
}

// NewForceSuccess creates a ForceSuccess. It panics if child is nil.
func NewForceSuccess(name string, child Node) *ForceSuccess {
	n := new(ForceSuccess)
	mustDecorate(&n.decorator, name, child)
	return n
}

func (n *ForceSuccess) Tick() (Status, error) {
	return n.Execute(func() (Status, error) {
		return n.force(Success)
	})
}

func (n *ForceSuccess) Halt() error { return n.halt(nil) }

// ForceFailure reports Failure whenever its child completes.
type ForceFailure struct {
	decorator
}

// NewForceFailure creates a ForceFailure. It panics if child is nil.
func NewForceFailure(name string, child Node) *ForceFailure {
	n := new(ForceFailure)
	mustDecorate(&n.decorator, name, child)
	return n
}

func (n *ForceFailure) Tick() (Status, error) {
	return n.Execute(func() (Status, error) {
		return n.force(Failure)
	})
}

func (n *ForceFailure) Halt() error { return n.halt(nil) }

func (d *decorator) force(outcome Status) (Status, error) {
	status, err := d.child.Tick()
	if err != nil {
		return Failure, err
	}
	switch status {
	case Success, Failure:
		status = outcome
	case Running, Skipped:
	default:
		return Failure, unexpected(d.name, d.child, status)
	}
	return d.settle(status)
}

// Precondition guards its child with a predicate. The predicate is only
// evaluated while the child is Idle: when it is false the child is not
// ticked and the node is Skipped, and once the child started it runs to
// completion regardless of the predicate.
type Precondition struct {
	decorator
	pred func() (bool, error)
}

// NewPrecondition creates a Precondition. It panics if child is nil.
func NewPrecondition(name string, pred func() (bool, error), child Node) *Precondition {
	n := &Precondition{pred: pred}
	mustDecorate(&n.decorator, name, child)
	return n
}

func (n *Precondition) Tick() (Status, error) {
	return n.Execute(func() (Status, error) {
		if n.child.Status() == Idle {
			ok, err := n.pred()
			if err != nil {
				return Failure, err
			}
			if !ok {
				return Skipped, nil
			}
		}
		status, err := n.child.Tick()
		if err != nil {
			return Failure, err
		}
		if !status.valid() {
			return Failure, unexpected(n.name, n.child, status)
		}
		return n.settle(status)
	})
}

func (n *Precondition) Halt() error { return n.halt(nil) }
