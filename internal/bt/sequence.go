package bt

// Sequence ticks its children in order until one fails.
//
// A finished action child keeps its result and is not ticked again until
// the sequence completes; every other child is ticked on each visit. A
// Running child short-circuits the tick without halting anyone, so the
// next tick resumes where this one left off. The first Failure halts all
// children and fails the sequence; exhausting the children halts them all
// and succeeds (or skips, when every child skipped).
type Sequence struct {
	control
}

// NewSequence creates a Sequence. It panics if a child is nil.
func NewSequence(name string, children ...Node) *Sequence {
	n := new(Sequence)
	mustInit(&n.control, name, children)
	return n
}

func (n *Sequence) Tick() (Status, error) {
	return n.tick(func(children []Node) (Status, error) {
		return tickOrdered(n.name, children, Failure)
	})
}

func (n *Sequence) Halt() error { return n.halt(nil) }

// ReactiveSequence re-evaluates every child from the first one on every
// tick. When a child is Running, the children after it are halted, which
// cancels a previously running child that is no longer reached.
type ReactiveSequence struct {
	control
}

// NewReactiveSequence creates a ReactiveSequence. It panics if a child is nil.
func NewReactiveSequence(name string, children ...Node) *ReactiveSequence {
	n := new(ReactiveSequence)
	mustInit(&n.control, name, children)
	return n
}

func (n *ReactiveSequence) Tick() (Status, error) {
	return n.tick(func(children []Node) (Status, error) {
		return tickReactive(n.name, children, Failure)
	})
}

func (n *ReactiveSequence) Halt() error { return n.halt(nil) }

// SequenceWithMemory resumes at the child it reached last. On Failure the
// failed child and those after it are halted but the position is kept, so
// the next tick retries the failed child instead of starting over.
type SequenceWithMemory struct {
	control
	current int
}

// NewSequenceWithMemory creates a SequenceWithMemory. It panics if a child
// is nil.
func NewSequenceWithMemory(name string, children ...Node) *SequenceWithMemory {
	n := new(SequenceWithMemory)
	mustInit(&n.control, name, children)
	return n
}

func (n *SequenceWithMemory) Tick() (Status, error) {
	return n.tick(func(children []Node) (Status, error) {
		skipped := 0
		for n.current < len(children) {
			child := children[n.current]
			status, err := child.Tick()
			if err != nil {
				return Failure, err
			}
			switch status {
			case Running:
				return Running, nil
			case Failure:
				if err := haltChildren(children, n.current); err != nil {
					return Failure, err
				}
				return Failure, nil
			case Skipped:
				skipped++
				n.current++
			case Success:
				n.current++
			default:
				return Failure, unexpected(n.name, child, status)
			}
		}
		n.current = 0
		if err := haltChildren(children, 0); err != nil {
			return Failure, err
		}
		if len(children) > 0 && skipped == len(children) {
			return Skipped, nil
		}
		return Success, nil
	})
}

func (n *SequenceWithMemory) Halt() error {
	return n.halt(func() { n.current = 0 })
}

func mustInit(c *control, name string, children []Node) {
	if err := c.init(name, children); err != nil {
		panic(err)
	}
}

// opposite maps the decisive status of an ordered composite to the status
// it returns when no child was decisive.
func opposite(s Status) Status {
	if s == Success {
		return Failure
	}
	return Success
}

// tickOrdered is the shared algorithm of Sequence and Fallback. decisive is
// the child status that stops the iteration.
func tickOrdered(name string, children []Node, decisive Status) (Status, error) {
	skipped := 0
	for _, child := range children {
		status := child.Status()
		if child.Kind() != KindAction || !status.IsCompleted() {
			var err error
			if status, err = child.Tick(); err != nil {
				return Failure, err
			}
		}
		switch status {
		case Running:
			return Running, nil
		case decisive:
			if err := haltChildren(children, 0); err != nil {
				return Failure, err
			}
			return decisive, nil
		case Skipped:
			skipped++
		case Success, Failure:
		default:
			return Failure, unexpected(name, child, status)
		}
	}
	if err := haltChildren(children, 0); err != nil {
		return Failure, err
	}
	if len(children) > 0 && skipped == len(children) {
		return Skipped, nil
	}
	return opposite(decisive), nil
}

// tickReactive is the shared algorithm of the reactive variants.
func tickReactive(name string, children []Node, decisive Status) (Status, error) {
	skipped := 0
	for i, child := range children {
		status, err := child.Tick()
		if err != nil {
			return Failure, err
		}
		switch status {
		case Running:
			if err := haltChildren(children, i+1); err != nil {
				return Failure, err
			}
			return Running, nil
		case decisive:
			if err := haltChildren(children, 0); err != nil {
				return Failure, err
			}
			return decisive, nil
		case Skipped:
			skipped++
		case Success, Failure:
		default:
			return Failure, unexpected(name, child, status)
		}
	}
	if err := haltChildren(children, 0); err != nil {
		return Failure, err
	}
	if len(children) > 0 && skipped == len(children) {
		return Skipped, nil
	}
	return opposite(decisive), nil
}
