package bt

// Fallback ticks its children in order until one succeeds.
//
// It mirrors Sequence: the first Success halts every child so the whole
// composition starts afresh next cycle, Failure moves on to the next child,
// and Running returns immediately, leaving the running child to resume on
// the next tick. When every child failed, all of them are halted and the
// fallback fails.
type Fallback struct {
	control
}

// NewFallback creates a Fallback. It panics if a child is nil.
func NewFallback(name string, children ...Node) *Fallback {
	n := new(Fallback)
	mustInit(&n.control, name, children)
	return n
}

func (n *Fallback) Tick() (Status, error) {
	return n.tick(func(children []Node) (Status, error) {
		return tickOrdered(n.name, children, Success)
	})
}

func (n *Fallback) Halt() error { return n.halt(nil) }

// ReactiveFallback re-evaluates every child from the first one on every
// tick, halting the children after the one that is Running.
type ReactiveFallback struct {
	control
}

// NewReactiveFallback creates a ReactiveFallback. It panics if a child is nil.
func NewReactiveFallback(name string, children ...Node) *ReactiveFallback {
	n := new(ReactiveFallback)
	mustInit(&n.control, name, children)
	return n
}

func (n *ReactiveFallback) Tick() (Status, error) {
	return n.tick(func(children []Node) (Status, error) {
		return tickReactive(n.name, children, Success)
	})
}

func (n *ReactiveFallback) Halt() error { return n.halt(nil) }
