package bt

// IfThenElse ticks its condition child, then the "then" child on Success or
// the optional "else" child on Failure. Once a branch is chosen the
// condition is not evaluated again until the branch completes. Without an
// else branch, a failed condition fails the node.
type IfThenElse struct {
	control
	branch int
}

// NewIfThenElse creates an IfThenElse. otherwise may be nil. It panics if
// cond or then is nil.
func NewIfThenElse(name string, cond, then, otherwise Node) *IfThenElse {
	n := new(IfThenElse)
	mustInit(&n.control, name, branches(cond, then, otherwise))
	n.validate = validateBranches
	return n
}

func (n *IfThenElse) Tick() (Status, error) {
	return n.tick(func(children []Node) (Status, error) {
		if err := validateBranches(len(children)); err != nil {
			return Failure, err
		}
		if n.branch >= len(children) {
			n.branch = 0
		}
		if n.branch == 0 {
			status, err := children[0].Tick()
			if err != nil {
				return Failure, err
			}
			switch status {
			case Running:
				return Running, nil
			case Success:
				n.branch = 1
			case Failure:
				if len(children) < 3 {
					return Failure, haltChildren(children, 0)
				}
				n.branch = 2
			case Skipped:
				return Skipped, haltChildren(children, 0)
			default:
				return Failure, unexpected(n.name, children[0], status)
			}
		}

		status, err := children[n.branch].Tick()
		if err != nil {
			return Failure, err
		}
		if status == Running {
			return Running, nil
		}
		n.branch = 0
		return status, haltChildren(children, 0)
	})
}

func (n *IfThenElse) Halt() error {
	return n.halt(func() { n.branch = 0 })
}

// WhileDoElse is the reactive counterpart of IfThenElse: the condition is
// evaluated on every tick, and a change of its outcome halts the branch
// that is no longer selected.
type WhileDoElse struct {
	control
}

// NewWhileDoElse creates a WhileDoElse. otherwise may be nil. It panics if
// cond or do is nil.
func NewWhileDoElse(name string, cond, do, otherwise Node) *WhileDoElse {
	n := new(WhileDoElse)
	mustInit(&n.control, name, branches(cond, do, otherwise))
	n.validate = validateBranches
	return n
}

func (n *WhileDoElse) Tick() (Status, error) {
	return n.tick(func(children []Node) (Status, error) {
		if err := validateBranches(len(children)); err != nil {
			return Failure, err
		}
		cond, err := children[0].Tick()
		if err != nil {
			return Failure, err
		}

		var status Status
		switch cond {
		case Running:
			return Running, nil
		case Success:
			if len(children) == 3 {
				if err := children[2].Halt(); err != nil {
					return Failure, err
				}
			}
			if status, err = children[1].Tick(); err != nil {
				return Failure, err
			}
		case Failure:
			if len(children) < 3 {
				return Failure, haltChildren(children, 0)
			}
			if err := children[1].Halt(); err != nil {
				return Failure, err
			}
			if status, err = children[2].Tick(); err != nil {
				return Failure, err
			}
		case Skipped:
			return Skipped, haltChildren(children, 0)
		default:
			return Failure, unexpected(n.name, children[0], cond)
		}

		if status != Running {
			if err := haltChildren(children, 0); err != nil {
				return Failure, err
			}
		}
		return status, nil
	})
}

func (n *WhileDoElse) Halt() error { return n.halt(nil) }

func branches(cond, first, second Node) []Node {
	if second == nil {
		return []Node{cond, first}
	}
	return []Node{cond, first, second}
}

func validateBranches(n int) error {
	if n != 2 && n != 3 {
		return logicError("conditional", ErrChildCount, "need 2 or 3 children, have %d", n)
	}
	return nil
}
