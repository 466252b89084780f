package bt

// RequireAll, as a Parallel threshold, resolves to the number of children at
// tick time.
const RequireAll = -1

// Parallel ticks every child that has not completed yet, one after another
// within the same tick, without short-circuiting on Running.
//
// Results accumulate until the node completes: reaching the success
// threshold halts the remaining children and succeeds, while reaching the
// failure threshold, or no longer being able to reach the success threshold,
// halts the remaining children and fails. Skipped children count toward
// neither. If every child skipped, the node is Skipped. If no child is left
// running and neither threshold was met, the node fails.
type Parallel struct {
	control
	successThreshold int
	failureThreshold int

	completed map[Node]struct{}
	successes int
	failures  int
}

// NewParallel creates a Parallel. Each threshold must resolve to a value in
// [1, len(children)], see RequireAll.
func NewParallel(name string, successThreshold, failureThreshold int, children ...Node) (*Parallel, error) {
	n := &Parallel{
		successThreshold: successThreshold,
		failureThreshold: failureThreshold,
		completed:        make(map[Node]struct{}),
	}
	if err := n.init(name, children); err != nil {
		return nil, err
	}
	if err := n.check(len(children)); err != nil {
		return nil, err
	}
	n.validate = n.check
	return n, nil
}

// Thresholds returns the configured thresholds, unresolved.
func (n *Parallel) Thresholds() (success, failure int) {
	return n.successThreshold, n.failureThreshold
}

func resolveThreshold(threshold, count int) int {
	if threshold == RequireAll {
		return count
	}
	return threshold
}

func (n *Parallel) check(count int) error {
	m := resolveThreshold(n.successThreshold, count)
	f := resolveThreshold(n.failureThreshold, count)
	if m <= 0 || m > count || f <= 0 || f > count {
		return logicError(n.name, ErrInvalidThreshold,
			"success=%d failure=%d with %d children", n.successThreshold, n.failureThreshold, count)
	}
	return nil
}

func (n *Parallel) Tick() (Status, error) {
	return n.tick(func(children []Node) (Status, error) {
		count := len(children)
		if err := n.check(count); err != nil {
			return Failure, err
		}
		m := resolveThreshold(n.successThreshold, count)
		f := resolveThreshold(n.failureThreshold, count)

		var running, skipped int
		for _, child := range children {
			if _, done := n.completed[child]; done {
				continue
			}
			status, err := child.Tick()
			if err != nil {
				return Failure, err
			}
			switch status {
			case Success:
				n.completed[child] = struct{}{}
				n.successes++
			case Failure:
				n.completed[child] = struct{}{}
				n.failures++
			case Running:
				running++
			case Skipped:
				skipped++
			default:
				return Failure, unexpected(n.name, child, status)
			}

			if n.successes >= m {
				return n.finish(children, Success)
			}
			if n.failures >= f || count-n.failures < m {
				return n.finish(children, Failure)
			}
		}

		// skipped children cannot count towards this execution's successes
		if skipped < count && count-n.failures-skipped < m {
			return n.finish(children, Failure)
		}

		switch {
		case running > 0:
			return Running, nil
		case count > 0 && skipped == count:
			n.reset()
			return Skipped, nil
		default:
			return n.finish(children, Failure)
		}
	})
}

func (n *Parallel) finish(children []Node, status Status) (Status, error) {
	n.reset()
	if err := haltChildren(children, 0); err != nil {
		return Failure, err
	}
	return status, nil
}

func (n *Parallel) reset() {
	clear(n.completed)
	n.successes, n.failures = 0, 0
}

func (n *Parallel) Halt() error { return n.halt(n.reset) }
