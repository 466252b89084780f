package bt

import (
	"sync/atomic"
)

// probe is a scripted action: every tick returns the current status.
type probe struct {
	*Action
	status atomic.Int32
	ticks  atomic.Int32
	halts  atomic.Int32
}

func newProbe(name string, status Status) *probe {
	p := new(probe)
	p.status.Store(int32(status))
	p.Action = NewAction(name, func() (Status, error) {
		p.ticks.Add(1)
		return Status(p.status.Load()), nil
	}, WithHaltFunc(func() { p.halts.Add(1) }))
	return p
}

func (p *probe) set(s Status) { p.status.Store(int32(s)) }

func (p *probe) tickCount() int { return int(p.ticks.Load()) }

func (p *probe) haltCount() int { return int(p.halts.Load()) }

// counter is a condition with a settable result.
type counter struct {
	*Condition
	result atomic.Bool
	evals  atomic.Int32
}

func newCounter(name string, result bool) *counter {
	c := new(counter)
	c.result.Store(result)
	c.Condition = NewCondition(name, func() (bool, error) {
		c.evals.Add(1)
		return c.result.Load(), nil
	})
	return c
}

func (c *counter) set(v bool) { c.result.Store(v) }

func (c *counter) evalCount() int { return int(c.evals.Load()) }

// rogue ignores the tick contract and returns whatever it is told.
type rogue struct {
	Core
	status Status
}

func newRogue(name string, status Status) *rogue {
	r := &rogue{status: status}
	r.Init(name, KindAction)
	return r
}

func (r *rogue) Tick() (Status, error) { return r.status, nil }

func (r *rogue) Halt() error { return r.Stop(nil) }

func statuses(nodes ...Node) []Status {
	out := make([]Status, len(nodes))
	for i, n := range nodes {
		out[i] = n.Status()
	}
	return out
}
