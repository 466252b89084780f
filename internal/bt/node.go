package bt

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Node is the contract every tree element satisfies.
//
// Implementations embed Core, which supplies identity, status tracking and
// the Execute/Stop wrappers that enforce the tick/halt protocol. The
// unexported base method means a Node can only be built on top of Core.
type Node interface {
	Name() string
	ID() string
	Kind() Kind
	// Status returns the status recorded by the last tick or halt.
	Status() Status
	// Tick evaluates the node once. It never returns Idle without an error.
	Tick() (Status, error)
	// Halt stops any in-flight work, halts started children, and resets the
	// node to Idle before returning. Halting an idle node is a no-op.
	Halt() error
	// Children returns a snapshot of the owned children, in order.
	Children() []Node
	base() *Core
}

// Cause identifies what produced a TickEvent.
type Cause int

const (
	CauseTick Cause = iota
	CauseHalt
)

func (c Cause) String() string {
	if c == CauseHalt {
		return "halt"
	}
	return "tick"
}

// TickEvent is delivered to observers after every tick of every node, and
// whenever a halt resets a node to Idle.
type TickEvent struct {
	TreeID   string
	NodeID   string
	Name     string
	Kind     Kind
	Previous Status
	Status   Status
	Cause    Cause
	Time     time.Time
}

// Observer receives TickEvent values synchronously, on the goroutine that
// ticked or halted the node. It must not block and cannot alter outcomes;
// panics are recovered and logged.
type Observer func(TickEvent)

// Core is the embeddable implementation of the node contract.
// Call Init before use. Core must not be copied after Init.
type Core struct {
	name    string
	id      string
	kind    Kind
	status  atomic.Int32
	halting atomic.Bool
	hub     atomic.Pointer[hub]
	ports   *Ports
}

// Init sets the identity of the node. Every node gets a fresh uuid.
func (c *Core) Init(name string, kind Kind) {
	if name == "" {
		name = kind.String()
	}
	c.name = name
	c.id = uuid.NewString()
	c.kind = kind
}

func (c *Core) Name() string { return c.name }

func (c *Core) ID() string { return c.id }

func (c *Core) Kind() Kind { return c.kind }

func (c *Core) Status() Status { return Status(c.status.Load()) }

// Ports returns the ports bound to the node, or nil.
func (c *Core) Ports() *Ports { return c.ports }

// Children of a leaf is always nil.
func (c *Core) Children() []Node { return nil }

func (c *Core) base() *Core { return c }

// Execute runs tick under the tick contract: the result is validated,
// recorded as the node's status, and published to observers.
//
// Errors wrapping ErrMissingValue become Failure. Any other error leaves
// the status untouched and is returned as-is.
func (c *Core) Execute(tick func() (Status, error)) (Status, error) {
	prev := c.Status()
	if c.kind == KindControl || c.kind == KindDecorator {
		// composites count as started once ticked, so that a later halt
		// reaches children started by a tick that then faulted
		c.status.Store(int32(Running))
	}

	status, err := tick()
	if err != nil {
		if !errors.Is(err, ErrMissingValue) {
			return Failure, err
		}
		c.logger().Debug("[BT] missing value reported as failure",
			"node", c.name,
			"error", err)
		status = Failure
	}

	switch {
	case status == Idle:
		return Failure, logicError(c.name, ErrIdleStatus, "")
	case !status.valid():
		return Failure, logicError(c.name, ErrInvalidStatus, "%d", int(status))
	}

	c.status.Store(int32(status))
	c.notify(prev, status, CauseTick)
	return status, nil
}

// Stop runs halt under the halt contract. It is a no-op for an idle node,
// reports re-entrant calls as a logic error, and always leaves the node
// Idle. The error from halt, if any, is returned after the reset.
func (c *Core) Stop(halt func() error) error {
	if !c.halting.CompareAndSwap(false, true) {
		return logicError(c.name, ErrReentrantHalt, "")
	}
	defer c.halting.Store(false)

	prev := c.Status()
	if prev == Idle {
		return nil
	}

	var err error
	if halt != nil {
		err = halt()
	}

	c.status.Store(int32(Idle))
	c.notify(prev, Idle, CauseHalt)
	return err
}

func (c *Core) notify(prev, status Status, cause Cause) {
	h := c.hub.Load()
	if h == nil {
		return
	}
	h.publish(TickEvent{
		TreeID:   h.treeID,
		NodeID:   c.id,
		Name:     c.name,
		Kind:     c.kind,
		Previous: prev,
		Status:   status,
		Cause:    cause,
		Time:     time.Now(),
	})
}

// wake asks the owning tree, if any, to tick again without waiting for its
// sleep interval to elapse.
func (c *Core) wake() {
	if h := c.hub.Load(); h != nil && h.wake != nil {
		h.wake()
	}
}

// Logger returns the logger of the tree the node belongs to, or
// slog.Default before the node is attached.
func (c *Core) Logger() *slog.Logger { return c.logger() }

func (c *Core) logger() *slog.Logger {
	if h := c.hub.Load(); h != nil && h.logger != nil {
		return h.logger
	}
	return slog.Default()
}

// hub is shared by every node of a tree. It routes events to observers and
// wake-up requests to the runner.
type hub struct {
	treeID string
	logger *slog.Logger
	wake   func()

	mu        sync.RWMutex
	nextID    uint64
	observers []observerEntry
}

type observerEntry struct {
	id uint64
	fn Observer
}

func (h *hub) subscribe(fn Observer) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	h.observers = append(h.observers, observerEntry{id: id, fn: fn})
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, o := range h.observers {
			if o.id == id {
				h.observers = append(h.observers[:i:i], h.observers[i+1:]...)
				return
			}
		}
	}
}

func (h *hub) publish(ev TickEvent) {
	h.mu.RLock()
	observers := h.observers
	h.mu.RUnlock()
	for _, o := range observers {
		h.call(o.fn, ev)
	}
}

func (h *hub) call(fn Observer, ev TickEvent) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("[BT] observer panicked",
				"node", ev.Name,
				"panic", fmt.Sprint(r))
		}
	}()
	fn(ev)
}

// attach installs h on n and its whole subtree. seen detects nodes that
// appear twice, which would break single ownership.
func attach(n Node, h *hub, seen map[string]struct{}) error {
	if n == nil {
		return ErrNilNode
	}
	c := n.base()
	if seen != nil {
		if _, ok := seen[c.id]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateNode, c.name)
		}
		seen[c.id] = struct{}{}
	}
	c.hub.Store(h)
	for _, child := range n.Children() {
		if err := attach(child, h, seen); err != nil {
			return err
		}
	}
	return nil
}

// haltChildren halts children[from:] in order, continuing past failures.
func haltChildren(children []Node, from int) error {
	var errs []error
	for i := from; i < len(children); i++ {
		if err := children[i].Halt(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
