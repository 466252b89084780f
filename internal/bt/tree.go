package bt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// TreeOption configures a Tree.
type TreeOption func(*treeOptions)

type treeOptions struct {
	logger    *slog.Logger
	observers []Observer
}

// WithLogger sets the logger used by the tree and its nodes. The default is
// slog.Default().
func WithLogger(logger *slog.Logger) TreeOption {
	return func(o *treeOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver subscribes fn to every TickEvent of the tree.
func WithObserver(fn Observer) TreeOption {
	return func(o *treeOptions) {
		if fn != nil {
			o.observers = append(o.observers, fn)
		}
	}
}

// Tree owns a root node and drives it.
//
// Ticks and halts must come from one goroutine at a time: a call made while
// another is in progress fails with ErrConcurrentTick rather than blocking.
type Tree struct {
	id     string
	root   Node
	hub    *hub
	logger *slog.Logger

	busy   atomic.Bool
	wakeCh chan struct{}
}

// NewTree attaches root and all its descendants to a new tree. A node may
// only appear once.
func NewTree(root Node, opts ...TreeOption) (*Tree, error) {
	if root == nil {
		return nil, ErrNilNode
	}
	o := treeOptions{logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	t := &Tree{
		id:     uuid.NewString(),
		root:   root,
		logger: o.logger,
		wakeCh: make(chan struct{}, 1),
	}
	t.hub = &hub{treeID: t.id, logger: o.logger, wake: t.Wake}
	if err := attach(root, t.hub, make(map[string]struct{})); err != nil {
		return nil, fmt.Errorf("bt: building tree: %w", err)
	}
	for _, fn := range o.observers {
		t.hub.subscribe(fn)
	}
	return t, nil
}

// ID returns the unique id of the tree.
func (t *Tree) ID() string { return t.id }

// Root returns the root node.
func (t *Tree) Root() Node { return t.root }

// Status returns the status of the root.
func (t *Tree) Status() Status { return t.root.Status() }

// Subscribe registers an observer and returns a function that removes it.
func (t *Tree) Subscribe(fn Observer) (unsubscribe func()) {
	return t.hub.subscribe(fn)
}

// Wake interrupts the sleep of TickWhileRunning. It never blocks, and may be
// called from any goroutine.
func (t *Tree) Wake() {
	select {
	case t.wakeCh <- struct{}{}:
	default:
	}
}

// Woken returns the channel Wake signals, for callers that drive the tree
// with their own loop instead of TickWhileRunning.
func (t *Tree) Woken() <-chan struct{} { return t.wakeCh }

// TickOnce ticks the root a single time.
func (t *Tree) TickOnce() (Status, error) {
	if !t.busy.CompareAndSwap(false, true) {
		return Failure, logicError(t.root.Name(), ErrConcurrentTick, "")
	}
	defer t.busy.Store(false)
	return t.root.Tick()
}

// TickWhileRunning ticks the root until it is no longer Running. Between
// ticks it sleeps for up to sleep, waking early when a node requests it.
//
// An error from a tick halts the tree, and is returned together with any
// halt error. Cancelling ctx also halts the tree and returns ctx.Err().
func (t *Tree) TickWhileRunning(ctx context.Context, sleep time.Duration) (Status, error) {
	timer := time.NewTimer(sleep)
	defer timer.Stop()
	for {
		status, err := t.TickOnce()
		if err != nil {
			t.logger.Error("[BT] tick failed, halting tree",
				"tree", t.id,
				"error", err)
			if errors.Is(err, ErrConcurrentTick) {
				return Failure, err
			}
			return Failure, errors.Join(err, t.Halt())
		}
		if status != Running {
			return status, nil
		}

		timer.Reset(sleep)
		select {
		case <-ctx.Done():
			return Failure, errors.Join(ctx.Err(), t.Halt())
		case <-t.wakeCh:
		case <-timer.C:
		}
	}
}

// Halt halts the whole tree.
func (t *Tree) Halt() error {
	if !t.busy.CompareAndSwap(false, true) {
		return logicError(t.root.Name(), ErrConcurrentTick, "")
	}
	defer t.busy.Store(false)
	return t.root.Halt()
}

// Walk visits every node in depth-first pre-order, until fn returns false.
// It must not be called from an observer or a node, while a tick holds the
// child collections.
func (t *Tree) Walk(fn func(n Node, depth int) bool) {
	walk(t.root, 0, fn)
}

func walk(n Node, depth int, fn func(Node, int) bool) bool {
	if !fn(n, depth) {
		return false
	}
	for _, child := range n.Children() {
		if !walk(child, depth+1, fn) {
			return false
		}
	}
	return true
}

// Nodes returns every node in depth-first pre-order.
func (t *Tree) Nodes() []Node {
	var nodes []Node
	t.Walk(func(n Node, _ int) bool {
		nodes = append(nodes, n)
		return true
	})
	return nodes
}
