package bt

import (
	"fmt"
	"sync"
)

// control is the shared base of multi-child nodes.
//
// Children are an insertion-ordered collection owned by the node. A tick
// holds the read lock from start to finish, and edits take the write lock,
// so an edit made from another goroutine waits for the tick in progress and
// the next tick re-reads the collection.
type control struct {
	Core
	mu       sync.RWMutex
	children []Node
	// validate, if set, is consulted with the prospective child count
	// before every edit.
	validate func(n int) error
}

func (c *control) init(name string, children []Node) error {
	c.Init(name, KindControl)
	for i, child := range children {
		if child == nil {
			return fmt.Errorf("%w: child %d of %q", ErrNilNode, i, c.name)
		}
	}
	c.children = append([]Node(nil), children...)
	return nil
}

// Children returns a snapshot of the children.
func (c *control) Children() []Node {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Node(nil), c.children...)
}

// Len returns the current number of children.
func (c *control) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.children)
}

// AddChild appends a child.
func (c *control) AddChild(child Node) error {
	return c.InsertChild(-1, child)
}

// InsertChild inserts a child at index i, or appends it if i is negative.
func (c *control) InsertChild(i int, child Node) error {
	if child == nil {
		return ErrNilNode
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 {
		i = len(c.children)
	}
	if i > len(c.children) {
		return fmt.Errorf("%w: %d", ErrChildIndex, i)
	}
	if c.validate != nil {
		if err := c.validate(len(c.children) + 1); err != nil {
			return err
		}
	}
	if h := c.hub.Load(); h != nil {
		if err := attach(child, h, nil); err != nil {
			return err
		}
	}
	c.children = append(c.children, nil)
	copy(c.children[i+1:], c.children[i:])
	c.children[i] = child
	return nil
}

// RemoveChild removes and returns the child at index i. A running child must
// be halted first.
func (c *control) RemoveChild(i int) (Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.children) {
		return nil, fmt.Errorf("%w: %d", ErrChildIndex, i)
	}
	child := c.children[i]
	if child.Status() == Running {
		return nil, fmt.Errorf("%w: %q", ErrRemoveRunning, child.Name())
	}
	if c.validate != nil {
		if err := c.validate(len(c.children) - 1); err != nil {
			return nil, err
		}
	}
	c.children = append(c.children[:i:i], c.children[i+1:]...)
	_ = attach(child, nil, nil)
	return child, nil
}

// tick runs fn with the current children under the tick contract.
func (c *control) tick(fn func(children []Node) (Status, error)) (Status, error) {
	return c.Execute(func() (Status, error) {
		c.mu.RLock()
		defer c.mu.RUnlock()
		return fn(c.children)
	})
}

// halt halts every child, then resets the node. reset, if set, clears
// per-execution state first.
func (c *control) halt(reset func()) error {
	return c.Stop(func() error {
		if reset != nil {
			reset()
		}
		c.mu.RLock()
		defer c.mu.RUnlock()
		return haltChildren(c.children, 0)
	})
}

// unexpected reports a child status no algorithm accepts.
func unexpected(parent string, child Node, status Status) error {
	if status == Idle {
		return logicError(parent, ErrIdleStatus, "child %q", child.Name())
	}
	return logicError(parent, ErrInvalidStatus, "child %q returned %v", child.Name(), status)
}
