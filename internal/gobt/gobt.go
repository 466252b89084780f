// Package gobt bridges the engine and github.com/joeycumines/go-behaviortree.
//
// go-behaviortree nodes are stateless functions without a halt protocol, so
// the bridge only crosses leaves: FromNode runs a go-behaviortree subtree as
// an Action, and ToNode exposes an engine node to go-behaviortree
// composites.
package gobt

import (
	"fmt"

	behaviortree "github.com/joeycumines/go-behaviortree"

	"github.com/joeycumines/bteng/internal/bt"
)

// ToStatus maps a go-behaviortree status.
func ToStatus(s behaviortree.Status) (bt.Status, error) {
	switch s {
	case behaviortree.Running:
		return bt.Running, nil
	case behaviortree.Success:
		return bt.Success, nil
	case behaviortree.Failure:
		return bt.Failure, nil
	default:
		return bt.Failure, fmt.Errorf("gobt: unknown status %d", s)
	}
}

// FromStatus maps an engine status. Skipped maps to Success, so a skipped
// subtree does not fail a go-behaviortree sequence. Idle has no mapping.
func FromStatus(s bt.Status) (behaviortree.Status, error) {
	switch s {
	case bt.Running:
		return behaviortree.Running, nil
	case bt.Success, bt.Skipped:
		return behaviortree.Success, nil
	case bt.Failure:
		return behaviortree.Failure, nil
	default:
		return behaviortree.Failure, fmt.Errorf("gobt: status %v has no go-behaviortree equivalent", s)
	}
}

// FromNode wraps a go-behaviortree node as an Action. The node is ticked on
// every tick of the action; its errors abort the tick like any leaf error.
// Use bt.WithHaltFunc to react to halts, which go-behaviortree cannot see.
func FromNode(name string, node behaviortree.Node, opts ...bt.Option) *bt.Action {
	return bt.NewAction(name, func() (bt.Status, error) {
		if node == nil {
			return bt.Failure, fmt.Errorf("gobt: %q wraps a nil node", name)
		}
		status, err := node.Tick()
		if err != nil {
			return bt.Failure, fmt.Errorf("gobt: ticking %q: %w", name, err)
		}
		return ToStatus(status)
	}, opts...)
}

// ToNode exposes n as a go-behaviortree leaf. Each go-behaviortree tick
// ticks n once. A completed n is halted before its status is returned, so
// the next go-behaviortree tick starts a fresh execution.
func ToNode(n bt.Node) behaviortree.Node {
	return behaviortree.New(func([]behaviortree.Node) (behaviortree.Status, error) {
		status, err := n.Tick()
		if err != nil {
			return behaviortree.Failure, err
		}
		if status != bt.Running {
			if err := n.Halt(); err != nil {
				return behaviortree.Failure, err
			}
		}
		return FromStatus(status)
	})
}

// ToTree exposes a tree as a go-behaviortree leaf, ticking it with
// TickOnce. The tree serializes concurrent go-behaviortree tickers with
// bt.ErrConcurrentTick.
func ToTree(t *bt.Tree) behaviortree.Node {
	return behaviortree.New(func([]behaviortree.Node) (behaviortree.Status, error) {
		status, err := t.TickOnce()
		if err != nil {
			return behaviortree.Failure, err
		}
		if status != bt.Running {
			if err := t.Halt(); err != nil {
				return behaviortree.Failure, err
			}
		}
		return FromStatus(status)
	})
}
