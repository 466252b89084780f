// Package bt implements a behavior-tree engine built around a tick/halt
// protocol.
//
// A tree is a hierarchy of nodes. Each tick walks it depth-first from the
// root: leaves (conditions and actions) report a Status, and control and
// decorator nodes fold the statuses of their children into their own.
// Halting a node stops its in-flight work, including the background workers
// of an AsyncAction, and resets it and its started descendants to Idle.
//
// Build nodes with the constructors (NewSequence, NewFallback, NewParallel,
// NewRetry, NewAsyncAction, ...), then hand the root to NewTree:
//
//	bb := bt.NewBlackboard(nil)
//	root := bt.NewSequence("patrol",
//		bt.NewCondition("battery ok", func() (bool, error) {
//			level, err := bt.GetValue[int](bb, "battery")
//			return level > 20, err
//		}),
//		bt.NewAsyncAction("move", move),
//	)
//	tree, err := bt.NewTree(root)
//	...
//	status, err := tree.TickWhileRunning(ctx, 100*time.Millisecond)
//
// Faults that indicate a broken tree, such as a node returning Idle, are
// reported as a *LogicError and abort the tick. A value that is missing from
// the blackboard is an ordinary Failure.
package bt
