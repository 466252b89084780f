// Package runner drives a tree on a fixed tick interval, and serializes
// inspection of the tree with its ticks so that other goroutines (such as
// HTTP handlers) can take snapshots safely.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/bteng/internal/bt"
	"github.com/joeycumines/bteng/internal/treeview"
)

// ErrTickLimit is returned by Run when the tick budget is spent while the
// tree is still running.
var ErrTickLimit = errors.New("runner: tick limit reached")

// Option configures a Runner.
type Option func(*Runner)

// WithInterval sets the sleep between ticks. Nodes may cut it short with a
// wake-up. Zero ticks back to back.
func WithInterval(d time.Duration) Option {
	return func(r *Runner) {
		if d >= 0 {
			r.interval = d
		}
	}
}

// WithMaxTicks bounds the number of ticks of a Run. Zero means unbounded.
func WithMaxTicks(n int) Option {
	return func(r *Runner) {
		if n >= 0 {
			r.maxTicks = n
		}
	}
}

// WithLoop restarts the tree after every completion instead of returning,
// so Run only ends on cancellation, an error, or the tick limit.
func WithLoop(loop bool) Option {
	return func(r *Runner) { r.loop = loop }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Runner ticks a tree until it completes.
type Runner struct {
	tree     *bt.Tree
	bb       *bt.Blackboard
	interval time.Duration
	maxTicks int
	loop     bool
	logger   *slog.Logger

	mu          sync.Mutex
	ticks       atomic.Int64
	completions atomic.Int64
}

// New creates a runner for tree. The blackboard is optional, and only
// exposed through Blackboard.
func New(tree *bt.Tree, bb *bt.Blackboard, opts ...Option) *Runner {
	r := &Runner{
		tree:     tree,
		bb:       bb,
		interval: 100 * time.Millisecond,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Tree returns the driven tree.
func (r *Runner) Tree() *bt.Tree { return r.tree }

// Blackboard returns the blackboard passed to New, or nil.
func (r *Runner) Blackboard() *bt.Blackboard { return r.bb }

// Ticks returns the number of ticks performed across every Run.
func (r *Runner) Ticks() int64 { return r.ticks.Load() }

// Completions returns how many times the root completed.
func (r *Runner) Completions() int64 { return r.completions.Load() }

// Status returns the status of the root.
func (r *Runner) Status() bt.Status { return r.tree.Status() }

// Snapshot lists the nodes of the tree between ticks.
func (r *Runner) Snapshot() []treeview.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return treeview.Snapshot(r.tree)
}

// Render draws the tree between ticks.
func (r *Runner) Render(styles treeview.Styles) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return treeview.Render(r.tree, styles)
}

// Halt halts the tree between ticks.
func (r *Runner) Halt() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tree.Halt()
}

func (r *Runner) tick() (bt.Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks.Add(1)
	return r.tree.TickOnce()
}

// Run ticks the tree until it completes, and returns the final status.
//
// A tick error, cancellation of ctx, or ErrTickLimit halts the tree before
// returning. In loop mode a completed tree is halted and ticked again on the
// next interval.
func (r *Runner) Run(ctx context.Context) (bt.Status, error) {
	timer := time.NewTimer(r.interval)
	defer timer.Stop()
	for n := 1; ; n++ {
		status, err := r.tick()
		if err != nil {
			r.logger.Error("[Runner] tick failed, halting tree",
				"tree", r.tree.ID(),
				"tick", n,
				"error", err)
			return bt.Failure, errors.Join(err, r.Halt())
		}

		if status != bt.Running {
			r.completions.Add(1)
			r.logger.Info("[Runner] tree completed",
				"tree", r.tree.ID(),
				"status", status,
				"ticks", n)
			if !r.loop {
				return status, nil
			}
			if err := r.Halt(); err != nil {
				return status, err
			}
		}

		if r.maxTicks > 0 && n >= r.maxTicks {
			if status == bt.Running {
				return status, errors.Join(fmt.Errorf("%w after %d ticks", ErrTickLimit, n), r.Halt())
			}
			return status, nil
		}

		timer.Reset(r.interval)
		select {
		case <-ctx.Done():
			return bt.Failure, errors.Join(ctx.Err(), r.Halt())
		case <-r.tree.Woken():
		case <-timer.C:
		}
	}
}
