// Package testutil provides polling helpers for tests that drive trees with
// asynchronous leaves.
package testutil

import (
	"context"
	"fmt"
	"time"
)

// DefaultTimeout bounds waits on background workers in tests. Workers used
// by tests finish in well under a millisecond; the margin absorbs scheduler
// noise on loaded CI machines.
const DefaultTimeout = 2 * time.Second

// Poll repeatedly checks a condition until it becomes true or timeout expires.
// Returns an error if timeout expires before condition becomes true.
func Poll(ctx context.Context, condition func() bool, timeout, interval time.Duration) error {
	_, err := WaitForState(ctx, condition, func(ok bool) bool { return ok }, timeout, interval)
	if err != nil {
		return fmt.Errorf("condition not met: %w", err)
	}
	return nil
}

// WaitForState waits until the state getter returns a value that satisfies
// the predicate function, or timeout expires.
//
// Example usage:
//
//	status, err := WaitForState(ctx, node.Status,
//		func(s bt.Status) bool { return s == bt.Idle },
//		testutil.DefaultTimeout,
//		time.Millisecond)
func WaitForState[T any](ctx context.Context, getter func() T, predicate func(T) bool, timeout, interval time.Duration) (T, error) {
	var zero T
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if state := getter(); predicate(state) {
			return state, nil
		}
		if !time.Now().Before(deadline) {
			return zero, fmt.Errorf("timeout waiting for target state (type %T, threshold: %v)", zero, timeout)
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-ticker.C:
		}
	}
}

// TickUntil calls tick every interval until done accepts the status, tick
// fails, or timeout expires. It returns the last status and error.
//
// It is written against a tick function rather than a node interface so
// that it serves both native nodes (node.Tick) and adapted ones.
func TickUntil[S any](ctx context.Context, tick func() (S, error), done func(S) bool, timeout, interval time.Duration) (S, error) {
	var (
		status S
		err    error
	)
	_, werr := WaitForState(ctx, func() bool {
		status, err = tick()
		return err != nil || done(status)
	}, func(stop bool) bool { return stop }, timeout, interval)
	if werr != nil {
		return status, werr
	}
	return status, err
}
