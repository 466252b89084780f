package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dop251/goja"
	behaviortree "github.com/joeycumines/go-behaviortree"

	"github.com/joeycumines/bteng/internal/binding"
	"github.com/joeycumines/bteng/internal/bt"
	"github.com/joeycumines/bteng/internal/exprcond"
	"github.com/joeycumines/bteng/internal/gobt"
)

// patrolParams configures the demo tree.
type patrolParams struct {
	Laps        int
	Step        time.Duration
	Cost        float64
	HaltTimeout time.Duration
	Executor    bt.Executor
}

// reportScript runs after the last lap and decides the mission outcome. It
// runs once per tick on the same runtime, hence the function scope.
const reportScript = `(function () {
	const done = bb.get("laps_done");
	bb.set("report", "completed " + done + " laps with battery " + bb.get("battery").toFixed(2));
	return done >= laps;
})()`

// patrolDefaults are written to keys the seed did not provide.
var patrolDefaults = map[string]any{
	"battery":     1.0,
	"min_battery": 0.3,
	"laps_done":   0.0,
}

// newPatrol builds the demo mission:
//
//	patrol (sequence with memory)
//	├── self test      go-behaviortree sequence checking the blackboard
//	├── laps           repeat
//	│   └── lap        sequence with memory
//	│       ├── power  battery ok || recharge
//	│       └── drive deadline
//	│           └── drive
//	└── report         script over the blackboard
func newPatrol(bb *bt.Blackboard, p patrolParams) (bt.Node, error) {
	for k, v := range patrolDefaults {
		if !bb.Has(k) {
			if err := bb.Set(k, v); err != nil {
				return nil, err
			}
		}
	}

	var asyncOpts []bt.Option
	if p.HaltTimeout > 0 {
		asyncOpts = append(asyncOpts, bt.WithHaltTimeout(p.HaltTimeout))
	}
	if p.Executor != nil {
		asyncOpts = append(asyncOpts, bt.WithExecutor(p.Executor))
	}

	batteryOK, err := exprcond.New("battery ok", `battery >= min_battery`, bb)
	if err != nil {
		return nil, err
	}
	recharge := bt.NewAsyncAction("recharge", func(ctx context.Context) (bt.Status, error) {
		if err := sleep(ctx, p.Step); err != nil {
			return bt.Failure, err
		}
		return bt.Success, bb.Set("battery", 1.0)
	}, asyncOpts...)

	drive := bt.NewAsyncAction("drive", func(ctx context.Context) (bt.Status, error) {
		if err := sleep(ctx, p.Step); err != nil {
			return bt.Failure, err
		}
		battery, err := bt.GetValue[float64](bb, "battery")
		if err != nil {
			return bt.Failure, err
		}
		done, err := bt.GetValue[float64](bb, "laps_done")
		if err != nil {
			return bt.Failure, err
		}
		if err := bb.Set("battery", battery-p.Cost); err != nil {
			return bt.Failure, err
		}
		return bt.Success, bb.Set("laps_done", done+1)
	}, asyncOpts...)

	deadline, err := bt.NewTimeout("drive deadline", max(10*p.Step, time.Second), drive)
	if err != nil {
		return nil, err
	}
	// power is checked once per lap, never while drive is in flight
	lap := bt.NewSequenceWithMemory("lap", bt.NewFallback("power", batteryOK, recharge), deadline)
	laps, err := bt.NewRepeat("laps", p.Laps, lap)
	if err != nil {
		return nil, err
	}

	report, err := newReport(bb, p.Laps)
	if err != nil {
		return nil, err
	}
	return bt.NewSequenceWithMemory("patrol", newSelfTest(bb), laps, report), nil
}

// newSelfTest checks, with a plain go-behaviortree sequence, that the keys
// the mission depends on are present.
func newSelfTest(bb *bt.Blackboard) *bt.Action {
	has := func(key string) behaviortree.Node {
		return behaviortree.New(func([]behaviortree.Node) (behaviortree.Status, error) {
			if !bb.Has(key) {
				return behaviortree.Failure, nil
			}
			return behaviortree.Success, nil
		})
	}
	return gobt.FromNode("self test", behaviortree.New(behaviortree.Sequence,
		has("battery"),
		has("min_battery"),
		has("laps_done"),
	))
}

// newReport compiles reportScript once; each tick runs it on a runtime that
// sees the blackboard as bb.
func newReport(bb *bt.Blackboard, laps int) (*bt.Action, error) {
	program, err := goja.Compile("report.js", reportScript, true)
	if err != nil {
		return nil, fmt.Errorf("compiling report: %w", err)
	}
	vm := goja.New()
	if err := vm.Set("bb", binding.ExposeBlackboard(vm, bb)); err != nil {
		return nil, err
	}
	if err := vm.Set("laps", laps); err != nil {
		return nil, err
	}
	return bt.NewAction("report", func() (bt.Status, error) {
		v, err := vm.RunProgram(program)
		if err != nil {
			return bt.Failure, fmt.Errorf("running report: %w", err)
		}
		if !v.ToBoolean() {
			return bt.Failure, nil
		}
		return bt.Success, nil
	}), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
