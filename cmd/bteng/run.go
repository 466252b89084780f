package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/joeycumines/bteng/internal/bt"
	"github.com/joeycumines/bteng/internal/httpapi"
	"github.com/joeycumines/bteng/internal/monitor"
	"github.com/joeycumines/bteng/internal/runner"
	"github.com/joeycumines/bteng/internal/seed"
	"github.com/joeycumines/bteng/internal/treeview"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the patrol tree until it completes",
		Long: `Builds the patrol tree, seeds its blackboard, and ticks it until the root
completes. Flags override the [runner], [http] and [redis] configuration.`,
		Args: cobra.NoArgs,
		RunE: runPatrol,
	}
	f := cmd.Flags()
	f.Int("laps", 4, "Number of laps to drive")
	f.Duration("step", 200*time.Millisecond, "Duration of one lap or one recharge")
	f.Float64("cost", 0.25, "Battery spent per lap")
	f.Duration("interval", 0, "Sleep between ticks (default [runner] tick-interval)")
	f.Int("max-ticks", 0, "Stop after this many ticks (default [runner] max-ticks)")
	f.Int("workers", 0, "Async worker pool size (default [runner] workers)")
	f.String("seed", "", "Blackboard seed file (default [runner] seed)")
	f.String("listen", "", "Inspection API address (default [http] listen)")
	f.String("redis", "", "Redis address for status events (default [redis] addr)")
	f.Bool("loop", false, "Restart the tree after every completion until interrupted")
	f.Bool("color", false, "Color the final tree view")
	return cmd
}

func runPatrol(cmd *cobra.Command, _ []string) error {
	env, err := newEnvironment(cmd)
	if err != nil {
		return err
	}
	defer env.Close()
	logger := env.logger
	s := env.settings
	f := cmd.Flags()

	overrideDuration(cmd, "interval", &s.Runner.TickInterval)
	overrideInt(cmd, "max-ticks", &s.Runner.MaxTicks)
	overrideInt(cmd, "workers", &s.Runner.Workers)
	overrideString(cmd, "seed", &s.Runner.Seed)
	overrideString(cmd, "listen", &s.HTTP.Listen)
	overrideString(cmd, "redis", &s.Redis.Addr)
	laps, _ := f.GetInt("laps")
	step, _ := f.GetDuration("step")
	cost, _ := f.GetFloat64("cost")
	loop, _ := f.GetBool("loop")
	color, _ := f.GetBool("color")
	if laps <= 0 {
		return fmt.Errorf("--laps must be positive, got %d", laps)
	}

	bb := bt.NewBlackboard(nil)
	if s.Runner.Seed != "" {
		keys, err := seed.LoadFile(s.Runner.Seed, bb)
		if err != nil {
			return err
		}
		logger.Info("[Run] blackboard seeded", "file", s.Runner.Seed, "keys", keys)
	}

	params := patrolParams{Laps: laps, Step: step, Cost: cost, HaltTimeout: s.Runner.HaltTimeout}
	if s.Runner.Workers > 0 {
		pool, err := ants.NewPool(s.Runner.Workers, ants.WithNonblocking(true))
		if err != nil {
			return fmt.Errorf("creating worker pool: %w", err)
		}
		defer pool.Release()
		params.Executor = pool
	}
	root, err := newPatrol(bb, params)
	if err != nil {
		return err
	}

	recorder := monitor.NewRecorder(1000)
	treeOpts := []bt.TreeOption{
		bt.WithLogger(logger),
		bt.WithObserver(monitor.Logger(logger, slog.LevelDebug)),
		bt.WithObserver(recorder.Observe),
	}

	var gatherer prometheus.Gatherer
	if s.HTTP.Listen != "" && s.HTTP.Metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics, err := monitor.NewMetrics(reg)
		if err != nil {
			return err
		}
		treeOpts = append(treeOpts, bt.WithObserver(metrics.Observe))
		gatherer = reg
	}

	var publisher *monitor.Publisher
	if s.Redis.Addr != "" {
		client := backend.NewClient(&backend.Options{Addr: s.Redis.Addr})
		env.closers = append(env.closers, client)
		publisher = monitor.NewPublisher(client, monitor.WithChannel(s.Redis.Channel))
		treeOpts = append(treeOpts, bt.WithObserver(publisher.Observe))
	}

	tree, err := bt.NewTree(root, treeOpts...)
	if err != nil {
		return err
	}
	r := runner.New(tree, bb,
		runner.WithInterval(s.Runner.TickInterval),
		runner.WithMaxTicks(s.Runner.MaxTicks),
		runner.WithLoop(loop),
		runner.WithLogger(logger))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveCtx, cancelServe := context.WithCancel(ctx)
	defer cancelServe()
	serveErr := make(chan error, 1)
	if s.HTTP.Listen != "" {
		handler := httpapi.NewHandler(r, httpapi.Options{Recorder: recorder, Gatherer: gatherer, Logger: logger})
		go func() { serveErr <- httpapi.Serve(serveCtx, s.HTTP.Listen, handler, 5*time.Second, logger) }()
	} else {
		serveErr <- nil
	}

	status, runErr := r.Run(ctx)
	cancelServe()
	if err := <-serveErr; err != nil {
		logger.Error("[HTTP] server failed", "error", err)
	}
	if publisher != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := publisher.Close(closeCtx); err != nil {
			logger.Warn("[Run] flushing status events failed", "error", err)
		}
		cancel()
		if n := publisher.Dropped(); n > 0 {
			logger.Warn("[Run] status events dropped", "count", n)
		}
	}

	styles := treeview.Styles{}
	if color {
		styles = treeview.DefaultStyles()
	}
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, r.Render(styles))
	if report, ok := bb.Get("report"); ok {
		_, _ = fmt.Fprintf(out, "report: %v\n", report)
	}
	_, _ = fmt.Fprintf(out, "status: %v after %d ticks\n", status, r.Ticks())

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if status == bt.Failure && runErr == nil {
		return errors.New("patrol failed")
	}
	return nil
}

func overrideDuration(cmd *cobra.Command, name string, dst *time.Duration) {
	if cmd.Flags().Changed(name) {
		*dst, _ = cmd.Flags().GetDuration(name)
	}
}

func overrideInt(cmd *cobra.Command, name string, dst *int) {
	if cmd.Flags().Changed(name) {
		*dst, _ = cmd.Flags().GetInt(name)
	}
}

func overrideString(cmd *cobra.Command, name string, dst *string) {
	if cmd.Flags().Changed(name) {
		*dst, _ = cmd.Flags().GetString(name)
	}
}
