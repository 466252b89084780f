package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joeycumines/bteng/internal/config"
	"github.com/joeycumines/bteng/internal/logging"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "bteng",
		Short:         "bteng drives behavior trees",
		Long:          `bteng ticks a demo patrol behavior tree, and can expose it over HTTP and Redis while it runs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "Config file path (default $"+config.EnvConfigPath+" or ~/.bteng/config)")

	root.AddCommand(
		newRunCmd(),
		newTreeCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return root
}

// configPath returns the --config flag, or the default location.
func configPath(cmd *cobra.Command) (string, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return path, nil
	}
	return config.GetConfigPath()
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := configPath(cmd)
	if err != nil {
		return nil, err
	}
	return config.LoadFromPath(path)
}

// environment is what every command resolves from the configuration.
type environment struct {
	cfg      *config.Config
	settings *config.Settings
	logger   *slog.Logger
	closers  []io.Closer
}

func (e *environment) Close() error {
	var first error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func newEnvironment(cmd *cobra.Command) (*environment, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	settings, err := cfg.Settings()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	env := &environment{cfg: cfg, settings: settings}

	level, err := logging.ParseLevel(settings.LogLevel)
	if err != nil {
		return nil, err
	}
	w := cmd.ErrOrStderr()
	if settings.LogFile != "" {
		f, err := os.OpenFile(settings.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		env.closers = append(env.closers, f)
		w = f
	}
	env.logger, err = logging.New(level, settings.LogFormat, w)
	if err != nil {
		_ = env.Close()
		return nil, err
	}
	return env, nil
}
