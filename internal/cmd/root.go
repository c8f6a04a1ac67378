package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/uciharness/internal/config"
	"github.com/harrison/uciharness/internal/engine"
	"github.com/harrison/uciharness/internal/mockengine"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for uciharness
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uciharness",
		Short: "Conformance test harness for UCI-style engines",
		Long: `uciharness drives an engine through scripted protocol sessions and checks
the replies against each case's expectations.

Engines run as an external process (subprocess backend), as a registered
module inside the harness (inprocess backend) or on a worker goroutine fed
one pre-joined message (worker backend). Every case gets a fresh engine.

Suites are built in (see "uciharness list") or read from YAML and
Markdown files. Configuration is loaded from .uciharness/config.yaml if
present; CLI flags override configuration file settings.`,
		Version: Version,
		// main prints the error
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "Path to config file (default: .uciharness/config.yaml)")
	flags.String("backend", "", "Engine backend: subprocess, inprocess or worker")
	flags.String("engine", "", "Engine executable (implies --backend subprocess)")
	flags.String("module", "", "Registered engine module for the inprocess and worker backends")
	flags.Duration("timeout", 0, "Per-case session budget (e.g. 10s, 1m)")
	flags.String("log-level", "", "Log level: trace, debug, info, warn, error")

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewListCommand())
	cmd.AddCommand(NewHistoryCommand())
	cmd.AddCommand(NewBestMoveCommand())
	cmd.AddCommand(NewMockEngineCommand())

	return cmd
}

// newRegistry returns the module registry every command launches engines from.
func newRegistry() *engine.Registry {
	reg := engine.NewRegistry()
	mockengine.Register(reg)
	return reg
}

// loadConfig reads the config file, applies the flags that were set on cmd
// and validates the result. Home-relative paths are resolved.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if path := stringFlag(cmd, "config"); path != nil && *path != "" {
		cfg, err = config.LoadConfig(*path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", *path, err)
		}
	} else {
		path, err := config.DefaultConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to locate config: %w", err)
		}
		cfg, err = config.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	cfg.MergeWithFlags(config.Flags{
		Backend:        stringFlag(cmd, "backend"),
		EnginePath:     stringFlag(cmd, "engine"),
		Module:         stringFlag(cmd, "module"),
		Timeout:        durationFlag(cmd, "timeout"),
		TestDelay:      durationFlag(cmd, "test-delay"),
		MaxConcurrency: intFlag(cmd, "max-concurrency"),
		Prejoined:      boolFlag(cmd, "prejoined"),
		LogLevel:       stringFlag(cmd, "log-level"),
		LogDir:         stringFlag(cmd, "log-dir"),
		ReportPath:     stringFlag(cmd, "report"),
		NoHistory:      boolFlag(cmd, "no-history"),
	})

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.LogDir, err = config.ResolvePath(cfg.LogDir); err != nil {
		return nil, err
	}
	if cfg.History.DBPath, err = config.ResolvePath(cfg.History.DBPath); err != nil {
		return nil, err
	}
	return cfg, nil
}

// The flag helpers return nil when cmd has no such flag or it was not set,
// matching the pointer convention of config.Flags.

func stringFlag(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return nil
	}
	return &v
}

func durationFlag(cmd *cobra.Command, name string) *time.Duration {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetDuration(name)
	if err != nil {
		return nil
	}
	return &v
}

func intFlag(cmd *cobra.Command, name string) *int {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetInt(name)
	if err != nil {
		return nil
	}
	return &v
}

func boolFlag(cmd *cobra.Command, name string) *bool {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		return nil
	}
	return &v
}
