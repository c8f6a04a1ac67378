package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harrison/uciharness/internal/config"
	"github.com/harrison/uciharness/internal/display"
	"github.com/harrison/uciharness/internal/engine"
	"github.com/harrison/uciharness/internal/executor"
	"github.com/harrison/uciharness/internal/history"
	"github.com/harrison/uciharness/internal/logger"
	"github.com/harrison/uciharness/internal/models"
	"github.com/harrison/uciharness/internal/report"
	"github.com/harrison/uciharness/internal/suites"
)

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <suite>...",
		Short: "Run one or more test suites against an engine",
		Long: `Run test suites against the configured engine.

Each argument is the name of a built-in suite or a path to a suite file
(.yaml, .yml, .md) or a directory of suite files. Every case launches a
fresh engine, sends its commands and validates the captured output.

A failing case never stops the run. The command exits non-zero when any
case did not end with its expected verdict.

Examples:
  # Built-in suites against the in-process mock engine
  uciharness run protocol scenarios

  # An external engine
  uciharness run --engine ./shatranj protocol black-sequences

  # A suite file, four cases at a time, with a JSON report for CI
  uciharness run --max-concurrency 4 --report out/report.json suites/regressions.yaml

  # Selected cases only
  uciharness run scenarios --case "B: handshake"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCommand,
	}

	cmd.Flags().Duration("test-delay", 0, "Pause between case launches (e.g. 100ms)")
	cmd.Flags().Int("max-concurrency", 1, "Maximum number of cases in flight at once")
	cmd.Flags().Bool("prejoined", false, "Write subprocess commands as one pre-joined buffer")
	cmd.Flags().String("log-dir", "", "Directory for run logs and case transcripts (empty disables file logs)")
	cmd.Flags().String("report", "", "Write a JSON report to this path")
	cmd.Flags().Bool("no-history", false, "Do not record the run in the history database")
	cmd.Flags().StringSlice("case", nil, "Only run the named case(s); repeatable")

	return cmd
}

// runCommand implements the run command logic
func runCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	epCfg, err := cfg.EndpointConfig(newRegistry())
	if err != nil {
		return err
	}

	caseNames, _ := cmd.Flags().GetStringSlice("case")
	loaded, err := loadSuites(args, caseNames, out)
	if err != nil {
		return err
	}

	consoleLog := logger.NewConsoleLogger(out, cfg.LogLevel)
	var fileLog *logger.FileLogger
	if cfg.LogDir != "" {
		fileLog, err = logger.NewFileLogger(cfg.LogDir, cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("failed to create file logger: %w", err)
		}
		defer fileLog.Close()
	}
	var multiLog *logger.MultiLogger
	if fileLog != nil {
		multiLog = logger.NewMultiLogger(consoleLog, fileLog)
	} else {
		multiLog = logger.NewMultiLogger(consoleLog)
	}

	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.NewStore(cfg.History.DBPath)
		if err != nil {
			// A history failure never stops the run
			consoleLog.LogWarn(fmt.Sprintf("Run history disabled: %v", err))
		} else {
			defer store.Close()
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	runner := executor.NewRunner(executor.Options{
		Engine:         epCfg,
		Timeout:        cfg.Timeout,
		TestDelay:      cfg.TestDelay,
		MaxConcurrency: cfg.MaxConcurrency,
		Prejoined:      cfg.Prejoined,
	}, multiLog)

	var failedCases, failedSuites int
	for _, suite := range loaded {
		summary, runErr := runner.Run(ctx, suite.Name, suite.Cases)
		if summary != nil {
			reportAnomalies(out, summary)
			if err := recordRun(ctx, cfg, store, summary, epCfg, len(loaded) > 1); err != nil {
				consoleLog.LogWarn(err.Error())
			}
			failedCases += summary.Failed
		}
		if runErr != nil {
			if !executor.IsRunError(runErr) {
				return fmt.Errorf("suite %s: %w", suite.Name, runErr)
			}
			failedSuites++
		}
	}

	if fileLog != nil {
		fmt.Fprintf(out, "\nLogs written to: %s\n", cfg.LogDir)
	}
	if failedCases > 0 {
		return fmt.Errorf("%d case(s) failed in %d of %d suite(s)", failedCases, failedSuites, len(loaded))
	}
	fmt.Fprintf(out, "All %d suite(s) passed.\n", len(loaded))
	return nil
}

// loadSuites resolves and validates every suite reference. A non-empty
// caseNames keeps only those cases of every suite.
func loadSuites(refs, caseNames []string, out io.Writer) ([]*models.Suite, error) {
	var progress *display.ProgressIndicator
	if len(refs) > 1 {
		progress = display.NewProgressIndicator(out, len(refs))
		progress.Start()
	} else {
		display.DisplaySingleSuite(out, refs[0])
	}

	var loaded []*models.Suite
	cases := 0
	for _, ref := range refs {
		suite, err := suites.Resolve(ref)
		if err != nil {
			return nil, fmt.Errorf("failed to load suite %s: %w", ref, err)
		}
		if err := suite.Validate(); err != nil {
			return nil, fmt.Errorf("invalid suite %s: %w", ref, err)
		}
		if suite, err = suite.Filter(caseNames); err != nil {
			return nil, err
		}
		warnIgnoredFiles(out, ref)
		if progress != nil {
			progress.Step(ref)
		}
		loaded = append(loaded, suite)
		cases += len(suite.Cases)
	}
	if progress != nil {
		progress.Complete(cases)
	}
	return loaded, nil
}

// warnIgnoredFiles reports files in a suite directory that are not suites.
func warnIgnoredFiles(out io.Writer, ref string) {
	info, err := os.Stat(ref)
	if err != nil || !info.IsDir() {
		return
	}
	if ignored, err := display.IgnoredFiles(ref); err == nil && len(ignored) > 0 {
		display.WarnIgnoredFiles(ref, ignored).Display(out)
	}
}

func reportAnomalies(out io.Writer, summary *models.Summary) {
	for _, r := range summary.Results {
		if len(r.Anomalies) > 0 {
			display.WarnAnomalies(r.Case.Name, r.Anomalies).Display(out)
		}
	}
}

// recordRun writes the JSON report and the history entry for one suite.
func recordRun(ctx context.Context, cfg *config.Config, store *history.Store, summary *models.Summary, epCfg engine.Config, multi bool) error {
	backend, target := string(epCfg.Backend), epCfg.Target()
	var errs []string

	if cfg.ReportPath != "" {
		path := cfg.ReportPath
		if multi {
			path = suiteReportPath(path, summary.Suite)
		}
		if err := report.Write(path, report.FromSummary(summary, backend, target)); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if store != nil {
		meta := history.RunMeta{Backend: backend, Target: target}
		// Record even a cancelled run
		if err := store.SaveRun(context.WithoutCancel(ctx), summary, meta); err != nil {
			errs = append(errs, fmt.Sprintf("save run history: %v", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// suiteReportPath inserts the suite name before the extension:
// report.json becomes report-protocol.json.
func suiteReportPath(path, suite string) string {
	ext := filepath.Ext(path)
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, suite)
	return strings.TrimSuffix(path, ext) + "-" + slug + ext
}
