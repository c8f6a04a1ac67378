package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/harrison/uciharness/internal/history"
)

// NewHistoryCommand creates the history subcommand
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded suite runs",
		Long: `Display runs recorded in the history database:
  - Recent runs with pass/fail counts (default)
  - The case results of one run (--run)
  - One case across runs, to spot regressions and flaky cases (--case)

Old runs can be pruned with --prune-days.`,
		Args: cobra.NoArgs,
		RunE: runHistory,
	}

	cmd.Flags().String("suite", "", "Only show runs of this suite")
	cmd.Flags().Int("limit", 20, "Maximum number of rows")
	cmd.Flags().String("run", "", "Show the case results of this run ID")
	cmd.Flags().String("case", "", "Show the results of this case across runs")
	cmd.Flags().Int("prune-days", 0, "Delete runs older than this many days")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	setHistoryColor(out)

	if _, err := os.Stat(cfg.History.DBPath); os.IsNotExist(err) {
		fmt.Fprintf(out, "No run history found.\n")
		fmt.Fprintf(out, "Database path: %s\n", cfg.History.DBPath)
		return nil
	}

	store, err := history.NewStore(cfg.History.DBPath)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	suite, _ := cmd.Flags().GetString("suite")
	limit, _ := cmd.Flags().GetInt("limit")
	runID, _ := cmd.Flags().GetString("run")
	caseName, _ := cmd.Flags().GetString("case")
	pruneDays, _ := cmd.Flags().GetInt("prune-days")

	if pruneDays > 0 {
		deleted, err := store.CleanupOldRuns(ctx, pruneDays)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Pruned %d run(s) older than %d day(s).\n", deleted, pruneDays)
		return nil
	}

	switch {
	case runID != "":
		cases, err := store.CaseResults(ctx, runID)
		if err != nil {
			return err
		}
		if len(cases) == 0 {
			return fmt.Errorf("no run with id %q", runID)
		}
		displayCaseResults(out, cases)
	case caseName != "":
		cases, err := store.CaseHistory(ctx, caseName, limit)
		if err != nil {
			return err
		}
		if len(cases) == 0 {
			fmt.Fprintf(out, "No results recorded for case %q.\n", caseName)
			return nil
		}
		displayCaseHistory(out, cases)
	default:
		runs, err := store.RecentRuns(ctx, suite, limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintf(out, "No runs recorded.\n")
			return nil
		}
		displayRuns(out, runs)
	}
	return nil
}

// setHistoryColor disables colour unless out is a terminal.
func setHistoryColor(out io.Writer) {
	f, ok := out.(*os.File)
	if !ok || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		color.NoColor = true
	}
}

func passFail(passed bool) string {
	if passed {
		return color.GreenString("PASS")
	}
	return color.RedString("FAIL")
}

func displayRuns(out io.Writer, runs []history.Run) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tSUITE\tSTARTED\tPASSED\tFINDINGS\tDURATION\tENGINE")
	for _, r := range runs {
		status := fmt.Sprintf("%d/%d", r.Passed, r.Total)
		if r.Failed > 0 {
			status = color.RedString(status)
		} else {
			status = color.GreenString(status)
		}
		engineDesc := strings.TrimSpace(r.Backend + " " + r.Target)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			r.RunID, r.Suite, r.StartedAt.Local().Format("2006-01-02 15:04:05"), status,
			r.Findings, r.Duration, engineDesc)
	}
	tw.Flush()
}

func displayCaseResults(out io.Writer, cases []history.CaseRecord) {
	fmt.Fprintf(out, "Run %s (%s)\n\n", cases[0].RunID, cases[0].StartedAt.Local().Format("2006-01-02 15:04:05"))
	for _, c := range cases {
		fmt.Fprintf(out, "%s %s [%s] %s", passFail(c.Passed), c.CaseName, c.Verdict, c.Duration)
		if c.BestMove != "" {
			fmt.Fprintf(out, " bestmove %s", c.BestMove)
		}
		fmt.Fprintln(out)
		for _, m := range c.Missing {
			fmt.Fprintf(out, "    - %s\n", m)
		}
		if c.ErrorMessage != "" {
			fmt.Fprintf(out, "    error: %s\n", c.ErrorMessage)
		}
		for _, e := range c.EngineErrors {
			fmt.Fprintf(out, "    engine reported: %s\n", e)
		}
	}
}

func displayCaseHistory(out io.Writer, cases []history.CaseRecord) {
	failures := 0
	for _, c := range cases {
		if !c.Passed {
			failures++
		}
	}
	fmt.Fprintf(out, "Case %q: %d failure(s) in last %d run(s)\n\n", cases[0].CaseName, failures, len(cases))

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tRESULT\tVERDICT\tBESTMOVE\tRUN ID")
	for _, c := range cases {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			c.StartedAt.Local().Format("2006-01-02 15:04:05"), passFail(c.Passed), c.Verdict, c.BestMove, c.RunID)
	}
	tw.Flush()
}
