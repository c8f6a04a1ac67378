package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/uciharness/internal/models"
	"github.com/harrison/uciharness/internal/suites"
)

// NewValidateCommand creates and returns the validate subcommand
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <suite>...",
		Short: "Validate suite files without launching an engine",
		Long: `Parse and validate suites, checking for:
  - Cases without a name or without commands
  - Duplicate case names
  - Unknown expected verdicts and malformed expectations
  - Files in suite directories that are not suites

Each argument is a built-in suite name, a suite file or a directory.

Exit code: 0 if valid, 1 if errors found`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateSuites(args, cmd.OutOrStdout())
		},
	}

	return cmd
}

// validateSuites validates every reference and reports each result to output.
func validateSuites(refs []string, output io.Writer) error {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	invalid := 0
	for _, ref := range refs {
		suite, err := suites.Resolve(ref)
		if err == nil {
			err = suite.Validate()
		}
		warnIgnoredFiles(output, ref)

		if err != nil {
			invalid++
			fmt.Fprintf(output, "%s %s\n", red("✗"), ref)
			for _, line := range errorLines(err) {
				fmt.Fprintf(output, "    - %s\n", line)
			}
			continue
		}
		fmt.Fprintf(output, "%s %s: %s\n", green("✓"), ref, describeSuite(suite))
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d suite(s) invalid", invalid, len(refs))
	}
	return nil
}

func describeSuite(s *models.Suite) string {
	return fmt.Sprintf("suite %q, %d case(s) valid", s.Name, len(s.Cases))
}

// errorLines flattens joined errors into one message per problem.
func errorLines(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var lines []string
		for _, e := range joined.Unwrap() {
			lines = append(lines, errorLines(e)...)
		}
		return lines
	}
	return strings.Split(err.Error(), "\n")
}

// NewListCommand creates the list subcommand
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the built-in suites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			all, err := suites.All()
			if err != nil {
				return err
			}
			for _, s := range all {
				fmt.Fprintf(out, "%-16s %2d case(s)  %s\n", s.Name, len(s.Cases), s.Description)
			}
			return nil
		},
	}
}
