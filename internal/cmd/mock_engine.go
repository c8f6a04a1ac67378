package cmd

import (
	"github.com/spf13/cobra"

	"github.com/harrison/uciharness/internal/mockengine"
)

// NewMockEngineCommand creates the hidden mock-engine subcommand, which
// serves the reference engine on stdin/stdout so the subprocess backend
// can be exercised without an external engine.
func NewMockEngineCommand() *cobra.Command {
	return &cobra.Command{
		Use:    "mock-engine",
		Short:  "Serve the reference mock engine on stdin/stdout",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mockengine.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
