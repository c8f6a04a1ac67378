package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harrison/uciharness/internal/engine"
	"github.com/harrison/uciharness/internal/logger"
	"github.com/harrison/uciharness/internal/worker"
)

// NewBestMoveCommand creates the bestmove subcommand
func NewBestMoveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bestmove",
		Short: "Ask the engine for one best move",
		Long: `Run a single best-move request and print the worker reply message:
{"from":"e2","to":"e4"} on success, null otherwise.

Exactly one of --depth and --think-time must be given. With --stdin the
request is read as one JSON message ({"moveSeq", "thinkTime", "depth"})
and answered like a worker would, always exiting zero.

Examples:
  uciharness bestmove --moves "a2a3 a7a6" --depth 3
  echo '{"thinkTime": 0.5}' | uciharness bestmove --stdin`,
		Args: cobra.NoArgs,
		RunE: runBestMove,
	}

	cmd.Flags().String("moves", "", "Space separated moves from the start position")
	cmd.Flags().Int("depth", 0, "Search depth")
	cmd.Flags().Float64("think-time", 0, "Search time in seconds")
	cmd.Flags().Bool("stdin", false, "Read the request message from stdin")

	return cmd
}

func runBestMove(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	epCfg, err := cfg.EndpointConfig(newRegistry())
	if err != nil {
		return err
	}
	if epCfg.Backend == engine.BackendInProcess {
		// Module engines answer single requests from the worker host
		epCfg.Backend = engine.BackendWorker
	}

	// Diagnostics go to stderr so stdout carries only the reply message
	log := logger.NewConsoleLogger(os.Stderr, cfg.LogLevel)
	bridge := worker.NewBridge(epCfg, cfg.Timeout, log)
	out := cmd.OutOrStdout()

	if useStdin, _ := cmd.Flags().GetBool("stdin"); useStdin {
		return bridge.Serve(cmd.Context(), cmd.InOrStdin(), out)
	}

	var req worker.Request
	req.MoveSeq, _ = cmd.Flags().GetString("moves")
	if cmd.Flags().Changed("depth") {
		depth, _ := cmd.Flags().GetInt("depth")
		req.Depth = &depth
	}
	if cmd.Flags().Changed("think-time") {
		thinkTime, _ := cmd.Flags().GetFloat64("think-time")
		req.ThinkTime = &thinkTime
	}

	move, moveErr := bridge.BestMove(cmd.Context(), req)
	if err := json.NewEncoder(out).Encode(move); err != nil {
		return fmt.Errorf("write reply: %w", err)
	}
	if moveErr != nil {
		return fmt.Errorf("best move: %w", moveErr)
	}
	return nil
}
