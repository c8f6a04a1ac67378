package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// EngineOverride replaces parts of the configured engine for a single case.
// Zero fields keep the configured value.
type EngineOverride struct {
	Backend string   `yaml:"backend"`
	Path    string   `yaml:"path"`
	Args    []string `yaml:"args"`
	Module  string   `yaml:"module"`
}

// TestCase is one named scenario: a command script plus the expectations
// evaluated against the engine's output.
type TestCase struct {
	Name        string
	Description string
	SourceFile  string // Suite file the case was loaded from (empty for built-ins)

	Commands   []Command     // Explicit script; when empty the script is derived
	WhiteMoves []string      // Derived script: position startpos moves ...
	FEN        string        // Derived script: position fen ...
	Depth      int           // Derived script: go depth N
	MoveTime   time.Duration // Derived script: go movetime ms

	Expect         []string       // Substrings that must appear in classified output
	ExpectOrder    []string       // Substrings that must appear in this relative order
	ExpectCounts   map[string]int // Substring -> exact number of matching records
	AllowedMoves   []string       // Whitelist for the best move
	ExpectBestMove bool           // A well-formed best move must be reported
	ExpectTurn     string         // "white" or "black"
	ExpectNoErrors bool           // No ErrorLine records may appear
	ExpectSearch   bool           // bestmove ordering against info depth lines

	// ExpectVerdict is the verdict the case must end with to count as passed.
	// Empty means VerdictPass. Negative scenarios use launch-failure or timeout.
	ExpectVerdict Verdict

	// Timeout overrides the configured session budget when set. Zero is an
	// already-expired budget.
	Timeout *time.Duration
	Engine  *EngineOverride // Optional per-case engine override
}

// Validate checks if the case is runnable.
func (tc *TestCase) Validate() error {
	if strings.TrimSpace(tc.Name) == "" {
		return errors.New("case name is required")
	}
	if tc.Depth > 0 && tc.MoveTime > 0 {
		return fmt.Errorf("case %q: depth and movetime are mutually exclusive", tc.Name)
	}
	if tc.FEN != "" && len(tc.WhiteMoves) > 0 {
		return fmt.Errorf("case %q: fen and white_moves are mutually exclusive", tc.Name)
	}
	if len(tc.Commands) > 0 && (tc.FEN != "" || len(tc.WhiteMoves) > 0 || tc.Depth > 0 || tc.MoveTime > 0) {
		return fmt.Errorf("case %q: explicit commands cannot be combined with fen, white_moves, depth or movetime", tc.Name)
	}
	if tc.ExpectTurn != "" && tc.ExpectTurn != ColorWhite && tc.ExpectTurn != ColorBlack {
		return fmt.Errorf("case %q: expect_turn must be white or black, got %q", tc.Name, tc.ExpectTurn)
	}
	if tc.ExpectVerdict != "" && !tc.ExpectVerdict.Valid() {
		return fmt.Errorf("case %q: unknown expected verdict %q", tc.Name, tc.ExpectVerdict)
	}
	if tc.Timeout != nil && *tc.Timeout < 0 {
		return fmt.Errorf("case %q: timeout must be >= 0, got %v", tc.Name, *tc.Timeout)
	}
	return nil
}

// BuildCommands returns the script sent to the engine. Explicit commands are
// returned as given; otherwise the script is uci, a position command, an
// optional go command and quit.
func (tc *TestCase) BuildCommands() []Command {
	if len(tc.Commands) > 0 {
		out := make([]Command, len(tc.Commands))
		copy(out, tc.Commands)
		return out
	}

	cmds := []Command{"uci"}
	switch {
	case tc.FEN != "":
		cmds = append(cmds, Command("position fen "+strings.TrimSpace(tc.FEN)))
	case len(tc.WhiteMoves) > 0:
		cmds = append(cmds, Command("position startpos moves "+strings.Join(tc.WhiteMoves, " ")))
	default:
		cmds = append(cmds, "position startpos")
	}
	switch {
	case tc.Depth > 0:
		cmds = append(cmds, Command(fmt.Sprintf("go depth %d", tc.Depth)))
	case tc.MoveTime > 0:
		cmds = append(cmds, Command(fmt.Sprintf("go movetime %d", tc.MoveTime.Milliseconds())))
	}
	return append(cmds, "quit")
}

// GoCount returns how many searches the script requests.
func GoCount(cmds []Command) int {
	n := 0
	for _, c := range cmds {
		fields := strings.Fields(string(c))
		if len(fields) > 0 && fields[0] == "go" {
			n++
		}
	}
	return n
}

// Budget returns the session budget for the case given the configured default.
func (tc *TestCase) Budget(fallback time.Duration) time.Duration {
	if tc.Timeout != nil {
		return *tc.Timeout
	}
	return fallback
}

// WantedVerdict returns the verdict the case must finish with.
func (tc *TestCase) WantedVerdict() Verdict {
	if tc.ExpectVerdict == "" {
		return VerdictPass
	}
	return tc.ExpectVerdict
}
