// Package worker answers single best-move requests by running an engine
// module on a worker-hosted endpoint. It is the one-shot counterpart of a
// session: commands are pre-joined into one pull buffer and only the first
// reported best move is returned.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harrison/uciharness/internal/classifier"
	"github.com/harrison/uciharness/internal/engine"
	"github.com/harrison/uciharness/internal/models"
	"github.com/harrison/uciharness/internal/session"
)

var (
	// ErrBudget is returned when a request sets both or neither of thinkTime and depth.
	ErrBudget = errors.New("exactly one of thinkTime and depth is required")
	// ErrNoBestMove is returned when the engine ended without a usable best move.
	ErrNoBestMove = errors.New("engine produced no best move")
)

// Request is one inbound worker message.
type Request struct {
	MoveSeq   string   `json:"moveSeq,omitempty"`   // Space separated moves from the start position
	ThinkTime *float64 `json:"thinkTime,omitempty"` // Seconds
	Depth     *int     `json:"depth,omitempty"`
}

// Move is the outbound worker message.
type Move struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (m Move) String() string {
	return m.From + m.To
}

// Commands synthesises the script for req.
func (req Request) Commands() ([]models.Command, error) {
	if (req.ThinkTime == nil) == (req.Depth == nil) {
		return nil, ErrBudget
	}

	cmds := []models.Command{"uci"}
	if moves := strings.Fields(req.MoveSeq); len(moves) > 0 {
		cmds = append(cmds, models.Command("position startpos moves "+strings.Join(moves, " ")))
	} else {
		cmds = append(cmds, "position startpos")
	}

	if req.Depth != nil {
		if *req.Depth <= 0 {
			return nil, fmt.Errorf("depth must be positive, got %d", *req.Depth)
		}
		cmds = append(cmds, models.Command(fmt.Sprintf("go depth %d", *req.Depth)))
	} else {
		if *req.ThinkTime <= 0 {
			return nil, fmt.Errorf("thinkTime must be positive, got %v", *req.ThinkTime)
		}
		// A positive think time never becomes "go movetime 0".
		ms := max(int64(*req.ThinkTime*1000), 1)
		cmds = append(cmds, models.Command(fmt.Sprintf("go movetime %d", ms)))
	}
	return append(cmds, "quit"), nil
}

// Bridge runs best-move requests against a fresh endpoint each time.
type Bridge struct {
	cfg     engine.Config
	timeout time.Duration
	logger  session.Logger
}

// NewBridge creates a Bridge. An empty backend in cfg selects the worker backend.
// The logger parameter is optional and can be nil.
func NewBridge(cfg engine.Config, timeout time.Duration, logger session.Logger) *Bridge {
	if cfg.Backend == "" {
		cfg.Backend = engine.BackendWorker
	}
	return &Bridge{cfg: cfg, timeout: timeout, logger: logger}
}

// BestMove runs req and returns the first best move split into squares.
// Any failure, including a missing or malformed best move, returns a nil
// Move and an error.
func (b *Bridge) BestMove(ctx context.Context, req Request) (*Move, error) {
	cmds, err := req.Commands()
	if err != nil {
		return nil, err
	}

	ep, err := engine.Start(ctx, b.cfg)
	if err != nil {
		return nil, err
	}
	defer ep.Terminate()

	for _, cmd := range cmds {
		if err := ep.Send(cmd); err != nil {
			return nil, fmt.Errorf("send %q: %w", cmd, err)
		}
	}
	if err := ep.CloseInput(); err != nil {
		return nil, fmt.Errorf("close input: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	cls := classifier.New()
	index := 0
	lines := ep.Lines()
	for {
		if ctx.Err() != nil {
			return nil, b.abortErr(ctx)
		}
		select {
		case line, ok := <-lines:
			if !ok {
				return nil, ErrNoBestMove
			}
			line.Index = index
			index++
			for _, rec := range cls.Classify(line) {
				switch rec.Kind {
				case models.KindBestMove:
					return splitMove(rec.Move)
				case models.KindErrorLine:
					b.warn("engine error: " + strings.TrimSpace(rec.Text))
				}
			}
		case <-ctx.Done():
			return nil, b.abortErr(ctx)
		}
	}
}

func (b *Bridge) abortErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %v", session.ErrTimeout, b.timeout)
	}
	return ctx.Err()
}

func (b *Bridge) warn(msg string) {
	if b.logger != nil {
		b.logger.LogWarn(msg)
	}
}

// splitMove turns a move token into squares. A promotion suffix is dropped.
func splitMove(move string) (*Move, error) {
	if len(move) < 4 || !isSquare(move[0:2]) || !isSquare(move[2:4]) {
		return nil, fmt.Errorf("%w: got %q", ErrNoBestMove, move)
	}
	return &Move{From: move[0:2], To: move[2:4]}, nil
}

func isSquare(s string) bool {
	return s[0] >= 'a' && s[0] <= 'h' && s[1] >= '1' && s[1] <= '8'
}
