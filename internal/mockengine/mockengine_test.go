package mockengine

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(e *Engine, cmds ...string) []string {
	var out []string
	emit := func(text string) { out = append(out, text) }
	for _, c := range cmds {
		if e.Handle(c, emit) {
			break
		}
	}
	return out
}

func TestHandshake(t *testing.T) {
	out := run(New(), "uci", "isready")
	require.Len(t, out, 5)
	assert.True(t, strings.HasPrefix(out[0], "id name "))
	assert.True(t, strings.HasPrefix(out[1], "id author "))
	assert.Equal(t, "uciok", out[3])
	assert.Equal(t, "readyok", out[4])
}

func TestQuitStopsHandling(t *testing.T) {
	out := run(New(), "quit", "isready")
	assert.Empty(t, out)
}

func TestUnknownCommand(t *testing.T) {
	out := run(New(), "xyzzy")
	assert.Equal(t, []string{"Unknown command: xyzzy"}, out)
}

func TestPositionAndFEN(t *testing.T) {
	e := New()
	assert.Equal(t, StartFEN, e.FEN())

	run(e, "position startpos moves a2a3 b7b6")
	assert.Equal(t, "rhfvsfhr/p1pppppp/1p6/8/8/P7/1PPPPPPP/RHFVSFHR w 0 2", e.FEN())

	fen := "rhfvsfhr/pppppppp/8/8/8/2P5/PP1PPPPP/RHFVSFHR b 0 1"
	run(e, "position fen "+fen)
	assert.Equal(t, fen, e.FEN())
}

func TestInvalidMoves(t *testing.T) {
	tests := []struct {
		name string
		cmd  string
	}{
		{"wrong side", "position startpos moves a7a6"},
		{"empty square", "position startpos moves d4d5"},
		{"bad square", "position startpos moves z9a1"},
		{"own piece", "position startpos moves a1a2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := run(New(), tt.cmd)
			require.Len(t, out, 1)
			assert.True(t, strings.HasPrefix(out[0], "invalid move"), out[0])
		})
	}
}

func TestBadFEN(t *testing.T) {
	e := New()
	out := run(e, "position fen 8/8/8 w 0 1")
	require.Len(t, out, 1)
	assert.True(t, strings.HasPrefix(out[0], "Error: invalid FEN"))
	assert.Equal(t, StartFEN, e.FEN(), "a rejected FEN leaves the position unchanged")
}

func TestSearchOutput(t *testing.T) {
	out := run(New(), "position startpos moves a2a3", "go depth 3")

	assert.True(t, strings.HasPrefix(out[0], "PickMoveInBoard took: "))
	assert.True(t, strings.HasPrefix(out[1], "nodes visited: "))
	assert.Equal(t, "  a b c d e f g h ", out[2])
	assert.Contains(t, out, "  current turn : black color Black which is lowercase")
	assert.Contains(t, out, "  board FEN : rhfvsfhr/pppppppp/8/8/8/P7/1PPPPPPP/RHFVSFHR b 0 1")

	n := len(out)
	assert.True(t, strings.HasPrefix(out[n-2], "info depth 3 "))
	assert.Equal(t, "bestmove a7a6", out[n-1])
}

func TestSearchWithoutMoves(t *testing.T) {
	out := run(New(), "position fen 8/8/8/8/8/8/8/8 w 0 1", "go depth 1")
	assert.Equal(t, "bestmove (none)", out[len(out)-1])
}

func TestServe(t *testing.T) {
	var out bytes.Buffer
	err := Serve(context.Background(), strings.NewReader("isready\nquit\nisready\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "readyok\n", out.String())
}
