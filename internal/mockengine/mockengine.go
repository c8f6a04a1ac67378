// Package mockengine is a deterministic reference engine that speaks the
// line protocol the harness tests. It tracks square occupancy and side to
// move so positions, turn reports and FEN dumps are consistent, but it knows
// no game rules: its "search" pushes the first pawn that has an empty square
// ahead of it.
package mockengine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/harrison/uciharness/internal/engine"
)

// ModuleName is the registry name of the in-process mock engine.
const ModuleName = "mock"

// StartFEN is the initial position.
const StartFEN = "rhfvsfhr/pppppppp/8/8/8/8/PPPPPPPP/RHFVSFHR w 0 1"

// Register adds the mock engine to reg.
func Register(reg *engine.Registry) {
	reg.Register(ModuleName, func() (engine.Module, error) {
		return Module, nil
	})
}

// Module runs the mock engine against a pull stdin.
func Module(ctx context.Context, mio engine.ModuleIO) error {
	e := New()
	var line strings.Builder
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		b, ok := mio.Stdin()
		if !ok {
			if line.Len() > 0 {
				e.Handle(line.String(), mio.Print)
			}
			return nil
		}
		if b != '\n' {
			line.WriteByte(b)
			continue
		}
		if quit := e.Handle(line.String(), mio.Print); quit {
			return nil
		}
		line.Reset()
	}
}

// Serve runs the mock engine over a reader and writer, for use as a subprocess.
func Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	e := New()
	bw := bufio.NewWriter(w)
	emit := func(text string) {
		bw.WriteString(text)
		bw.WriteByte('\n')
		bw.Flush()
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if quit := e.Handle(scanner.Text(), emit); quit {
			return nil
		}
	}
	return scanner.Err()
}

// Engine holds the mock position.
type Engine struct {
	board    [8][8]byte // [rank][file], rank 0 is rank 1
	black    bool       // Side to move
	halfMove int
	fullMove int
}

// New returns an engine at the start position.
func New() *Engine {
	e := &Engine{}
	if err := e.setFEN(StartFEN); err != nil {
		panic(err)
	}
	return e
}

// Handle processes one command line, printing responses. It returns true on quit.
func (e *Engine) Handle(line string, emit func(string)) bool {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return false
	}

	switch tokens[0] {
	case "uci":
		emit("id name MockShatranj 1.0")
		emit("id author uciharness")
		emit("option name Hash type spin default 16 min 1 max 1024")
		emit("uciok")
	case "isready":
		emit("readyok")
	case "ucinewgame":
		e.setFEN(StartFEN)
	case "position":
		e.position(tokens[1:], emit)
	case "go":
		e.search(tokens[1:], emit)
	case "stop":
	case "quit":
		return true
	default:
		emit("Unknown command: " + line)
	}
	return false
}

func (e *Engine) position(args []string, emit func(string)) {
	if len(args) == 0 {
		return
	}

	var rest []string
	switch args[0] {
	case "startpos":
		e.setFEN(StartFEN)
		rest = args[1:]
	case "fen":
		end := len(args)
		for i, a := range args {
			if a == "moves" {
				end = i
				break
			}
		}
		if err := e.setFEN(strings.Join(args[1:end], " ")); err != nil {
			emit("Error: " + err.Error())
			return
		}
		rest = args[end:]
	default:
		emit("Error: unknown position type " + args[0])
		return
	}

	if len(rest) == 0 || rest[0] != "moves" {
		return
	}
	for _, m := range rest[1:] {
		if err := e.play(m); err != nil {
			emit(fmt.Sprintf("invalid move %s: %v", m, err))
			return
		}
	}
}

func (e *Engine) search(args []string, emit func(string)) {
	depth := 6
	for i := 0; i+1 < len(args); i++ {
		if args[i] == "depth" {
			if n, err := strconv.Atoi(args[i+1]); err == nil && n > 0 {
				depth = n
			}
		}
	}

	start := time.Now()
	move, candidates := e.pickMove()
	nodes := candidates * depth
	elapsed := time.Since(start)

	emit(fmt.Sprintf("PickMoveInBoard took: %d us", elapsed.Microseconds()))
	emit(fmt.Sprintf("nodes visited: %d", nodes))
	for _, l := range e.dump() {
		emit(l)
	}
	if move == "" {
		emit("bestmove (none)")
		return
	}
	emit(fmt.Sprintf("info depth %d score cp 0 nodes %d time %d pv %s", depth, nodes, elapsed.Milliseconds(), move))
	emit("bestmove " + move)
}

// pickMove returns the first pawn push for the side to move and how many
// pawns could move.
func (e *Engine) pickMove() (string, int) {
	pawn, step := byte('P'), 1
	if e.black {
		pawn, step = 'p', -1
	}

	var first string
	count := 0
	for file := 0; file < 8; file++ {
		for rank := 0; rank < 8; rank++ {
			if e.board[rank][file] != pawn {
				continue
			}
			to := rank + step
			if to < 0 || to > 7 || e.board[to][file] != 0 {
				continue
			}
			count++
			if first == "" {
				first = square(file, rank) + square(file, to)
			}
		}
	}
	return first, count
}

func (e *Engine) play(move string) error {
	if len(move) != 4 && len(move) != 5 {
		return fmt.Errorf("bad length")
	}
	ff, fr, ok1 := parseSquare(move[0:2])
	tf, tr, ok2 := parseSquare(move[2:4])
	if !ok1 || !ok2 {
		return fmt.Errorf("bad square")
	}

	piece := e.board[fr][ff]
	if piece == 0 {
		return fmt.Errorf("no piece on %s", move[0:2])
	}
	if isBlack(piece) != e.black {
		return fmt.Errorf("piece on %s belongs to the side not on move", move[0:2])
	}
	target := e.board[tr][tf]
	if target != 0 && isBlack(target) == e.black {
		return fmt.Errorf("own piece on %s", move[2:4])
	}

	e.board[tr][tf] = piece
	e.board[fr][ff] = 0
	if target != 0 || piece == 'p' || piece == 'P' {
		e.halfMove = 0
	} else {
		e.halfMove++
	}
	if e.black {
		e.fullMove++
	}
	e.black = !e.black
	return nil
}

func (e *Engine) dump() []string {
	lines := []string{"  a b c d e f g h "}
	for rank := 7; rank >= 0; rank-- {
		var sb strings.Builder
		sb.WriteByte(byte('1' + rank))
		sb.WriteByte(' ')
		for file := 0; file < 8; file++ {
			if p := e.board[rank][file]; p != 0 {
				sb.WriteByte(p)
			} else {
				sb.WriteByte('.')
			}
			sb.WriteByte(' ')
		}
		lines = append(lines, sb.String())
	}

	turn := "  current turn : white color White which is uppercase"
	if e.black {
		turn = "  current turn : black color Black which is lowercase"
	}
	return append(lines,
		turn,
		fmt.Sprintf("  current move count : %d", e.fullMove),
		fmt.Sprintf("  half move count : %d", e.halfMove),
		"  board FEN : "+e.FEN(),
	)
}

// FEN renders the current position.
func (e *Engine) FEN() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			p := e.board[rank][file]
			if p == 0 {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteByte(p)
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}
	side := "w"
	if e.black {
		side = "b"
	}
	return fmt.Sprintf("%s %s %d %d", sb.String(), side, e.halfMove, e.fullMove)
}

func (e *Engine) setFEN(fen string) error {
	fields := strings.Fields(fen)
	if len(fields) < 2 {
		return fmt.Errorf("invalid FEN %q", fen)
	}

	var board [8][8]byte
	ranks := strings.Split(fields[0], "/")
	if len(ranks) != 8 {
		return fmt.Errorf("invalid FEN %q: want 8 ranks", fen)
	}
	for i, row := range ranks {
		rank := 7 - i
		file := 0
		for j := 0; j < len(row); j++ {
			c := row[j]
			switch {
			case c >= '1' && c <= '8':
				file += int(c - '0')
			case strings.IndexByte("rhfvspRHFVSP", c) >= 0:
				if file > 7 {
					return fmt.Errorf("invalid FEN %q: rank %d overflows", fen, rank+1)
				}
				board[rank][file] = c
				file++
			default:
				return fmt.Errorf("invalid FEN %q: unknown piece %q", fen, c)
			}
		}
		if file != 8 {
			return fmt.Errorf("invalid FEN %q: rank %d has %d files", fen, rank+1, file)
		}
	}

	var black bool
	switch fields[1] {
	case "w":
	case "b":
		black = true
	default:
		return fmt.Errorf("invalid FEN %q: side %q", fen, fields[1])
	}

	half, full := 0, 1
	if len(fields) > 2 {
		half, _ = strconv.Atoi(fields[2])
	}
	if len(fields) > 3 {
		full, _ = strconv.Atoi(fields[3])
	}

	e.board, e.black, e.halfMove, e.fullMove = board, black, half, full
	return nil
}

func isBlack(piece byte) bool {
	return piece >= 'a' && piece <= 'z'
}

func square(file, rank int) string {
	return string([]byte{byte('a' + file), byte('1' + rank)})
}

func parseSquare(s string) (file, rank int, ok bool) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return 0, 0, false
	}
	return int(s[0] - 'a'), int(s[1] - '1'), true
}
