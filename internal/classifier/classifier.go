// Package classifier turns raw engine output into typed records.
//
// The engine's output has no framing or escaping, so classification is a
// fixed table of substring rules applied in order, first match wins. The only
// multi-line construct is the board dump, tracked by a two-state machine
// (outside-board, inside-board): a span opens at the column-label header or a
// rank line and closes at the "board FEN :" line.
package classifier

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/harrison/uciharness/internal/models"
)

// Markers matched against engine output.
const (
	MarkerFEN         = "board FEN :"
	MarkerBoardHeader = "a b c d e f g h"
	MarkerInvalidMove = "invalid move"
	MarkerError       = "Error"
	MarkerIDName      = "id name"
	MarkerIDAuthor    = "id author"
	MarkerInfoDepth   = "info depth"
	MarkerBestMove    = "bestmove"
	MarkerNodes       = "nodes visited:"
	MarkerTook        = "took:"
	MarkerTurn        = "current turn"
)

var (
	rankLinePattern = regexp.MustCompile(`^[1-8]\s`)
	integerPattern  = regexp.MustCompile(`\d+`)
	floatPattern    = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

// State is the board-span state of the classifier.
type State int

const (
	OutsideBoard State = iota
	InsideBoard
)

func (s State) String() string {
	if s == InsideBoard {
		return "inside-board"
	}
	return "outside-board"
}

// AnomalyKind categorises non-fatal irregularities in engine output.
type AnomalyKind string

const (
	// AnomalyOverlappingBoard: a header line arrived while a span was open.
	AnomalyOverlappingBoard AnomalyKind = "overlapping-board"
	// AnomalyBoardWithoutFEN: a span ended without its "board FEN" line.
	AnomalyBoardWithoutFEN AnomalyKind = "board-without-fen"
	// AnomalyAmbiguousTurn: a turn line named both colours or neither.
	AnomalyAmbiguousTurn AnomalyKind = "ambiguous-turn"
)

// Anomaly is logged, never fatal.
type Anomaly struct {
	Kind    AnomalyKind
	Line    int
	Message string
}

func (a Anomaly) String() string {
	return fmt.Sprintf("line %d: %s: %s", a.Line, a.Kind, a.Message)
}

// Classifier is a single-pass stateful transducer. One instance belongs to
// one session; it is not safe for concurrent use.
type Classifier struct {
	state     State
	span      []string
	spanFirst int
	spanLast  int
	turnLine  int // Index of a "current turn" line inside the open span, -1 if none
	turnText  string

	name   string
	author string

	anomalies []Anomaly
}

// New returns a classifier in the outside-board state.
func New() *Classifier {
	return &Classifier{turnLine: -1}
}

// State returns the current board-span state.
func (c *Classifier) State() State {
	return c.state
}

// Anomalies returns the irregularities seen so far.
func (c *Classifier) Anomalies() []Anomaly {
	return c.anomalies
}

// Classify consumes one line and returns the records it completes. Most
// lines yield one record; board lines yield none until their span closes.
func (c *Classifier) Classify(line models.RawLine) []models.ParsedRecord {
	text := line.Text
	if strings.TrimSpace(text) == "" {
		return nil
	}

	// Rule 1: the FEN line closes an open span.
	if idx := strings.Index(text, MarkerFEN); idx >= 0 {
		var out []models.ParsedRecord
		if c.state == InsideBoard {
			c.appendSpan(line)
			out = c.closeSpan(false)
		}
		fen := strings.TrimSpace(text[idx+len(MarkerFEN):])
		return append(out, c.single(models.KindFenLine, line, func(r *models.ParsedRecord) {
			r.FEN = fen
		}))
	}

	// Rule 2: header or rank line opens or continues a span.
	isHeader := strings.Contains(text, MarkerBoardHeader)
	if isHeader || rankLinePattern.MatchString(text) {
		var out []models.ParsedRecord
		if isHeader && c.state == InsideBoard {
			c.anomalies = append(c.anomalies, Anomaly{
				Kind:    AnomalyOverlappingBoard,
				Line:    line.Index,
				Message: fmt.Sprintf("new board header while span from line %d is open", c.spanFirst),
			})
			out = c.closeSpan(true)
		}
		if c.state == OutsideBoard {
			c.state = InsideBoard
			c.span = nil
			c.spanFirst = line.Index
			c.turnLine = -1
		}
		c.appendSpan(line)
		return out
	}

	// Rule 3: any other line inside an open span belongs to it.
	if c.state == InsideBoard {
		c.appendSpan(line)
		if strings.Contains(text, MarkerTurn) && c.turnLine < 0 {
			c.turnLine = line.Index
			c.turnText = text
		}
		return nil
	}

	return []models.ParsedRecord{c.classifyLine(line)}
}

// classifyLine applies rules 4 to 12 to a line outside any board span.
func (c *Classifier) classifyLine(line models.RawLine) models.ParsedRecord {
	text := line.Text

	switch {
	case strings.Contains(text, MarkerInvalidMove) || strings.Contains(text, MarkerError):
		return c.single(models.KindErrorLine, line, nil)

	case strings.Contains(text, MarkerIDName) || strings.Contains(text, MarkerIDAuthor):
		if idx := strings.Index(text, MarkerIDName); idx >= 0 {
			c.name = strings.TrimSpace(text[idx+len(MarkerIDName):])
		} else if idx := strings.Index(text, MarkerIDAuthor); idx >= 0 {
			c.author = strings.TrimSpace(text[idx+len(MarkerIDAuthor):])
		}
		return c.single(models.KindIdentification, line, func(r *models.ParsedRecord) {
			r.Name = c.name
			r.Author = c.author
		})

	case strings.Contains(text, models.ReadyUCIOK):
		return c.single(models.KindProtocolReady, line, func(r *models.ParsedRecord) {
			r.Ready = models.ReadyUCIOK
		})

	case strings.Contains(text, models.ReadyReadyOK):
		return c.single(models.KindProtocolReady, line, func(r *models.ParsedRecord) {
			r.Ready = models.ReadyReadyOK
		})

	case strings.Contains(text, MarkerInfoDepth):
		return c.single(models.KindSearchInfo, line, func(r *models.ParsedRecord) {
			r.Depth = firstInt(text[strings.Index(text, MarkerInfoDepth)+len(MarkerInfoDepth):])
		})

	case strings.Contains(text, MarkerBestMove):
		return c.single(models.KindBestMove, line, func(r *models.ParsedRecord) {
			r.Move = bestMoveToken(text)
		})

	case strings.Contains(text, MarkerNodes):
		return c.single(models.KindNodeCount, line, func(r *models.ParsedRecord) {
			r.Nodes = int64(firstInt(text[strings.Index(text, MarkerNodes)+len(MarkerNodes):]))
		})

	case strings.Contains(text, MarkerTook):
		return c.single(models.KindSearchTime, line, func(r *models.ParsedRecord) {
			r.Microseconds = firstFloat(text[strings.Index(text, MarkerTook)+len(MarkerTook):])
		})

	case strings.Contains(text, MarkerTurn):
		if color, ok := c.turnColor(text, line.Index); ok {
			return c.single(models.KindTurnIndicator, line, func(r *models.ParsedRecord) {
				r.Color = color
			})
		}
	}

	return c.single(models.KindUnclassified, line, nil)
}

// Finish flushes a span left open at end of output.
func (c *Classifier) Finish() []models.ParsedRecord {
	if c.state != InsideBoard {
		return nil
	}
	c.anomalies = append(c.anomalies, Anomaly{
		Kind:    AnomalyBoardWithoutFEN,
		Line:    c.spanLast,
		Message: fmt.Sprintf("board span from line %d ended with the output", c.spanFirst),
	})
	return c.closeSpan(true)
}

func (c *Classifier) appendSpan(line models.RawLine) {
	c.span = append(c.span, line.Text)
	c.spanLast = line.Index
}

// closeSpan emits the BoardDump and, when the span carried a turn report,
// the TurnIndicator derived from it.
func (c *Classifier) closeSpan(terminated bool) []models.ParsedRecord {
	out := []models.ParsedRecord{{
		Kind:       models.KindBoardDump,
		FirstLine:  c.spanFirst,
		LastLine:   c.spanLast,
		Text:       strings.Join(c.span, "\n"),
		Lines:      c.span,
		Terminated: terminated,
	}}
	if c.turnLine >= 0 {
		if color, ok := c.turnColor(c.turnText, c.turnLine); ok {
			out = append(out, models.ParsedRecord{
				Kind:      models.KindTurnIndicator,
				FirstLine: c.turnLine,
				LastLine:  c.turnLine,
				Text:      c.turnText,
				Color:     color,
			})
		}
	}

	c.state = OutsideBoard
	c.span = nil
	c.turnLine = -1
	c.turnText = ""
	return out
}

// turnColor decides the colour of a turn line, recording an anomaly when
// both or neither colour word is present.
func (c *Classifier) turnColor(text string, index int) (string, bool) {
	lower := strings.ToLower(text)
	black := strings.Contains(lower, models.ColorBlack)
	white := strings.Contains(lower, models.ColorWhite)
	switch {
	case black && !white:
		return models.ColorBlack, true
	case white && !black:
		return models.ColorWhite, true
	}
	c.anomalies = append(c.anomalies, Anomaly{
		Kind:    AnomalyAmbiguousTurn,
		Line:    index,
		Message: fmt.Sprintf("cannot decide colour from %q", strings.TrimSpace(text)),
	})
	return "", false
}

func (c *Classifier) single(kind models.RecordKind, line models.RawLine, fill func(*models.ParsedRecord)) models.ParsedRecord {
	r := models.ParsedRecord{
		Kind:      kind,
		FirstLine: line.Index,
		LastLine:  line.Index,
		Text:      line.Text,
	}
	if fill != nil {
		fill(&r)
	}
	return r
}

// bestMoveToken returns the whitespace-delimited token after "bestmove".
func bestMoveToken(text string) string {
	fields := strings.Fields(text[strings.Index(text, MarkerBestMove):])
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}

func firstInt(s string) int {
	m := integerPattern.FindString(s)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

func firstFloat(s string) float64 {
	m := floatPattern.FindString(s)
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return f
}

// ClassifyAll runs a fresh classifier over lines, including the final flush.
func ClassifyAll(lines []models.RawLine) ([]models.ParsedRecord, []Anomaly) {
	c := New()
	var records []models.ParsedRecord
	for _, line := range lines {
		records = append(records, c.Classify(line)...)
	}
	records = append(records, c.Finish()...)
	return records, c.Anomalies()
}
