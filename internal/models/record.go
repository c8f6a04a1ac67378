package models

import (
	"fmt"
	"strings"
)

// Stream identifies which output channel of an engine produced a line.
type Stream int

const (
	// StreamStdout is the engine's standard output (or print callback).
	StreamStdout Stream = iota
	// StreamStderr is the engine's error output (or printErr callback).
	StreamStderr
)

// String returns the short tag used in transcripts.
func (s Stream) String() string {
	switch s {
	case StreamStdout:
		return "out"
	case StreamStderr:
		return "err"
	default:
		return "unknown"
	}
}

// Command is one protocol line sent to an engine. The harness never inspects it.
type Command string

// RawLine is a single line of engine output in arrival order.
type RawLine struct {
	Index  int    // Position in the session, across both streams
	Stream Stream // Originating stream
	Text   string // Line text without the trailing newline
}

// RecordKind tags the variant held by a ParsedRecord.
type RecordKind int

const (
	KindUnclassified RecordKind = iota
	KindIdentification
	KindProtocolReady
	KindSearchInfo
	KindBestMove
	KindNodeCount
	KindSearchTime
	KindTurnIndicator
	KindBoardDump
	KindFenLine
	KindErrorLine
)

var recordKindNames = map[RecordKind]string{
	KindUnclassified:   "unclassified",
	KindIdentification: "identification",
	KindProtocolReady:  "protocol-ready",
	KindSearchInfo:     "search-info",
	KindBestMove:       "bestmove",
	KindNodeCount:      "node-count",
	KindSearchTime:     "search-time",
	KindTurnIndicator:  "turn",
	KindBoardDump:      "board-dump",
	KindFenLine:        "fen",
	KindErrorLine:      "error-line",
}

// String returns the kind name used in suite files and reports.
func (k RecordKind) String() string {
	if name, ok := recordKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseRecordKind resolves a kind name as written in suite files.
func ParseRecordKind(name string) (RecordKind, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for kind, kindName := range recordKindNames {
		if kindName == normalized {
			return kind, nil
		}
	}
	return KindUnclassified, fmt.Errorf("unknown record kind %q", name)
}

// Ready tokens distinguishing the two ProtocolReady variants.
const (
	ReadyUCIOK   = "uciok"
	ReadyReadyOK = "readyok"
)

// Turn colours reported by TurnIndicator records.
const (
	ColorWhite = "white"
	ColorBlack = "black"
)

// ParsedRecord is a typed fact extracted from one or more RawLines.
// Only the fields belonging to Kind are meaningful.
type ParsedRecord struct {
	Kind      RecordKind
	FirstLine int    // Index of the first RawLine this record was derived from
	LastLine  int    // Index of the last RawLine (equal to FirstLine for single-line records)
	Text      string // Raw text the record was derived from, used for substring matching

	Name   string // Identification: engine name seen so far
	Author string // Identification: engine author seen so far

	Ready string // ProtocolReady: ReadyUCIOK or ReadyReadyOK

	Depth int // SearchInfo

	Move string // BestMove

	Nodes int64 // NodeCount

	Microseconds float64 // SearchTime

	Color string // TurnIndicator: ColorWhite or ColorBlack

	Lines []string // BoardDump, in arrival order

	FEN string // FenLine

	Terminated bool // BoardDump: span closed without a "board FEN" line
}

// String renders a compact description for logs and failure messages.
func (r ParsedRecord) String() string {
	switch r.Kind {
	case KindIdentification:
		return fmt.Sprintf("identification name=%q author=%q", r.Name, r.Author)
	case KindProtocolReady:
		return "protocol-ready " + r.Ready
	case KindSearchInfo:
		return fmt.Sprintf("search-info depth=%d", r.Depth)
	case KindBestMove:
		return "bestmove " + r.Move
	case KindNodeCount:
		return fmt.Sprintf("node-count %d", r.Nodes)
	case KindSearchTime:
		return fmt.Sprintf("search-time %gus", r.Microseconds)
	case KindTurnIndicator:
		return "turn " + r.Color
	case KindBoardDump:
		return fmt.Sprintf("board-dump %d lines", len(r.Lines))
	case KindFenLine:
		return "fen " + r.FEN
	default:
		return fmt.Sprintf("%s %q", r.Kind, r.Text)
	}
}
