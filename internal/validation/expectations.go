package validation

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/harrison/uciharness/internal/models"
)

// movePattern is the square-pair shape of a well-formed best move.
var movePattern = regexp.MustCompile(`^[a-h][1-8][a-h][1-8][a-z]?$`)

// Expectation is a single assertion over a session's records.
type Expectation interface {
	// Describe names the expectation in reports.
	Describe() string
	// Evaluate returns the status and, for anything but StatusFound, a detail.
	Evaluate(records []models.ParsedRecord) (Status, string)
}

// matchable reports whether a record takes part in substring matching.
// Unclassified lines never satisfy an expectation.
func matchable(r models.ParsedRecord) bool {
	return r.Kind != models.KindUnclassified
}

// Contains requires some classified record's text to contain Substring.
type Contains struct {
	Substring string
}

func (c Contains) Describe() string {
	return fmt.Sprintf("output contains %q", c.Substring)
}

func (c Contains) Evaluate(records []models.ParsedRecord) (Status, string) {
	for _, r := range records {
		if matchable(r) && strings.Contains(r.Text, c.Substring) {
			return StatusFound, ""
		}
	}
	return StatusMissing, "no classified line matched"
}

// Ordered requires each substring to be matched by a record that starts
// after the record matching the previous one.
type Ordered struct {
	Substrings []string
}

func (o Ordered) Describe() string {
	return fmt.Sprintf("output contains in order %s", quoteAll(o.Substrings))
}

func (o Ordered) Evaluate(records []models.ParsedRecord) (Status, string) {
	after := -1
	for i, sub := range o.Substrings {
		found := -1
		for _, r := range records {
			if matchable(r) && r.FirstLine > after && strings.Contains(r.Text, sub) {
				found = r.FirstLine
				break
			}
		}
		if found < 0 {
			if i == 0 {
				return StatusMissing, fmt.Sprintf("%q never appeared", sub)
			}
			return StatusMissing, fmt.Sprintf("%q did not appear after %q", sub, o.Substrings[i-1])
		}
		after = found
	}
	return StatusFound, ""
}

// Count requires exactly N classified records containing Substring.
type Count struct {
	Substring string
	N         int
}

func (c Count) Describe() string {
	return fmt.Sprintf("output contains %q exactly %d time(s)", c.Substring, c.N)
}

func (c Count) Evaluate(records []models.ParsedRecord) (Status, string) {
	got := 0
	for _, r := range records {
		if matchable(r) && strings.Contains(r.Text, c.Substring) {
			got++
		}
	}
	switch {
	case got == c.N:
		return StatusFound, ""
	case got == 0:
		return StatusMissing, "no classified line matched"
	default:
		return StatusMismatch, fmt.Sprintf("matched %d time(s)", got)
	}
}

// BestMoveIn requires the first best move to be one of Allowed.
type BestMoveIn struct {
	Allowed []string
}

func (b BestMoveIn) Describe() string {
	return fmt.Sprintf("bestmove in %s", quoteAll(b.Allowed))
}

func (b BestMoveIn) Evaluate(records []models.ParsedRecord) (Status, string) {
	best, ok := FirstBestMove(records)
	if !ok {
		return StatusAbsent, "no bestmove reported"
	}
	if slices.Contains(b.Allowed, best.Move) {
		return StatusFound, ""
	}
	return StatusMismatch, fmt.Sprintf("got %q", best.Move)
}

// BestMoveShape requires a best move and every reported best move to be a
// square pair with an optional promotion letter.
type BestMoveShape struct{}

func (BestMoveShape) Describe() string {
	return "bestmove is a well-formed square pair"
}

func (BestMoveShape) Evaluate(records []models.ParsedRecord) (Status, string) {
	seen := false
	for _, r := range records {
		if r.Kind != models.KindBestMove {
			continue
		}
		seen = true
		if !movePattern.MatchString(r.Move) {
			return StatusMismatch, fmt.Sprintf("got %q", r.Move)
		}
	}
	if !seen {
		return StatusAbsent, "no bestmove reported"
	}
	return StatusFound, ""
}

// TurnIs requires the side to move reported before the first best move
// (or the last one reported, when there is no best move) to be Color.
type TurnIs struct {
	Color string
}

func (t TurnIs) Describe() string {
	return fmt.Sprintf("turn indicator reports %s", t.Color)
}

func (t TurnIs) Evaluate(records []models.ParsedRecord) (Status, string) {
	limit := -1
	if best, ok := FirstBestMove(records); ok {
		limit = best.FirstLine
	}

	var turn *models.ParsedRecord
	for i := range records {
		r := &records[i]
		if r.Kind != models.KindTurnIndicator {
			continue
		}
		if limit >= 0 && r.LastLine > limit {
			break
		}
		turn = r
	}
	if turn == nil {
		return StatusAbsent, "no turn indicator reported"
	}
	if turn.Color != t.Color {
		return StatusMismatch, fmt.Sprintf("got %s", turn.Color)
	}
	return StatusFound, ""
}

// NoErrors requires no ErrorLine records.
type NoErrors struct{}

func (NoErrors) Describe() string {
	return "no error lines"
}

func (NoErrors) Evaluate(records []models.ParsedRecord) (Status, string) {
	for _, r := range records {
		if r.Kind == models.KindErrorLine {
			return StatusMismatch, fmt.Sprintf("line %d: %s", r.FirstLine, strings.TrimSpace(r.Text))
		}
	}
	return StatusFound, ""
}

// SearchCompleted requires at most one best move per go command, at least
// one best move, and every search info line to precede the best move that
// ends its search.
type SearchCompleted struct {
	Searches int // Number of go commands sent
}

func (s SearchCompleted) Describe() string {
	return fmt.Sprintf("%d search(es) end with a bestmove after their info lines", s.Searches)
}

func (s SearchCompleted) Evaluate(records []models.ParsedRecord) (Status, string) {
	bestMoves := 0
	lastBest, lastInfo := -1, -1
	for _, r := range records {
		switch r.Kind {
		case models.KindBestMove:
			bestMoves++
			lastBest = r.FirstLine
		case models.KindSearchInfo:
			lastInfo = r.FirstLine
		}
	}

	switch {
	case bestMoves == 0:
		return StatusAbsent, "no bestmove reported"
	case s.Searches > 0 && bestMoves > s.Searches:
		return StatusMismatch, fmt.Sprintf("%d bestmove lines for %d search(es)", bestMoves, s.Searches)
	case bestMoves >= s.Searches && lastInfo > lastBest:
		return StatusMismatch, fmt.Sprintf("info line %d arrived after the final bestmove on line %d", lastInfo, lastBest)
	}
	return StatusFound, ""
}

// FirstBestMove returns the first BestMove record.
func FirstBestMove(records []models.ParsedRecord) (models.ParsedRecord, bool) {
	for _, r := range records {
		if r.Kind == models.KindBestMove {
			return r, true
		}
	}
	return models.ParsedRecord{}, false
}

func quoteAll(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = fmt.Sprintf("%q", item)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
