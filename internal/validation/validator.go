// Package validation evaluates expectations against the records classified
// from one session. A case passes only when every expectation is satisfied;
// there is no partial credit.
package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/harrison/uciharness/internal/models"
)

// ErrProtocolViolation is wrapped by Report.Err when an expectation failed.
var ErrProtocolViolation = errors.New("protocol violation")

// Status is the outcome of one expectation.
type Status string

const (
	StatusFound    Status = "found"
	StatusMissing  Status = "missing"  // Nothing in the output matched
	StatusAbsent   Status = "absent"   // The record a predicate inspects was never produced
	StatusMismatch Status = "mismatch" // The record exists but has the wrong value
)

// Outcome pairs an expectation with its status.
type Outcome struct {
	Expectation string
	Status      Status
	Detail      string
}

func (o Outcome) String() string {
	if o.Detail == "" {
		return fmt.Sprintf("%s: %s", o.Expectation, o.Status)
	}
	return fmt.Sprintf("%s: %s (%s)", o.Expectation, o.Status, o.Detail)
}

// Report is the result of checking one session.
type Report struct {
	Outcomes []Outcome
	Found    []string
	Missing  []string
	Verdict  models.Verdict
}

// Passed reports whether every expectation was satisfied.
func (r Report) Passed() bool {
	return r.Verdict == models.VerdictPass
}

// Err returns nil on pass, otherwise an error wrapping ErrProtocolViolation
// that lists the unsatisfied expectations.
func (r Report) Err() error {
	if r.Passed() {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrProtocolViolation, strings.Join(r.Missing, "; "))
}

// Check evaluates every expectation. All are evaluated even after a failure
// so the report enumerates everything that is missing.
func Check(records []models.ParsedRecord, expectations []Expectation) Report {
	report := Report{Verdict: models.VerdictPass}
	for _, exp := range expectations {
		status, detail := exp.Evaluate(records)
		outcome := Outcome{Expectation: exp.Describe(), Status: status, Detail: detail}
		report.Outcomes = append(report.Outcomes, outcome)

		if status == StatusFound {
			report.Found = append(report.Found, outcome.Expectation)
			continue
		}
		report.Missing = append(report.Missing, outcome.String())
		report.Verdict = models.VerdictFail
	}
	return report
}

// FromCase builds the expectations declared on tc.
func FromCase(tc *models.TestCase) []Expectation {
	var exps []Expectation
	for _, sub := range tc.Expect {
		exps = append(exps, Contains{Substring: sub})
	}
	if len(tc.ExpectOrder) > 0 {
		exps = append(exps, Ordered{Substrings: tc.ExpectOrder})
	}
	if len(tc.ExpectCounts) > 0 {
		keys := make([]string, 0, len(tc.ExpectCounts))
		for k := range tc.ExpectCounts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			exps = append(exps, Count{Substring: k, N: tc.ExpectCounts[k]})
		}
	}
	if tc.ExpectBestMove {
		exps = append(exps, BestMoveShape{})
	}
	if len(tc.AllowedMoves) > 0 {
		exps = append(exps, BestMoveIn{Allowed: tc.AllowedMoves})
	}
	if tc.ExpectTurn != "" {
		exps = append(exps, TurnIs{Color: tc.ExpectTurn})
	}
	if tc.ExpectNoErrors {
		exps = append(exps, NoErrors{})
	}
	if tc.ExpectSearch {
		exps = append(exps, SearchCompleted{Searches: models.GoCount(tc.BuildCommands())})
	}
	return exps
}
