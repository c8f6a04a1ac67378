package models

import "time"

// Verdict is the outcome of running one case.
type Verdict string

// Case verdicts
const (
	VerdictPass          Verdict = "pass"           // Every expectation satisfied
	VerdictFail          Verdict = "fail"           // Protocol violation: an expectation was not satisfied
	VerdictLaunchFailure Verdict = "launch-failure" // Endpoint could not start
	VerdictTimeout       Verdict = "timeout"        // Endpoint did not close within the budget
	VerdictError         Verdict = "error"          // Unexpected harness-side failure
)

// Valid reports whether v is a known verdict.
func (v Verdict) Valid() bool {
	switch v {
	case VerdictPass, VerdictFail, VerdictLaunchFailure, VerdictTimeout, VerdictError:
		return true
	}
	return false
}

// TestResult represents the result of running a single case
type TestResult struct {
	Case     TestCase
	Verdict  Verdict
	Passed   bool          // Verdict matched the case's wanted verdict
	Missing  []string      // Descriptions of unsatisfied expectations
	Error    error         // Launch, timeout or harness error, if any
	Duration time.Duration // Time from launch to validation

	BestMove    string
	Nodes       int64
	SearchTime  float64 // Microseconds
	FEN         string
	Turn        string
	Board       []string
	EngineError []string // Text of ErrorLine records (findings, not failures)
	Anomalies   []string // Classifier anomalies observed during the session

	Transcript []RawLine
}

// HasBestMove reports whether a best move was extracted.
func (r TestResult) HasBestMove() bool {
	return r.BestMove != ""
}

// Summary is the aggregate result of running a suite
type Summary struct {
	RunID     string
	Suite     string
	Total     int
	Passed    int
	Failed    int
	Findings  int // Cases that observed engine-reported error lines
	Duration  time.Duration
	StartedAt time.Time
	Results   []TestResult
	Failures  []TestResult
}

// AllPassed reports whether the suite had no failing case.
func (s Summary) AllPassed() bool {
	return s.Failed == 0
}
