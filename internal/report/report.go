// Package report writes machine-readable JSON reports of suite runs.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/harrison/uciharness/internal/models"
)

// Report is the JSON document written after a run.
type Report struct {
	RunID      string       `json:"run_id"`
	Suite      string       `json:"suite"`
	Backend    string       `json:"backend,omitempty"`
	Target     string       `json:"target,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	DurationMS int64        `json:"duration_ms"`
	Total      int          `json:"total"`
	Passed     int          `json:"passed"`
	Failed     int          `json:"failed"`
	Findings   int          `json:"findings"`
	Cases      []CaseReport `json:"cases"`
}

// CaseReport is the per-case entry of a Report.
type CaseReport struct {
	Name          string   `json:"name"`
	Verdict       string   `json:"verdict"`
	WantedVerdict string   `json:"wanted_verdict"`
	Passed        bool     `json:"passed"`
	DurationMS    int64    `json:"duration_ms"`
	BestMove      string   `json:"bestmove,omitempty"`
	Turn          string   `json:"turn,omitempty"`
	FEN           string   `json:"fen,omitempty"`
	Nodes         int64    `json:"nodes,omitempty"`
	Missing       []string `json:"missing,omitempty"`
	EngineErrors  []string `json:"engine_errors,omitempty"`
	Anomalies     []string `json:"anomalies,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// FromSummary builds a Report. backend and target describe the engine under test.
func FromSummary(summary *models.Summary, backend, target string) *Report {
	r := &Report{
		RunID:      summary.RunID,
		Suite:      summary.Suite,
		Backend:    backend,
		Target:     target,
		StartedAt:  summary.StartedAt,
		DurationMS: summary.Duration.Milliseconds(),
		Total:      summary.Total,
		Passed:     summary.Passed,
		Failed:     summary.Failed,
		Findings:   summary.Findings,
		Cases:      make([]CaseReport, 0, len(summary.Results)),
	}
	for _, res := range summary.Results {
		c := CaseReport{
			Name:          res.Case.Name,
			Verdict:       string(res.Verdict),
			WantedVerdict: string(res.Case.WantedVerdict()),
			Passed:        res.Passed,
			DurationMS:    res.Duration.Milliseconds(),
			BestMove:      res.BestMove,
			Turn:          res.Turn,
			FEN:           res.FEN,
			Nodes:         res.Nodes,
			Missing:       res.Missing,
			EngineErrors:  res.EngineError,
			Anomalies:     res.Anomalies,
		}
		if res.Error != nil {
			c.Error = res.Error.Error()
		}
		r.Cases = append(r.Cases, c)
	}
	return r
}

// Write stores the report at path. Concurrent writers to the same path are
// serialised with a lock file and the file is replaced atomically.
func Write(path string, r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')
	if err := lockAndWrite(path, data); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Read loads a report written by Write.
func Read(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report %s: %w", path, err)
	}
	return &r, nil
}
