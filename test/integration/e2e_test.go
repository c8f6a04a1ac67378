package integration

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harrison/uciharness/internal/engine"
	"github.com/harrison/uciharness/internal/executor"
	"github.com/harrison/uciharness/internal/history"
	"github.com/harrison/uciharness/internal/logger"
	"github.com/harrison/uciharness/internal/mockengine"
	"github.com/harrison/uciharness/internal/models"
	"github.com/harrison/uciharness/internal/parser"
	"github.com/harrison/uciharness/internal/report"
)

func loadFixtureSuite(t *testing.T) *models.Suite {
	t.Helper()
	suite, err := parser.ParseFile(filepath.Join("..", "fixtures", "suites"))
	if err != nil {
		t.Fatalf("Failed to parse fixture suites: %v", err)
	}
	if err := suite.Validate(); err != nil {
		t.Fatalf("Fixture suite invalid: %v", err)
	}
	return suite
}

func newRunner(backend engine.Backend, module string, reg *engine.Registry, concurrency int) *executor.Runner {
	return executor.NewRunner(executor.Options{
		Engine: engine.Config{
			Backend:  backend,
			Module:   module,
			Registry: reg,
		},
		Timeout:        10 * time.Second,
		MaxConcurrency: concurrency,
	}, logger.NewNoOpLogger())
}

func resultsByName(summary *models.Summary) map[string]models.TestResult {
	out := make(map[string]models.TestResult, len(summary.Results))
	for _, r := range summary.Results {
		out[r.Case.Name] = r
	}
	return out
}

func TestParseFixtureDirectory(t *testing.T) {
	suite := loadFixtureSuite(t)

	if suite.Name != "suites" {
		t.Errorf("Expected merged suite named after directory, got %q", suite.Name)
	}
	names := make([]string, len(suite.Cases))
	for i, tc := range suite.Cases {
		names[i] = tc.Name
	}
	want := []string{"handshake order", "black reply after a2a3", "reply to a2a3 a7a6 a3a4", "missing module"}
	if strings.Join(names, "|") != strings.Join(want, "|") {
		t.Errorf("Case order = %v, want %v", names, want)
	}

	for _, tc := range suite.Cases {
		if tc.Timeout == nil || *tc.Timeout != 5*time.Second {
			t.Errorf("Case %q: expected 5s timeout from suite header, got %v", tc.Name, tc.Timeout)
		}
	}
}

func TestFixtureSuiteOnModuleBackends(t *testing.T) {
	suite := loadFixtureSuite(t)

	for _, backend := range []engine.Backend{engine.BackendInProcess, engine.BackendWorker} {
		t.Run(string(backend), func(t *testing.T) {
			reg := engine.NewRegistry()
			mockengine.Register(reg)

			summary, err := newRunner(backend, mockengine.ModuleName, reg, 2).Run(context.Background(), suite.Name, suite.Cases)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if summary.Total != len(suite.Cases) || summary.Passed != summary.Total {
				t.Fatalf("Expected all %d cases to pass, got %d passed, failures: %v", len(suite.Cases), summary.Passed, summary.Failures)
			}

			results := resultsByName(summary)
			if got := results["black reply after a2a3"].BestMove; got != "a7a6" {
				t.Errorf("Expected bestmove a7a6 after a2a3, got %q", got)
			}
			if got := results["reply to a2a3 a7a6 a3a4"].BestMove; got != "a6a5" {
				t.Errorf("Expected bestmove a6a5, got %q", got)
			}
			if got := results["missing module"].Verdict; got != models.VerdictLaunchFailure {
				t.Errorf("Expected launch-failure for missing module, got %s", got)
			}
		})
	}
}

func TestRunPersistsReportAndHistory(t *testing.T) {
	suite := loadFixtureSuite(t)
	reg := engine.NewRegistry()
	mockengine.Register(reg)

	summary, err := newRunner(engine.BackendInProcess, mockengine.ModuleName, reg, 1).Run(context.Background(), suite.Name, suite.Cases)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "report.json")
	if err := report.Write(path, report.FromSummary(summary, string(engine.BackendInProcess), mockengine.ModuleName)); err != nil {
		t.Fatalf("report.Write() error = %v", err)
	}
	r, err := report.Read(path)
	if err != nil {
		t.Fatalf("report.Read() error = %v", err)
	}
	if r.RunID != summary.RunID || len(r.Cases) != summary.Total {
		t.Errorf("Report mismatch: run %q with %d cases", r.RunID, len(r.Cases))
	}

	store, err := history.NewStore(":memory:")
	if err != nil {
		t.Fatalf("history.NewStore() error = %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	meta := history.RunMeta{Backend: string(engine.BackendInProcess), Target: mockengine.ModuleName}
	if err := store.SaveRun(ctx, summary, meta); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	runs, err := store.RecentRuns(ctx, suite.Name, 5)
	if err != nil {
		t.Fatalf("RecentRuns() error = %v", err)
	}
	if len(runs) != 1 || runs[0].Passed != summary.Passed {
		t.Fatalf("Expected one stored run with %d passed, got %+v", summary.Passed, runs)
	}
	cases, err := store.CaseResults(ctx, summary.RunID)
	if err != nil {
		t.Fatalf("CaseResults() error = %v", err)
	}
	if len(cases) != summary.Total {
		t.Errorf("Expected %d case records, got %d", summary.Total, len(cases))
	}
}

func registerMisbehaving(reg *engine.Registry) {
	reg.Register("silent", func() (engine.Module, error) {
		return func(ctx context.Context, mio engine.ModuleIO) error { return nil }, nil
	})
	reg.Register("noisy", func() (engine.Module, error) {
		return func(ctx context.Context, mio engine.ModuleIO) error {
			mio.Print("id name Noisy")
			mio.PrintErr("Error: hash size too large")
			mio.Print("uciok")
			return nil
		}, nil
	})
	reg.Register("panicky", func() (engine.Module, error) {
		return func(ctx context.Context, mio engine.ModuleIO) error {
			panic("board index out of range")
		}, nil
	})
}

func TestMisbehavingEngines(t *testing.T) {
	tests := []struct {
		module       string
		noErrors     bool
		wantVerdict  models.Verdict
		wantFinding  bool
		wantInOutput string
	}{
		{module: "silent", wantVerdict: models.VerdictFail},
		{module: "noisy", wantVerdict: models.VerdictPass, wantFinding: true, wantInOutput: "Error: hash size too large"},
		{module: "noisy", noErrors: true, wantVerdict: models.VerdictFail, wantFinding: true},
		{module: "panicky", wantVerdict: models.VerdictFail, wantFinding: true, wantInOutput: "engine module panicked"},
	}

	for _, tt := range tests {
		name := tt.module
		if tt.noErrors {
			name += "/strict"
		}
		t.Run(name, func(t *testing.T) {
			reg := engine.NewRegistry()
			registerMisbehaving(reg)

			tc := models.TestCase{
				Name:           "handshake",
				Commands:       []models.Command{"uci", "quit"},
				Expect:         []string{"uciok"},
				ExpectNoErrors: tt.noErrors,
			}
			result := newRunner(engine.BackendInProcess, tt.module, reg, 1).RunCase(context.Background(), tc)

			if result.Verdict != tt.wantVerdict {
				t.Errorf("Verdict = %s, want %s (missing: %v, error: %v)", result.Verdict, tt.wantVerdict, result.Missing, result.Error)
			}
			if got := len(result.EngineError) > 0; got != tt.wantFinding {
				t.Errorf("Engine errors = %v, want finding %v", result.EngineError, tt.wantFinding)
			}
			if tt.wantInOutput == "" {
				return
			}
			found := false
			for _, line := range result.Transcript {
				if strings.Contains(line.Text, tt.wantInOutput) {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("Transcript does not contain %q: %v", tt.wantInOutput, result.Transcript)
			}
		})
	}
}
