package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/uciharness/internal/models"
)

func sampleSummary(runID string, started time.Time, failing bool) *models.Summary {
	pass := models.TestResult{
		Case:     models.TestCase{Name: "identification"},
		Verdict:  models.VerdictPass,
		Passed:   true,
		Duration: 120 * time.Millisecond,
	}
	search := models.TestResult{
		Case:        models.TestCase{Name: "search depth 3"},
		Verdict:     models.VerdictPass,
		Passed:      true,
		BestMove:    "e2e4",
		Nodes:       1234,
		Duration:    2 * time.Second,
		EngineError: []string{"Error: bad hash size"},
	}
	s := &models.Summary{
		RunID:     runID,
		Suite:     "protocol",
		StartedAt: started,
		Duration:  3 * time.Second,
		Results:   []models.TestResult{pass, search},
		Total:     2,
		Passed:    2,
		Findings:  1,
	}
	if failing {
		search.Verdict = models.VerdictFail
		search.Passed = false
		search.Missing = []string{"search completed: no bestmove"}
		search.Error = errors.New("protocol violation")
		s.Results[1] = search
		s.Passed, s.Failed = 1, 1
		s.Failures = []models.TestResult{search}
	}
	return s
}

func TestNewStore(t *testing.T) {
	tests := []struct {
		name   string
		dbPath func(t *testing.T) string
	}{
		{name: "in memory", dbPath: func(t *testing.T) string { return ":memory:" }},
		{name: "file", dbPath: func(t *testing.T) string { return filepath.Join(t.TempDir(), "history.db") }},
		{name: "nested directories", dbPath: func(t *testing.T) string {
			return filepath.Join(t.TempDir(), "a", "b", "history.db")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.dbPath(t)
			store, err := NewStore(path)
			require.NoError(t, err)
			require.NotNil(t, store)
			defer store.Close()

			if path != ":memory:" {
				_, err := os.Stat(path)
				assert.NoError(t, err, "database file should exist")
			}
		})
	}
}

func TestStoreReopenKeepsRuns(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveRun(ctx, sampleSummary("run-1", time.Now(), false), RunMeta{}))
	require.NoError(t, store.Close())

	store, err = NewStore(path)
	require.NoError(t, err)
	defer store.Close()

	runs, err := store.RecentRuns(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].RunID)
}

func TestSaveRunAndCaseResults(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	meta := RunMeta{Backend: "subprocess", Target: "/usr/local/bin/engine"}
	require.NoError(t, store.SaveRun(ctx, sampleSummary("run-1", started, true), meta))

	runs, err := store.RecentRuns(ctx, "protocol", 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	run := runs[0]
	assert.Equal(t, "protocol", run.Suite)
	assert.Equal(t, "subprocess", run.Backend)
	assert.Equal(t, "/usr/local/bin/engine", run.Target)
	assert.True(t, run.StartedAt.Equal(started))
	assert.Equal(t, 3*time.Second, run.Duration)
	assert.Equal(t, 2, run.Total)
	assert.Equal(t, 1, run.Failed)
	assert.Equal(t, 1, run.Findings)

	cases, err := store.CaseResults(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, "identification", cases[0].CaseName)
	assert.True(t, cases[0].Passed)
	assert.Empty(t, cases[0].Missing)

	failed := cases[1]
	assert.Equal(t, 1, failed.Position)
	assert.Equal(t, models.VerdictFail, failed.Verdict)
	assert.False(t, failed.Passed)
	assert.Equal(t, "e2e4", failed.BestMove)
	assert.Equal(t, int64(1234), failed.Nodes)
	assert.Equal(t, 2*time.Second, failed.Duration)
	assert.Equal(t, []string{"search completed: no bestmove"}, failed.Missing)
	assert.Equal(t, []string{"Error: bad hash size"}, failed.EngineErrors)
	assert.Equal(t, "protocol violation", failed.ErrorMessage)
}

func TestSaveRunRejectsDuplicatesAndMissingID(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	assert.Error(t, store.SaveRun(ctx, sampleSummary("", time.Now(), false), RunMeta{}))

	require.NoError(t, store.SaveRun(ctx, sampleSummary("run-1", time.Now(), false), RunMeta{}))
	assert.Error(t, store.SaveRun(ctx, sampleSummary("run-1", time.Now(), false), RunMeta{}))

	cases, err := store.CaseResults(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, cases, 2, "failed insert rolls back its case rows")
}

func TestRecentRunsOrderingAndFilter(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		s := sampleSummary(id, base.Add(time.Duration(i)*time.Hour), false)
		if id == "run-b" {
			s.Suite = "scenarios"
		}
		require.NoError(t, store.SaveRun(ctx, s, RunMeta{}))
	}

	runs, err := store.RecentRuns(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-c", runs[0].RunID)
	assert.Equal(t, "run-b", runs[1].RunID)

	runs, err = store.RecentRuns(ctx, "protocol", 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-c", runs[0].RunID)
	assert.Equal(t, "run-a", runs[1].RunID)
}

func TestCaseHistory(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveRun(ctx, sampleSummary("run-1", base, false), RunMeta{}))
	require.NoError(t, store.SaveRun(ctx, sampleSummary("run-2", base.Add(time.Hour), true), RunMeta{}))

	history, err := store.CaseHistory(ctx, "search depth 3", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "run-2", history[0].RunID)
	assert.False(t, history[0].Passed)
	assert.Equal(t, "run-1", history[1].RunID)
	assert.True(t, history[1].Passed)

	none, err := store.CaseHistory(ctx, "no such case", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCleanupOldRuns(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveRun(ctx, sampleSummary("old", time.Now().AddDate(0, 0, -40), false), RunMeta{}))
	require.NoError(t, store.SaveRun(ctx, sampleSummary("new", time.Now(), false), RunMeta{}))

	deleted, err := store.CleanupOldRuns(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	deleted, err = store.CleanupOldRuns(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	runs, err := store.RecentRuns(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "new", runs[0].RunID)

	cases, err := store.CaseResults(ctx, "old")
	require.NoError(t, err)
	assert.Empty(t, cases, "case rows are removed with their run")
}
