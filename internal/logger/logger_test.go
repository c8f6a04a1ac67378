package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/uciharness/internal/models"
)

func sampleResult(passed bool) models.TestResult {
	r := models.TestResult{
		Case: models.TestCase{
			Name:       "Black reply / a2a3",
			WhiteMoves: []string{"a2a3"},
			Depth:      3,
		},
		Verdict:  models.VerdictPass,
		Passed:   true,
		Duration: 1500 * time.Millisecond,
		BestMove: "a7a6",
		Turn:     models.ColorBlack,
		FEN:      "rhfvsfhr/pppppppp/8/8/8/P7/1PPPPPPP/RHFVSFHR b 0 1",
		Nodes:    42,
		Transcript: []models.RawLine{
			{Index: 0, Stream: models.StreamStdout, Text: "id name Mock"},
			{Index: 1, Stream: models.StreamStderr, Text: "Error: warm-up"},
		},
	}
	if !passed {
		r.Verdict = models.VerdictFail
		r.Passed = false
		r.Missing = []string{"turn is black: mismatch (got white)"}
		r.Error = errors.New("protocol violation")
	}
	return r
}

func TestNormalizeLogLevel(t *testing.T) {
	assert.Equal(t, "debug", normalizeLogLevel(" DEBUG "))
	assert.Equal(t, "info", normalizeLogLevel("loud"))
	assert.Equal(t, "info", normalizeLogLevel(""))
}

func TestConsoleLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf, "warn")

	cl.LogDebug("hidden")
	cl.LogInfo("hidden too")
	cl.LogWarn("careful")
	cl.LogError("broken")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] careful")
	assert.Contains(t, out, "[ERROR] broken")
}

func TestConsoleLoggerNilWriter(t *testing.T) {
	cl := NewConsoleLogger(nil, "trace")
	cl.LogInfo("nothing happens")
	cl.LogCaseResult(sampleResult(false))
	cl.LogSummary(models.Summary{})
}

func TestConsoleLoggerCaseLifecycle(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf, "info")

	cl.LogCaseStart(sampleResult(true).Case, 0, 2)
	cl.LogCaseResult(sampleResult(true))
	cl.LogCaseResult(sampleResult(false))

	out := buf.String()
	assert.Contains(t, out, "[1/2] Running Black reply / a2a3")
	assert.Contains(t, out, "Black reply / a2a3: PASS (1.5s) bestmove a7a6")
	assert.Contains(t, out, "- turn is black: mismatch (got white)")
	assert.Contains(t, out, "error: protocol violation")
	assert.Contains(t, out, "2/2 (100%)")
}

func TestConsoleLoggerSummary(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf, "info")

	failed := sampleResult(false)
	cl.LogSummary(models.Summary{
		Suite:    "scenarios",
		Total:    3,
		Passed:   2,
		Failed:   1,
		Findings: 1,
		Duration: 2 * time.Minute,
		Failures: []models.TestResult{failed},
	})

	out := buf.String()
	assert.Contains(t, out, "=== Suite Summary: scenarios ===")
	assert.Contains(t, out, "Passed: 2")
	assert.Contains(t, out, "Failed: 1")
	assert.Contains(t, out, "engine-reported errors: 1")
	assert.Contains(t, out, "Duration: 2m")
	assert.Contains(t, out, "- Black reply / a2a3: fail")
}

func TestConsoleLoggerConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf, "info")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cl.LogInfo("tick")
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, strings.Count(buf.String(), "[INFO] tick\n"))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", formatDuration(250*time.Millisecond))
	assert.Equal(t, "5.2s", formatDuration(5200*time.Millisecond))
	assert.Equal(t, "1m30s", formatDuration(90*time.Second))
	assert.Equal(t, "3m", formatDuration(3*time.Minute))
}

func TestProgressBar(t *testing.T) {
	pb := NewProgressBar(4, 8, false)
	assert.Equal(t, "[        ] 0/4 (0%)", pb.Render())

	pb.Increment()
	pb.Increment()
	assert.Equal(t, 50, pb.Percentage())
	assert.Equal(t, "[====    ] 2/4 (50%)", pb.Render())

	for i := 0; i < 5; i++ {
		pb.Increment()
	}
	assert.Equal(t, 4, pb.Current(), "progress never passes the total")

	empty := NewProgressBar(0, 0, false)
	assert.Equal(t, 0, empty.Percentage())
}

func TestFileLogger(t *testing.T) {
	dir := t.TempDir()
	fl, err := NewFileLogger(dir, "debug")
	require.NoError(t, err)

	fl.LogDebug("session started")
	fl.LogCaseStart(sampleResult(true).Case, 0, 1)
	fl.LogCaseResult(sampleResult(false))
	fl.LogSummary(models.Summary{RunID: "run-1", Suite: "black", Total: 1, Failed: 1, Failures: []models.TestResult{sampleResult(false)}})
	require.NoError(t, fl.Close())
	require.NoError(t, fl.Close(), "close is idempotent")

	latest, err := os.Readlink(filepath.Join(dir, "latest.log"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(fl.RunFile()), latest)

	runLog, err := os.ReadFile(fl.RunFile())
	require.NoError(t, err)
	assert.Contains(t, string(runLog), "[DEBUG] session started")
	assert.Contains(t, string(runLog), "> position startpos moves a2a3")
	assert.Contains(t, string(runLog), "Status:       FAILED (0/1 cases passed)")

	cases, err := filepath.Glob(filepath.Join(dir, "cases", "*.log"))
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, "001-black-reply-a2a3.log", filepath.Base(cases[0]))

	transcript, err := os.ReadFile(cases[0])
	require.NoError(t, err)
	text := string(transcript)
	assert.Contains(t, text, "Verdict: fail (wanted pass)")
	assert.Contains(t, text, "   0 [out] id name Mock")
	assert.Contains(t, text, "   1 [err] Error: warm-up")
	assert.Contains(t, text, "bestmove: a7a6")
	assert.Contains(t, text, "- turn is black: mismatch (got white)")
}

func TestFileLoggerReplacesLatestLink(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run-old.log"), nil, 0644))
	require.NoError(t, os.Symlink("run-old.log", filepath.Join(dir, "latest.log")))

	fl, err := NewFileLogger(dir, "info")
	require.NoError(t, err)
	defer fl.Close()

	latest, err := os.Readlink(filepath.Join(dir, "latest.log"))
	require.NoError(t, err)
	assert.NotEqual(t, "run-old.log", latest)
}

type countingSink struct {
	NoOpLogger
	results int
}

func (c *countingSink) LogCaseResult(models.TestResult) { c.results++ }

func TestMultiLogger(t *testing.T) {
	a, b := &countingSink{}, &countingSink{}
	m := NewMultiLogger(a, nil, b)

	m.LogCaseResult(sampleResult(true))
	m.LogInfo("ignored by both")
	assert.Equal(t, 1, a.results)
	assert.Equal(t, 1, b.results)
}
