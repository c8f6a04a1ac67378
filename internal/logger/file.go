package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/harrison/uciharness/internal/models"
)

// FileLogger logs harness runs to files in a log directory.
// It creates a timestamped per-run log file, one transcript per case under
// cases/, and maintains a latest.log symlink pointing to the most recent run.
// It is thread-safe and implements the executor.Logger interface.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	casesDir string
	logLevel string
	seq      int
	mu       sync.Mutex
}

// NewFileLogger creates a FileLogger in logDir at the given level.
// It creates the log directory if it doesn't exist, opens a timestamped
// run log file, and creates/updates the latest.log symlink.
func NewFileLogger(logDir string, logLevel string) (*FileLogger, error) {
	casesDir := filepath.Join(logDir, "cases")
	if err := os.MkdirAll(casesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// Generate timestamped filename: run-YYYYMMDD-HHMMSS.log
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", time.Now().Format("20060102-150405")))
	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	logger := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		casesDir: casesDir,
		logLevel: normalizeLogLevel(logLevel),
	}

	logger.writeRunLog("=== UCI Harness Run Log ===\n")
	logger.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))

	return logger, nil
}

// RunFile returns the path of the run log.
func (fl *FileLogger) RunFile() string {
	return fl.runFile
}

func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(fl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (fl *FileLogger) LogTrace(message string) {
	fl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) {
	fl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message))
}

// LogCaseStart records the case and its script in the run log.
func (fl *FileLogger) LogCaseStart(tc models.TestCase, index, total int) {
	if !fl.shouldLog("info") {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] Case %d/%d: %s\n", timestamp(), index+1, total, tc.Name)
	for _, c := range tc.BuildCommands() {
		fmt.Fprintf(&b, "    > %s\n", c)
	}
	fl.writeRunLog(b.String())
}

// LogCaseResult writes the verdict to the run log and the full transcript
// to cases/NNN-<name>.log. Transcripts are written at every level.
func (fl *FileLogger) LogCaseResult(result models.TestResult) {
	path, err := fl.writeCaseLog(result)
	if err != nil {
		fl.LogWarn(fmt.Sprintf("Could not write transcript for %s: %v", result.Case.Name, err))
	}
	if !fl.shouldLog("info") {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] Case %s: %s in %.3fs (transcript: %s)\n",
		timestamp(), result.Case.Name, result.Verdict, result.Duration.Seconds(), filepath.Base(path)))
}

// LogSummary writes the suite summary block.
func (fl *FileLogger) LogSummary(summary models.Summary) {
	if !fl.shouldLog("info") {
		return
	}

	status := "SUCCESS"
	if summary.Failed > 0 {
		status = "FAILED"
		if summary.Passed > 0 {
			status = "PARTIAL"
		}
	}

	ts := timestamp()
	var b strings.Builder
	fmt.Fprintf(&b, "\n[%s] === SUITE SUMMARY ===\n", ts)
	fmt.Fprintf(&b, "[%s] Run ID:       %s\n", ts, summary.RunID)
	fmt.Fprintf(&b, "[%s] Suite:        %s\n", ts, summary.Suite)
	fmt.Fprintf(&b, "[%s] Total cases:  %d\n", ts, summary.Total)
	fmt.Fprintf(&b, "[%s] Passed:       %d\n", ts, summary.Passed)
	fmt.Fprintf(&b, "[%s] Failed:       %d\n", ts, summary.Failed)
	fmt.Fprintf(&b, "[%s] Findings:     %d\n", ts, summary.Findings)
	fmt.Fprintf(&b, "[%s] Total time:   %.1fs\n", ts, summary.Duration.Seconds())
	fmt.Fprintf(&b, "[%s] Status:       %s (%d/%d cases passed)\n", ts, status, summary.Passed, summary.Total)
	for _, f := range summary.Failures {
		fmt.Fprintf(&b, "[%s]   - %s: %s\n", ts, f.Case.Name, f.Verdict)
		for _, m := range f.Missing {
			fmt.Fprintf(&b, "[%s]       %s\n", ts, m)
		}
	}
	fl.writeRunLog(b.String())
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

func (fl *FileLogger) writeCaseLog(result models.TestResult) (string, error) {
	fl.mu.Lock()
	fl.seq++
	seq := fl.seq
	fl.mu.Unlock()

	slug := strings.Trim(unsafeName.ReplaceAllString(strings.ToLower(result.Case.Name), "-"), "-")
	if slug == "" {
		slug = "case"
	}
	path := filepath.Join(fl.casesDir, fmt.Sprintf("%03d-%s.log", seq, slug))

	var b strings.Builder
	fmt.Fprintf(&b, "=== Case: %s ===\n", result.Case.Name)
	if result.Case.Description != "" {
		fmt.Fprintf(&b, "%s\n", result.Case.Description)
	}
	fmt.Fprintf(&b, "Verdict: %s (wanted %s)\n", result.Verdict, result.Case.WantedVerdict())
	fmt.Fprintf(&b, "Duration: %.3fs\n\n", result.Duration.Seconds())

	b.WriteString("Commands:\n")
	for _, c := range result.Case.BuildCommands() {
		fmt.Fprintf(&b, "  > %s\n", c)
	}

	b.WriteString("\nTranscript:\n")
	for _, line := range result.Transcript {
		fmt.Fprintf(&b, "  %4d [%s] %s\n", line.Index, line.Stream, line.Text)
	}

	if result.HasBestMove() || result.FEN != "" {
		b.WriteString("\nFacts:\n")
		writeFact(&b, "bestmove", result.BestMove)
		writeFact(&b, "turn", result.Turn)
		writeFact(&b, "fen", result.FEN)
		if result.Nodes > 0 {
			writeFact(&b, "nodes", fmt.Sprint(result.Nodes))
		}
		if result.SearchTime > 0 {
			writeFact(&b, "took", fmt.Sprintf("%gus", result.SearchTime))
		}
	}
	if len(result.Missing) > 0 {
		b.WriteString("\nUnmet expectations:\n")
		for _, m := range result.Missing {
			fmt.Fprintf(&b, "  - %s\n", m)
		}
	}
	if len(result.Anomalies) > 0 {
		b.WriteString("\nClassifier anomalies:\n")
		for _, a := range result.Anomalies {
			fmt.Fprintf(&b, "  - %s\n", a)
		}
	}
	if result.Error != nil {
		fmt.Fprintf(&b, "\nError:\n%v\n", result.Error)
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return path, fmt.Errorf("failed to write case log: %w", err)
	}
	return path, nil
}

func writeFact(b *strings.Builder, name, value string) {
	if value != "" {
		fmt.Fprintf(b, "  %-8s %s\n", name+":", value)
	}
}

// Close flushes and closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Sync(); err != nil {
			return fmt.Errorf("failed to sync run log: %w", err)
		}
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close run log: %w", err)
		}
		fl.runLog = nil
	}
	return nil
}

// writeRunLog is a thread-safe helper to write to the run log file.
func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
		fl.runLog.Sync()
	}
}
