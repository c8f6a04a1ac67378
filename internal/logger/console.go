// Package logger provides logging implementations for harness runs.
//
// Loggers report case starts, case verdicts and the suite summary, plus
// levelled diagnostic messages from sessions and the runner. Implementations
// are thread-safe because cases may run concurrently.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/harrison/uciharness/internal/models"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// ConsoleLogger logs run progress to a writer with timestamps and thread safety.
// All output is prefixed with [HH:MM:SS] timestamps.
// Color output is automatically enabled for terminal output (os.Stdout/os.Stderr).
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
	colors      *colorScheme
	progress    *ProgressBar
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive).
// If logLevel is empty or invalid, defaults to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	useColor := isTerminal(writer)
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: useColor,
		colors:      newColorScheme(),
	}
}

// isTerminal checks if the writer is a terminal that supports colors.
func isTerminal(w io.Writer) bool {
	if w == nil {
		return false
	}
	if w == os.Stdout || w == os.Stderr {
		// color.NoColor honours NO_COLOR and non-TTY output
		return !color.NoColor
	}
	return false
}

// normalizeLogLevel converts a log level string to lowercase and validates it.
// Returns "info" as default for empty or invalid levels.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	switch normalized {
	case "trace", "debug", "info", "warn", "error":
		return normalized
	}
	return "info"
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

// logWithLevel writes "[HH:MM:SS] [LEVEL] message" if filtering allows it.
func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil || !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	lvl := level
	if cl.colorOutput {
		lvl = cl.colors.level(level)
	}
	fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", timestamp(), lvl, message)
}

// LogCaseStart logs the case about to run at INFO level.
// Format: "[HH:MM:SS] [i/n] Running <name>"
func (cl *ConsoleLogger) LogCaseStart(tc models.TestCase, index, total int) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	if cl.progress == nil || index == 0 || cl.progress.Total() != total {
		cl.progress = NewProgressBar(total, 20, cl.colorOutput)
	}

	name := tc.Name
	if cl.colorOutput {
		name = cl.colors.label.Sprint(name)
	}
	fmt.Fprintf(cl.writer, "[%s] [%d/%d] Running %s\n", timestamp(), index+1, total, name)
}

// LogCaseResult logs a case verdict at INFO level, followed by the unmet
// expectations of a failing case and the run progress bar.
func (cl *ConsoleLogger) LogCaseResult(result models.TestResult) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	verdict := strings.ToUpper(string(result.Verdict))
	if cl.colorOutput {
		verdict = cl.colors.verdict(result.Verdict, result.Passed)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: %s (%s)", ts, result.Case.Name, verdict, formatDuration(result.Duration))
	if result.HasBestMove() {
		fmt.Fprintf(&b, " bestmove %s", result.BestMove)
	}
	if !result.Passed && result.Case.ExpectVerdict != "" {
		fmt.Fprintf(&b, ", expected %s", result.Case.WantedVerdict())
	}
	b.WriteByte('\n')

	if !result.Passed {
		for _, m := range result.Missing {
			fmt.Fprintf(&b, "[%s]   - %s\n", ts, m)
		}
		if result.Error != nil {
			fmt.Fprintf(&b, "[%s]   error: %v\n", ts, result.Error)
		}
	}
	for _, e := range result.EngineError {
		line := "engine reported: " + e
		if cl.colorOutput {
			line = cl.colors.warn.Sprint(line)
		}
		fmt.Fprintf(&b, "[%s]   %s\n", ts, line)
	}

	if cl.progress != nil {
		cl.progress.Increment()
		fmt.Fprintf(&b, "[%s] Progress: %s\n", ts, cl.progress.Render())
	}

	cl.writer.Write([]byte(b.String()))
}

// LogSummary logs the suite summary with pass/fail counts at INFO level.
func (cl *ConsoleLogger) LogSummary(summary models.Summary) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	header := "=== Suite Summary: " + summary.Suite + " ==="
	passed := fmt.Sprintf("Passed: %d", summary.Passed)
	failed := fmt.Sprintf("Failed: %d", summary.Failed)
	if cl.colorOutput {
		header = color.New(color.Bold).Sprint(header)
		passed = cl.colors.success.Sprint(passed)
		if summary.Failed > 0 {
			failed = cl.colors.failure.Sprint(failed)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", ts, header)
	fmt.Fprintf(&b, "[%s] Total cases: %d\n", ts, summary.Total)
	fmt.Fprintf(&b, "[%s] %s\n", ts, passed)
	fmt.Fprintf(&b, "[%s] %s\n", ts, failed)
	if summary.Findings > 0 {
		fmt.Fprintf(&b, "[%s] Cases with engine-reported errors: %d\n", ts, summary.Findings)
	}
	fmt.Fprintf(&b, "[%s] Duration: %s\n", ts, formatDuration(summary.Duration))

	if len(summary.Failures) > 0 {
		fmt.Fprintf(&b, "[%s] Failed cases:\n", ts)
		for _, f := range summary.Failures {
			name := f.Case.Name
			if cl.colorOutput {
				name = cl.colors.failure.Sprint(name)
			}
			fmt.Fprintf(&b, "[%s]   - %s: %s\n", ts, name, f.Verdict)
			for _, m := range f.Missing {
				fmt.Fprintf(&b, "[%s]       %s\n", ts, m)
			}
		}
	}

	cl.writer.Write([]byte(b.String()))
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration converts a time.Duration to a short human-readable string.
// Examples: "250ms", "5.2s", "1m30s"
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		minutes := d / time.Minute
		seconds := (d % time.Minute) / time.Second
		if seconds == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	case d >= time.Second:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
}

// NoOpLogger is a Logger implementation that discards all log messages.
// Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) LogDebug(message string)                           {}
func (n *NoOpLogger) LogInfo(message string)                            {}
func (n *NoOpLogger) LogWarn(message string)                            {}
func (n *NoOpLogger) LogCaseStart(tc models.TestCase, index, total int) {}
func (n *NoOpLogger) LogCaseResult(result models.TestResult)            {}
func (n *NoOpLogger) LogSummary(summary models.Summary)                 {}
