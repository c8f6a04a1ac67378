package logger

import "github.com/harrison/uciharness/internal/models"

// Sink is the set of methods every harness logger provides.
type Sink interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogCaseStart(tc models.TestCase, index, total int)
	LogCaseResult(result models.TestResult)
	LogSummary(summary models.Summary)
}

// MultiLogger fans every call out to each of its loggers in order.
type MultiLogger struct {
	loggers []Sink
}

// NewMultiLogger combines loggers; nil entries are skipped.
func NewMultiLogger(loggers ...Sink) *MultiLogger {
	m := &MultiLogger{}
	for _, l := range loggers {
		if l != nil {
			m.loggers = append(m.loggers, l)
		}
	}
	return m
}

func (m *MultiLogger) LogDebug(message string) {
	for _, l := range m.loggers {
		l.LogDebug(message)
	}
}

func (m *MultiLogger) LogInfo(message string) {
	for _, l := range m.loggers {
		l.LogInfo(message)
	}
}

func (m *MultiLogger) LogWarn(message string) {
	for _, l := range m.loggers {
		l.LogWarn(message)
	}
}

func (m *MultiLogger) LogCaseStart(tc models.TestCase, index, total int) {
	for _, l := range m.loggers {
		l.LogCaseStart(tc, index, total)
	}
}

func (m *MultiLogger) LogCaseResult(result models.TestResult) {
	for _, l := range m.loggers {
		l.LogCaseResult(result)
	}
}

func (m *MultiLogger) LogSummary(summary models.Summary) {
	for _, l := range m.loggers {
		l.LogSummary(summary)
	}
}
