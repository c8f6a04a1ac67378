// Package session drives one scripted exchange with an engine endpoint:
// every command is written first, then output is drained and classified
// until the endpoint closes or the time budget runs out.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harrison/uciharness/internal/classifier"
	"github.com/harrison/uciharness/internal/engine"
	"github.com/harrison/uciharness/internal/models"
)

// ErrTimeout is returned when the endpoint did not close within the budget.
// It is distinct from engine-reported errors.
var ErrTimeout = errors.New("session timed out")

// Logger receives session diagnostics. Both ConsoleLogger and FileLogger satisfy it.
type Logger interface {
	LogDebug(message string)
	LogWarn(message string)
}

// bulkSender is implemented by endpoints that accept the pre-joined buffer in one write.
type bulkSender interface {
	SendAll(cmds []models.Command) error
}

// Result is everything observed during one exchange.
type Result struct {
	Lines     []models.RawLine
	Records   []models.ParsedRecord
	Anomalies []classifier.Anomaly
	Exit      engine.ExitStatus
	Closed    bool // Endpoint closed its output naturally
	TimedOut  bool
	Duration  time.Duration
}

// RecordsOf returns the records of the given kind in order.
func (r *Result) RecordsOf(kind models.RecordKind) []models.ParsedRecord {
	var out []models.ParsedRecord
	for _, rec := range r.Records {
		if rec.Kind == kind {
			out = append(out, rec)
		}
	}
	return out
}

// Session owns one endpoint and one classifier for the span of a single run.
type Session struct {
	endpoint   engine.Endpoint
	classifier *classifier.Classifier
	logger     Logger
	prejoined  bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger routes anomalies and stderr lines to logger.
func WithLogger(logger Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithPrejoined sends all commands as one buffer when the endpoint supports it.
func WithPrejoined() Option {
	return func(s *Session) { s.prejoined = true }
}

// New creates a session over ep.
func New(ep engine.Endpoint, opts ...Option) *Session {
	s := &Session{
		endpoint:   ep,
		classifier: classifier.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run sends cmds while collecting output until the endpoint closes or timeout
// elapses. A timeout of zero or less is an already-expired budget. On
// timeout or cancellation the endpoint is terminated exactly once before
// Run returns, and the partial Result is returned with the error.
func (s *Session) Run(ctx context.Context, cmds []models.Command, timeout time.Duration) (*Result, error) {
	start := time.Now()
	res := &Result{}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		res.Duration = time.Since(start)
		if !res.Closed {
			s.endpoint.Terminate()
		}
	}()

	// Delivery runs beside the drain so an engine that stops reading its
	// input cannot hold Run past the budget.
	delivered := make(chan error, 1)
	go func(ch chan<- error) { ch <- s.deliver(cmds) }(delivered)

	lines := s.endpoint.Lines()
	for lines != nil || delivered != nil {
		if runCtx.Err() != nil {
			return s.abort(res, runCtx, timeout)
		}
		select {
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			s.accept(res, line)
		case err := <-delivered:
			delivered = nil
			if err != nil {
				// The engine may already have exited; drain what it printed.
				s.warn(fmt.Sprintf("delivering commands: %v", err))
			}
		case <-runCtx.Done():
			return s.abort(res, runCtx, timeout)
		}
	}
	res.Closed = true
	s.finish(res)

	status, err := s.endpoint.Wait(runCtx)
	if err != nil {
		// Output closed but the endpoint is still alive.
		res.Closed = false
		return res, s.outcome(runCtx, timeout, res)
	}
	res.Exit = status
	return res, nil
}

func (s *Session) deliver(cmds []models.Command) error {
	if bulk, ok := s.endpoint.(bulkSender); ok && s.prejoined {
		return bulk.SendAll(cmds)
	}
	for _, cmd := range cmds {
		if err := s.endpoint.Send(cmd); err != nil {
			s.endpoint.CloseInput()
			return err
		}
	}
	return s.endpoint.CloseInput()
}

func (s *Session) accept(res *Result, line models.RawLine) {
	line.Index = len(res.Lines)
	res.Lines = append(res.Lines, line)
	if line.Stream == models.StreamStderr {
		s.debug(fmt.Sprintf("engine stderr: %s", line.Text))
	}
	res.Records = append(res.Records, s.classifier.Classify(line)...)
}

func (s *Session) finish(res *Result) {
	res.Records = append(res.Records, s.classifier.Finish()...)
	res.Anomalies = s.classifier.Anomalies()
	for _, a := range res.Anomalies {
		s.warn("output anomaly: " + a.String())
	}
}

func (s *Session) abort(res *Result, ctx context.Context, timeout time.Duration) (*Result, error) {
	s.finish(res)
	return res, s.outcome(ctx, timeout, res)
}

// outcome maps the ended context to ErrTimeout or the cancellation cause.
func (s *Session) outcome(ctx context.Context, timeout time.Duration, res *Result) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.TimedOut = true
		return fmt.Errorf("%w after %v (%d lines received)", ErrTimeout, timeout, len(res.Lines))
	}
	return ctx.Err()
}

func (s *Session) debug(msg string) {
	if s.logger != nil {
		s.logger.LogDebug(msg)
	}
}

func (s *Session) warn(msg string) {
	if s.logger != nil {
		s.logger.LogWarn(msg)
	}
}

// Run is a convenience wrapper creating a Session for a single exchange.
func Run(ctx context.Context, ep engine.Endpoint, cmds []models.Command, timeout time.Duration, opts ...Option) (*Result, error) {
	return New(ep, opts...).Run(ctx, cmds, timeout)
}
