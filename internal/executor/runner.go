package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/harrison/uciharness/internal/engine"
	"github.com/harrison/uciharness/internal/models"
	"github.com/harrison/uciharness/internal/session"
	"github.com/harrison/uciharness/internal/validation"
)

// Logger defines the interface for logging suite progress and results.
// Implementations must be safe for concurrent use when MaxConcurrency > 1.
type Logger interface {
	session.Logger
	LogInfo(message string)
	LogCaseStart(tc models.TestCase, index, total int)
	LogCaseResult(result models.TestResult)
	LogSummary(summary models.Summary)
}

// StartFunc launches an endpoint. engine.Start is the production implementation.
type StartFunc func(ctx context.Context, cfg engine.Config) (engine.Endpoint, error)

// Options controls how a suite is run.
type Options struct {
	Engine         engine.Config // Default engine, overridable per case
	Timeout        time.Duration // Session budget when a case sets none
	TestDelay      time.Duration // Pause between case launches
	MaxConcurrency int           // Cases in flight at once; 1 or less is sequential
	Prejoined      bool          // Write subprocess commands as one buffer
}

// Runner runs cases, each against a fresh endpoint, and aggregates results.
type Runner struct {
	opts   Options
	logger Logger
	start  StartFunc
}

// NewRunner creates a Runner. The logger parameter is optional and can be nil.
func NewRunner(opts Options, logger Logger) *Runner {
	return &Runner{
		opts:   opts,
		logger: logger,
		start:  engine.Start,
	}
}

// WithStarter replaces the endpoint launcher.
func (r *Runner) WithStarter(start StartFunc) *Runner {
	r.start = start
	return r
}

// Run executes every case and returns the summary. A failing case never
// stops the run. The returned error is a *RunError when any case failed, or
// the context error when the run was cancelled before all cases started.
func (r *Runner) Run(ctx context.Context, suite string, cases []models.TestCase) (*models.Summary, error) {
	startedAt := time.Now()
	GracefulInfo(r.logger, "Running suite %s: %d case(s) on %s engine %q", suite, len(cases), backendName(r.opts.Engine), r.opts.Engine.Target())
	results := make([]models.TestResult, len(cases))
	ran := make([]bool, len(cases))

	health := NewHealthMonitor(DefaultHealthConfig())
	var runErr error
	if r.opts.MaxConcurrency > 1 {
		runErr = r.runConcurrent(ctx, cases, results, ran, health)
	} else {
		runErr = r.runSequential(ctx, cases, results, ran, health)
	}

	summary := &models.Summary{
		RunID:     uuid.NewString(),
		Suite:     suite,
		Total:     len(cases),
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
	}
	failures := NewRunError(suite, len(cases))
	for i, result := range results {
		if !ran[i] {
			continue
		}
		summary.Results = append(summary.Results, result)
		if len(result.EngineError) > 0 {
			summary.Findings++
		}
		if result.Passed {
			summary.Passed++
			continue
		}
		summary.Failed++
		summary.Failures = append(summary.Failures, result)
		failures.AddCase(caseFailure(result))
	}

	_, anomalies := health.CheckHealth()
	for _, a := range anomalies {
		GracefulWarn(r.logger, "Suite %s: %s", suite, a)
	}
	if r.logger != nil {
		r.logger.LogSummary(*summary)
	}

	if runErr != nil {
		GracefulWarn(r.logger, "Suite %s stopped after %d of %d case(s): %v", suite, len(summary.Results), len(cases), runErr)
		return summary, runErr
	}
	if failures.FailedCases > 0 {
		return summary, failures
	}
	return summary, nil
}

func (r *Runner) runSequential(ctx context.Context, cases []models.TestCase, results []models.TestResult, ran []bool, health *HealthMonitor) error {
	for i, tc := range cases {
		if i > 0 {
			if err := sleepCtx(ctx, r.opts.TestDelay); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		r.logStart(tc, i, len(cases))
		results[i] = r.RunCase(ctx, tc)
		ran[i] = true
		r.logResult(results[i], health)
	}
	return nil
}

// runConcurrent staggers launches by TestDelay and bounds cases in flight.
// Each case owns its endpoint, session and classifier.
func (r *Runner) runConcurrent(ctx context.Context, cases []models.TestCase, results []models.TestResult, ran []bool, health *HealthMonitor) error {
	var g errgroup.Group
	g.SetLimit(r.opts.MaxConcurrency)

	var launchErr error
	for i, tc := range cases {
		if i > 0 {
			if err := sleepCtx(ctx, r.opts.TestDelay); err != nil {
				launchErr = err
				break
			}
		}
		if err := ctx.Err(); err != nil {
			launchErr = err
			break
		}
		g.Go(func() error {
			r.logStart(tc, i, len(cases))
			results[i] = r.RunCase(ctx, tc)
			ran[i] = true
			r.logResult(results[i], health)
			return nil
		})
	}
	g.Wait()
	return launchErr
}

// RunCase runs one case against a fresh endpoint. It never panics; any
// failure is reported through the result's verdict and error. The session
// terminates the endpoint on every path that does not end in a natural close.
func (r *Runner) RunCase(ctx context.Context, tc models.TestCase) (result models.TestResult) {
	start := time.Now()
	result = models.TestResult{Case: tc, Verdict: models.VerdictError}
	defer func() {
		if rec := recover(); rec != nil {
			result.Verdict = models.VerdictError
			result.Error = NewCaseError(tc.Name, PhaseSession, "harness panic", fmt.Errorf("%v", rec))
		}
		result.Duration = time.Since(start)
		result.Passed = result.Verdict == tc.WantedVerdict()
	}()

	if err := tc.Validate(); err != nil {
		result.Error = NewCaseError(tc.Name, PhaseLaunch, "invalid case", err)
		return result
	}

	cfg, err := r.engineConfig(tc)
	if err != nil {
		result.Verdict = models.VerdictLaunchFailure
		result.Error = NewCaseError(tc.Name, PhaseLaunch, "invalid engine override", err)
		return result
	}

	ep, err := r.start(ctx, cfg)
	if err != nil {
		if engine.IsLaunchFailure(err) {
			result.Verdict = models.VerdictLaunchFailure
		}
		result.Error = NewCaseError(tc.Name, PhaseLaunch, "engine did not start", err)
		return result
	}

	opts := []session.Option{session.WithLogger(r.logger)}
	if r.opts.Prejoined {
		opts = append(opts, session.WithPrejoined())
	}
	budget := tc.Budget(r.opts.Timeout)
	res, err := session.New(ep, opts...).Run(ctx, tc.BuildCommands(), budget)
	if res != nil {
		collectFacts(&result, res)
	}
	switch {
	case errors.Is(err, session.ErrTimeout):
		result.Verdict = models.VerdictTimeout
		result.Error = NewTimeoutError(tc.Name, budget, len(result.Transcript))
		return result
	case err != nil:
		result.Error = NewCaseError(tc.Name, PhaseSession, "session aborted", err)
		return result
	}

	report := validation.Check(res.Records, validation.FromCase(&tc))
	result.Verdict = report.Verdict
	result.Missing = report.Missing
	if !report.Passed() {
		result.Error = NewCaseError(tc.Name, PhaseValidate, "expectations not met", report.Err())
	}
	return result
}

// engineConfig applies the case's engine override to the default engine.
func (r *Runner) engineConfig(tc models.TestCase) (engine.Config, error) {
	cfg := r.opts.Engine
	o := tc.Engine
	if o == nil {
		return cfg, nil
	}
	if o.Backend != "" {
		backend, err := engine.ParseBackend(o.Backend)
		if err != nil {
			return cfg, &engine.LaunchError{Backend: engine.Backend(o.Backend), Target: cfg.Target(), Err: err}
		}
		cfg.Backend = backend
	}
	if o.Path != "" {
		cfg.Path = o.Path
	}
	if len(o.Args) > 0 {
		cfg.Args = o.Args
	}
	if o.Module != "" {
		cfg.Module = o.Module
	}
	return cfg, nil
}

// collectFacts copies the extracted records of a session into result.
func collectFacts(result *models.TestResult, res *session.Result) {
	result.Transcript = res.Lines
	for _, a := range res.Anomalies {
		result.Anomalies = append(result.Anomalies, a.String())
	}
	if best, ok := validation.FirstBestMove(res.Records); ok {
		result.BestMove = best.Move
	}
	for _, rec := range res.Records {
		switch rec.Kind {
		case models.KindNodeCount:
			result.Nodes = rec.Nodes
		case models.KindSearchTime:
			result.SearchTime = rec.Microseconds
		case models.KindFenLine:
			result.FEN = rec.FEN
		case models.KindTurnIndicator:
			result.Turn = rec.Color
		case models.KindBoardDump:
			result.Board = rec.Lines
		case models.KindErrorLine:
			result.EngineError = append(result.EngineError, rec.Text)
		}
	}
}

// caseFailure returns the error describing why result did not pass.
func caseFailure(result models.TestResult) error {
	if result.Error != nil {
		return result.Error
	}
	return NewCaseError(result.Case.Name, PhaseValidate,
		fmt.Sprintf("verdict %s, expected %s", result.Verdict, result.Case.WantedVerdict()), nil)
}

func (r *Runner) logStart(tc models.TestCase, index, total int) {
	if r.logger != nil {
		r.logger.LogCaseStart(tc, index, total)
	}
}

func (r *Runner) logResult(result models.TestResult, health *HealthMonitor) {
	if r.logger != nil {
		r.logger.LogCaseResult(result)
	}
	for _, a := range health.RecordResult(result, result.Case.Budget(r.opts.Timeout)) {
		GracefulWarn(r.logger, "Engine health: %s", a)
	}
}

func backendName(cfg engine.Config) engine.Backend {
	if cfg.Backend == "" {
		return engine.BackendSubprocess
	}
	return cfg.Backend
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
