package executor

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harrison/uciharness/internal/session"
)

// CasePhase represents the phase of a case where an error occurred.
type CasePhase int

const (
	// PhaseLaunch represents errors while starting the engine endpoint.
	PhaseLaunch CasePhase = iota
	// PhaseSession represents errors while exchanging commands and output.
	PhaseSession
	// PhaseValidate represents unsatisfied expectations.
	PhaseValidate
)

// String returns the string representation of CasePhase.
func (p CasePhase) String() string {
	switch p {
	case PhaseLaunch:
		return "launch"
	case PhaseSession:
		return "session"
	case PhaseValidate:
		return "validate"
	default:
		return "unknown"
	}
}

// CaseError represents an error that occurred while running one case.
// It includes context about which case failed, in which phase and when.
type CaseError struct {
	CaseName  string    // Name of the case that failed
	Phase     CasePhase // Phase the failure happened in
	Message   string    // Human-readable error message
	Err       error     // Underlying error (optional)
	Timestamp time.Time // When the error occurred
}

// NewCaseError creates a new CaseError with the current timestamp.
func NewCaseError(name string, phase CasePhase, msg string, err error) *CaseError {
	return &CaseError{
		CaseName:  name,
		Phase:     phase,
		Message:   msg,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// Error implements the error interface for CaseError.
func (e *CaseError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("case %q (%s): %s", e.CaseName, e.Phase, e.Message))
	if e.Err != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Err))
	}
	return sb.String()
}

// Unwrap returns the underlying error for error wrapping support.
func (e *CaseError) Unwrap() error {
	return e.Err
}

// TimeoutError represents a session that did not finish within its budget.
type TimeoutError struct {
	CaseName        string        // Name of the case that timed out
	TimeoutDuration time.Duration // Budget after which the endpoint was terminated
	LinesReceived   int           // Output lines collected before the budget ran out
	Timestamp       time.Time     // When the timeout occurred
}

// NewTimeoutError creates a new TimeoutError with the current timestamp.
func NewTimeoutError(name string, duration time.Duration, lines int) *TimeoutError {
	return &TimeoutError{
		CaseName:        name,
		TimeoutDuration: duration,
		LinesReceived:   lines,
		Timestamp:       time.Now(),
	}
}

// Error implements the error interface for TimeoutError.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("case %q: timeout after %v (%d lines received)", e.CaseName, e.TimeoutDuration, e.LinesReceived)
}

// Unwrap returns session.ErrTimeout to support error wrapping.
func (e *TimeoutError) Unwrap() error {
	return session.ErrTimeout
}

// RunError aggregates the errors of every failed case in a suite run.
type RunError struct {
	Suite       string
	CaseErrors  []error
	TotalCases  int
	FailedCases int
}

// NewRunError creates an empty RunError for suite.
func NewRunError(suite string, total int) *RunError {
	return &RunError{Suite: suite, TotalCases: total}
}

// AddCase adds a case error and increments the failed case count.
func (e *RunError) AddCase(err error) {
	e.CaseErrors = append(e.CaseErrors, err)
	e.FailedCases++
}

// Error implements the error interface for RunError.
func (e *RunError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("suite %s: %d/%d cases failed", e.Suite, e.FailedCases, e.TotalCases))
	if len(e.CaseErrors) > 0 {
		sb.WriteString(":")
		for _, err := range e.CaseErrors {
			sb.WriteString(fmt.Sprintf("\n  - %s", err.Error()))
		}
	}
	return sb.String()
}

// Unwrap returns the case errors so errors.Is and errors.As traverse them.
func (e *RunError) Unwrap() []error {
	if len(e.CaseErrors) == 0 {
		return nil
	}
	return e.CaseErrors
}

// IsCaseError checks if the error is or wraps a CaseError.
func IsCaseError(err error) bool {
	if err == nil {
		return false
	}
	var ce *CaseError
	return errors.As(err, &ce)
}

// IsTimeoutError checks if the error is or wraps a TimeoutError or session.ErrTimeout.
func IsTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	var te *TimeoutError
	if errors.As(err, &te) {
		return true
	}
	return errors.Is(err, session.ErrTimeout)
}

// IsRunError checks if the error is or wraps a RunError.
func IsRunError(err error) bool {
	if err == nil {
		return false
	}
	var re *RunError
	return errors.As(err, &re)
}
