package executor

import (
	"fmt"
	"sync"
	"time"

	"github.com/harrison/uciharness/internal/models"
)

// HealthAnomaly is a run-level pattern worth a warning, such as an engine
// that stopped starting or cases that nearly used up their budget.
type HealthAnomaly struct {
	Type        string // "consecutive_failures", "high_failure_rate", "near_timeout"
	Description string
	Severity    string // "low", "medium", "high"
	CaseName    string // Empty for run-wide findings
}

func (a HealthAnomaly) String() string {
	if a.CaseName == "" {
		return fmt.Sprintf("[%s] %s", a.Severity, a.Description)
	}
	return fmt.Sprintf("[%s] %s (case %s)", a.Severity, a.Description, a.CaseName)
}

// HealthConfig holds the thresholds for run health checks
type HealthConfig struct {
	// ConsecutiveFailureThreshold triggers after N failing cases in a row (default: 3)
	ConsecutiveFailureThreshold int

	// FailureRateThreshold triggers when the failing share reaches this rate (0.0-1.0, default: 0.5)
	FailureRateThreshold float64

	// BudgetUseThreshold triggers when a case that did not time out used this
	// share of its session budget (0.0-1.0, default: 0.8)
	BudgetUseThreshold float64
}

// DefaultHealthConfig returns the default thresholds
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		ConsecutiveFailureThreshold: 3,
		FailureRateThreshold:        0.5,
		BudgetUseThreshold:          0.8,
	}
}

// HealthMonitor watches case results of one run for patterns that point at
// the engine or the environment rather than at single cases.
// It is safe for concurrent use.
type HealthMonitor struct {
	mu                  sync.Mutex
	config              HealthConfig
	consecutiveFailures int
	total               int
	failed              int
}

// NewHealthMonitor creates a HealthMonitor
func NewHealthMonitor(config HealthConfig) *HealthMonitor {
	return &HealthMonitor{config: config}
}

// RecordResult records a case result and returns the anomalies it reveals.
// budget is the session budget the case ran with.
func (hm *HealthMonitor) RecordResult(result models.TestResult, budget time.Duration) []HealthAnomaly {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	hm.total++
	var anomalies []HealthAnomaly

	if !result.Passed {
		hm.consecutiveFailures++
		hm.failed++

		if hm.consecutiveFailures >= hm.config.ConsecutiveFailureThreshold {
			anomalies = append(anomalies, HealthAnomaly{
				Type:        "consecutive_failures",
				Description: fmt.Sprintf("%d consecutive failing cases, last verdict %s", hm.consecutiveFailures, result.Verdict),
				Severity:    hm.consecutiveFailureSeverity(),
				CaseName:    result.Case.Name,
			})
		}

		rate := float64(hm.failed) / float64(hm.total)
		if hm.total >= 3 && rate >= hm.config.FailureRateThreshold {
			anomalies = append(anomalies, HealthAnomaly{
				Type:        "high_failure_rate",
				Description: fmt.Sprintf("%.0f%% of cases failing (%.0f%% threshold)", rate*100, hm.config.FailureRateThreshold*100),
				Severity:    failureRateSeverity(rate),
				CaseName:    result.Case.Name,
			})
		}
	} else {
		hm.consecutiveFailures = 0
	}

	if result.Verdict != models.VerdictTimeout && budget > 0 && result.Duration > 0 {
		used := float64(result.Duration) / float64(budget)
		if used >= hm.config.BudgetUseThreshold {
			anomalies = append(anomalies, HealthAnomaly{
				Type: "near_timeout",
				Description: fmt.Sprintf("case used %.0f%% of its %s budget (%s)",
					used*100, budget, result.Duration.Round(time.Millisecond)),
				Severity: budgetSeverity(used),
				CaseName: result.Case.Name,
			})
		}
	}

	return anomalies
}

// CheckHealth returns the run-wide assessment once every case was recorded.
func (hm *HealthMonitor) CheckHealth() (healthy bool, anomalies []HealthAnomaly) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	if hm.total == 0 {
		return true, nil
	}

	rate := float64(hm.failed) / float64(hm.total)
	if rate >= hm.config.FailureRateThreshold {
		anomalies = append(anomalies, HealthAnomaly{
			Type:        "high_failure_rate",
			Description: fmt.Sprintf("run completed with %.0f%% failing cases", rate*100),
			Severity:    failureRateSeverity(rate),
		})
	}
	if hm.consecutiveFailures >= hm.config.ConsecutiveFailureThreshold {
		anomalies = append(anomalies, HealthAnomaly{
			Type:        "consecutive_failures",
			Description: fmt.Sprintf("run ended with %d consecutive failing cases", hm.consecutiveFailures),
			Severity:    "high",
		})
	}

	return len(anomalies) == 0, anomalies
}

// Stats returns the recorded totals
func (hm *HealthMonitor) Stats() (total, failed, consecutive int) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	return hm.total, hm.failed, hm.consecutiveFailures
}

func (hm *HealthMonitor) consecutiveFailureSeverity() string {
	if hm.consecutiveFailures >= 5 {
		return "high"
	} else if hm.consecutiveFailures >= 4 {
		return "medium"
	}
	return "low"
}

func failureRateSeverity(rate float64) string {
	if rate >= 0.8 {
		return "high"
	} else if rate >= 0.6 {
		return "medium"
	}
	return "low"
}

func budgetSeverity(used float64) string {
	if used >= 0.95 {
		return "high"
	} else if used >= 0.9 {
		return "medium"
	}
	return "low"
}
