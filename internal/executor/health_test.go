package executor

import (
	"strings"
	"testing"
	"time"

	"github.com/harrison/uciharness/internal/models"
)

func caseResult(name string, passed bool, verdict models.Verdict, d time.Duration) models.TestResult {
	return models.TestResult{
		Case:     models.TestCase{Name: name},
		Verdict:  verdict,
		Passed:   passed,
		Duration: d,
	}
}

func TestDefaultHealthConfig(t *testing.T) {
	cfg := DefaultHealthConfig()
	if cfg.ConsecutiveFailureThreshold != 3 {
		t.Errorf("Expected ConsecutiveFailureThreshold 3, got %d", cfg.ConsecutiveFailureThreshold)
	}
	if cfg.FailureRateThreshold != 0.5 {
		t.Errorf("Expected FailureRateThreshold 0.5, got %f", cfg.FailureRateThreshold)
	}
	if cfg.BudgetUseThreshold != 0.8 {
		t.Errorf("Expected BudgetUseThreshold 0.8, got %f", cfg.BudgetUseThreshold)
	}
}

func TestHealthMonitor_ConsecutiveFailures(t *testing.T) {
	monitor := NewHealthMonitor(HealthConfig{
		ConsecutiveFailureThreshold: 3,
		FailureRateThreshold:        1.1, // Never triggers
	})

	for i := 0; i < 2; i++ {
		if anomalies := monitor.RecordResult(caseResult("c", false, models.VerdictLaunchFailure, 0), 0); len(anomalies) != 0 {
			t.Fatalf("Expected no anomalies after %d failure(s), got %v", i+1, anomalies)
		}
	}

	anomalies := monitor.RecordResult(caseResult("third", false, models.VerdictLaunchFailure, 0), 0)
	if len(anomalies) != 1 {
		t.Fatalf("Expected 1 anomaly, got %d", len(anomalies))
	}
	a := anomalies[0]
	if a.Type != "consecutive_failures" || a.Severity != "low" || a.CaseName != "third" {
		t.Errorf("Unexpected anomaly: %+v", a)
	}
	if !strings.Contains(a.String(), "last verdict launch-failure") {
		t.Errorf("Unexpected description: %s", a)
	}

	monitor.RecordResult(caseResult("ok", true, models.VerdictPass, 0), 0)
	if _, _, consecutive := monitor.Stats(); consecutive != 0 {
		t.Errorf("Expected a pass to reset the streak, got %d", consecutive)
	}
}

func TestHealthMonitor_FailureRate(t *testing.T) {
	monitor := NewHealthMonitor(HealthConfig{
		ConsecutiveFailureThreshold: 10,
		FailureRateThreshold:        0.5,
	})

	monitor.RecordResult(caseResult("a", true, models.VerdictPass, 0), 0)
	if anomalies := monitor.RecordResult(caseResult("b", false, models.VerdictFail, 0), 0); len(anomalies) != 0 {
		t.Errorf("Rate needs at least 3 cases, got %v", anomalies)
	}
	anomalies := monitor.RecordResult(caseResult("c", false, models.VerdictFail, 0), 0)
	if len(anomalies) != 1 || anomalies[0].Type != "high_failure_rate" {
		t.Fatalf("Expected high_failure_rate, got %v", anomalies)
	}
	if anomalies[0].Severity != "medium" {
		t.Errorf("Expected medium severity at 67%%, got %s", anomalies[0].Severity)
	}
}

func TestHealthMonitor_NearTimeout(t *testing.T) {
	monitor := NewHealthMonitor(DefaultHealthConfig())
	budget := 10 * time.Second

	if anomalies := monitor.RecordResult(caseResult("quick", true, models.VerdictPass, time.Second), budget); len(anomalies) != 0 {
		t.Errorf("Expected no anomalies, got %v", anomalies)
	}

	anomalies := monitor.RecordResult(caseResult("slow", true, models.VerdictPass, 9600*time.Millisecond), budget)
	if len(anomalies) != 1 || anomalies[0].Type != "near_timeout" || anomalies[0].Severity != "high" {
		t.Fatalf("Expected high near_timeout, got %v", anomalies)
	}

	// A timed-out case is reported by its verdict, not as a near miss
	if anomalies := monitor.RecordResult(caseResult("hung", true, models.VerdictTimeout, budget), budget); len(anomalies) != 0 {
		t.Errorf("Expected no anomalies for a timeout verdict, got %v", anomalies)
	}
}

func TestHealthMonitor_CheckHealth(t *testing.T) {
	monitor := NewHealthMonitor(DefaultHealthConfig())
	if healthy, anomalies := monitor.CheckHealth(); !healthy || len(anomalies) != 0 {
		t.Errorf("Empty run should be healthy")
	}

	monitor.RecordResult(caseResult("a", true, models.VerdictPass, 0), 0)
	if healthy, _ := monitor.CheckHealth(); !healthy {
		t.Errorf("Passing run should be healthy")
	}

	for _, name := range []string{"b", "c", "d"} {
		monitor.RecordResult(caseResult(name, false, models.VerdictTimeout, 0), 0)
	}
	healthy, anomalies := monitor.CheckHealth()
	if healthy {
		t.Fatal("Expected unhealthy run")
	}
	types := map[string]bool{}
	for _, a := range anomalies {
		types[a.Type] = true
		if a.CaseName != "" {
			t.Errorf("Run-wide anomaly should not name a case: %+v", a)
		}
	}
	if !types["high_failure_rate"] || !types["consecutive_failures"] {
		t.Errorf("Expected rate and streak anomalies, got %v", anomalies)
	}

	total, failed, consecutive := monitor.Stats()
	if total != 4 || failed != 3 || consecutive != 3 {
		t.Errorf("Stats() = %d, %d, %d", total, failed, consecutive)
	}
}
