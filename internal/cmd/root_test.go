package cmd

import (
	"strings"
	"testing"
)

func TestRootCommand(t *testing.T) {
	output, err := executeCommand(t, "--help")
	if err != nil {
		t.Fatalf("--help returned error: %v", err)
	}
	if !strings.Contains(output, "uciharness") {
		t.Errorf("Help text should mention uciharness, got: %s", output)
	}
	if strings.Contains(output, "mock-engine") {
		t.Errorf("mock-engine should be hidden from help")
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	if cmd.Use != "uciharness" {
		t.Errorf("Expected Use to be 'uciharness', got '%s'", cmd.Use)
	}

	want := []string{"run", "validate", "list", "history", "bestmove", "mock-engine"}
	for _, name := range want {
		found := false
		for _, sub := range cmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected subcommand %q", name)
		}
	}
}

func TestLoadConfigFromFileAndFlags(t *testing.T) {
	home := isolateHome(t)
	cfgPath := writeSuite(t, home, "custom.yaml", `
engine:
  backend: worker
  module: mock
timeout: 5s
max_concurrency: 2
history:
  enabled: true
  db_path: .uciharness/runs.db
`)

	cmd := NewRunCommand()
	NewRootCommand().AddCommand(cmd)
	if err := cmd.ParseFlags([]string{"--config", cfgPath, "--max-concurrency", "3", "--log-dir", ""}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Engine.Backend != "worker" {
		t.Errorf("backend = %q, want worker", cfg.Engine.Backend)
	}
	if cfg.MaxConcurrency != 3 {
		t.Errorf("max concurrency = %d, flag should win", cfg.MaxConcurrency)
	}
	if cfg.LogDir != "" {
		t.Errorf("log dir = %q, want empty", cfg.LogDir)
	}
	if !strings.HasPrefix(cfg.History.DBPath, home) {
		t.Errorf("db path %q should be resolved under %q", cfg.History.DBPath, home)
	}
}

func TestSuiteReportPath(t *testing.T) {
	tests := map[string][2]string{
		"out/report.json":  {"protocol", "out/report-protocol.json"},
		"report":           {"black sequences", "report-black-sequences"},
		"/tmp/r.json":      {"A/B", "/tmp/r-A-B.json"},
		"nested.dir/r.out": {"x", "nested.dir/r-x.out"},
	}
	for path, tc := range tests {
		if got := suiteReportPath(path, tc[0]); got != tc[1] {
			t.Errorf("suiteReportPath(%q, %q) = %q, want %q", path, tc[0], got, tc[1])
		}
	}
}
