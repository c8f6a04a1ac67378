package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harrison/uciharness/internal/engine"
)

// EngineConfig describes the engine under test
type EngineConfig struct {
	// Backend selects how the engine is hosted (subprocess, inprocess, worker)
	Backend string `yaml:"backend"`

	// Path is the engine executable for the subprocess backend
	Path string `yaml:"path"`

	// Args are passed to the engine executable
	Args []string `yaml:"args"`

	// WorkDir is the working directory of the engine process
	WorkDir string `yaml:"work_dir"`

	// Module is the registered module name for the inprocess and worker backends
	Module string `yaml:"module"`
}

// HistoryConfig represents run history configuration
type HistoryConfig struct {
	// Enabled records every run in the history database
	Enabled bool `yaml:"enabled"`

	// DBPath is the path to the SQLite history database
	DBPath string `yaml:"db_path"`
}

// Config represents harness configuration options
type Config struct {
	// Engine describes the engine under test
	Engine EngineConfig `yaml:"engine"`

	// Timeout is the session budget for each case
	Timeout time.Duration `yaml:"timeout"`

	// TestDelay is the pause between consecutive cases
	TestDelay time.Duration `yaml:"test_delay"`

	// MaxConcurrency is the number of cases run at once (1 = sequential)
	MaxConcurrency int `yaml:"max_concurrency"`

	// Prejoined delivers the whole script as one buffer instead of line by line
	Prejoined bool `yaml:"prejoined"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where run logs and case transcripts are written
	LogDir string `yaml:"log_dir"`

	// ReportPath is where the JSON run report is written (empty = no report)
	ReportPath string `yaml:"report_path"`

	// History contains run history configuration
	History HistoryConfig `yaml:"history"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Backend: string(engine.BackendInProcess),
			Module:  "mock",
		},
		Timeout:        30 * time.Second,
		TestDelay:      100 * time.Millisecond,
		MaxConcurrency: 1,
		LogLevel:       "info",
		LogDir:         ".uciharness/logs",
		History: HistoryConfig{
			Enabled: true,
			DBPath:  ".uciharness/history.db",
		},
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Pointer fields distinguish "absent" from an explicit zero value
	type yamlEngine struct {
		Backend *string  `yaml:"backend"`
		Path    *string  `yaml:"path"`
		Args    []string `yaml:"args"`
		WorkDir *string  `yaml:"work_dir"`
		Module  *string  `yaml:"module"`
	}
	type yamlHistory struct {
		Enabled *bool   `yaml:"enabled"`
		DBPath  *string `yaml:"db_path"`
	}
	type yamlConfig struct {
		Engine         *yamlEngine  `yaml:"engine"`
		Timeout        *string      `yaml:"timeout"`
		TestDelay      *string      `yaml:"test_delay"`
		MaxConcurrency *int         `yaml:"max_concurrency"`
		Prejoined      *bool        `yaml:"prejoined"`
		LogLevel       string       `yaml:"log_level"`
		LogDir         string       `yaml:"log_dir"`
		ReportPath     *string      `yaml:"report_path"`
		History        *yamlHistory `yaml:"history"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if e := yamlCfg.Engine; e != nil {
		setString(&cfg.Engine.Backend, e.Backend)
		setString(&cfg.Engine.Path, e.Path)
		setString(&cfg.Engine.WorkDir, e.WorkDir)
		setString(&cfg.Engine.Module, e.Module)
		if e.Args != nil {
			cfg.Engine.Args = e.Args
		}
	}
	if yamlCfg.Timeout != nil {
		d, err := parseDuration("timeout", *yamlCfg.Timeout)
		if err != nil {
			return nil, err
		}
		cfg.Timeout = d
	}
	if yamlCfg.TestDelay != nil {
		d, err := parseDuration("test_delay", *yamlCfg.TestDelay)
		if err != nil {
			return nil, err
		}
		cfg.TestDelay = d
	}
	if yamlCfg.MaxConcurrency != nil {
		cfg.MaxConcurrency = *yamlCfg.MaxConcurrency
	}
	if yamlCfg.Prejoined != nil {
		cfg.Prejoined = *yamlCfg.Prejoined
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.LogDir != "" {
		cfg.LogDir = yamlCfg.LogDir
	}
	setString(&cfg.ReportPath, yamlCfg.ReportPath)
	if h := yamlCfg.History; h != nil {
		if h.Enabled != nil {
			cfg.History.Enabled = *h.Enabled
		}
		setString(&cfg.History.DBPath, h.DBPath)
	}

	return cfg, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func parseDuration(key, s string) (time.Duration, error) {
	if s == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s format %q: %w", key, s, err)
	}
	return d, nil
}

// LoadConfigFromDir loads configuration from .uciharness/config.yaml in the specified directory
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, HomeDirName, "config.yaml"))
}

// Flags carries CLI flag values; nil fields were not set on the command line.
type Flags struct {
	Backend        *string
	EnginePath     *string
	Module         *string
	Timeout        *time.Duration
	TestDelay      *time.Duration
	MaxConcurrency *int
	Prejoined      *bool
	LogLevel       *string
	LogDir         *string
	ReportPath     *string
	NoHistory      *bool
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
// This allows CLI flags to take precedence over config file settings
func (c *Config) MergeWithFlags(f Flags) {
	setString(&c.Engine.Backend, f.Backend)
	setString(&c.Engine.Path, f.EnginePath)
	setString(&c.Engine.Module, f.Module)
	if f.EnginePath != nil && f.Backend == nil {
		// A path on the command line implies an external engine
		c.Engine.Backend = string(engine.BackendSubprocess)
	}
	if f.Timeout != nil {
		c.Timeout = *f.Timeout
	}
	if f.TestDelay != nil {
		c.TestDelay = *f.TestDelay
	}
	if f.MaxConcurrency != nil {
		c.MaxConcurrency = *f.MaxConcurrency
	}
	if f.Prejoined != nil {
		c.Prejoined = *f.Prejoined
	}
	setString(&c.LogLevel, f.LogLevel)
	setString(&c.LogDir, f.LogDir)
	setString(&c.ReportPath, f.ReportPath)
	if f.NoHistory != nil && *f.NoHistory {
		c.History.Enabled = false
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	backend, err := engine.ParseBackend(c.Engine.Backend)
	if err != nil {
		return fmt.Errorf("engine.backend: %w", err)
	}
	switch backend {
	case engine.BackendSubprocess:
		if c.Engine.Path == "" {
			return fmt.Errorf("engine.path is required for the subprocess backend")
		}
	default:
		if c.Engine.Module == "" {
			return fmt.Errorf("engine.module is required for the %s backend", backend)
		}
	}

	if c.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be >= 1, got %d", c.MaxConcurrency)
	}

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	// Timeout 0 is a legal, already-expired budget
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}
	if c.TestDelay < 0 {
		return fmt.Errorf("test_delay must be >= 0, got %v", c.TestDelay)
	}

	if c.History.Enabled && c.History.DBPath == "" {
		return fmt.Errorf("history.db_path cannot be empty when history is enabled")
	}

	return nil
}

// EndpointConfig converts the engine section into an endpoint configuration
// using reg for module lookups.
func (c *Config) EndpointConfig(reg *engine.Registry) (engine.Config, error) {
	backend, err := engine.ParseBackend(c.Engine.Backend)
	if err != nil {
		return engine.Config{}, err
	}
	return engine.Config{
		Backend:  backend,
		Path:     c.Engine.Path,
		Args:     c.Engine.Args,
		WorkDir:  c.Engine.WorkDir,
		Module:   c.Engine.Module,
		Registry: reg,
	}, nil
}
