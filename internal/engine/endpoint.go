// Package engine hosts one running engine instance behind a uniform
// Endpoint, whether it is an OS subprocess, an in-process module driven
// through print/printErr callbacks, or a module hosted on a worker goroutine.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/harrison/uciharness/internal/models"
)

// Backend names the hosting mechanism behind an Endpoint.
type Backend string

// Supported backends
const (
	BackendSubprocess Backend = "subprocess"
	BackendInProcess  Backend = "inprocess"
	BackendWorker     Backend = "worker"
)

// ParseBackend validates a backend name from config or flags.
func ParseBackend(name string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(name))); b {
	case BackendSubprocess, BackendInProcess, BackendWorker:
		return b, nil
	default:
		return "", fmt.Errorf("unknown engine backend %q, must be one of: subprocess, inprocess, worker", name)
	}
}

// lineBuffer is the capacity of every endpoint's output channel.
const lineBuffer = 256

// ExitStatus describes how an endpoint ended.
type ExitStatus struct {
	Code   int
	Signal string // Set when a subprocess was killed by a signal
}

// Exited reports whether the endpoint ended with status zero and no signal.
func (s ExitStatus) Exited() bool {
	return s.Code == 0 && s.Signal == ""
}

// Endpoint is one running engine instance.
type Endpoint interface {
	// Send queues a command for delivery. Commands are delivered in order.
	Send(cmd models.Command) error
	// CloseInput signals end of input.
	CloseInput() error
	// Lines streams engine output. The channel is closed once every output
	// stream of the endpoint has ended. Order is preserved within a stream.
	Lines() <-chan models.RawLine
	// Wait blocks until the endpoint ends or ctx is done.
	Wait(ctx context.Context) (ExitStatus, error)
	// Terminate kills the endpoint. It is idempotent and safe after exit.
	Terminate() error
}

// Config selects and parameterises a backend. Paths and module names are
// the engine provider's contract and are passed through unvalidated.
type Config struct {
	Backend  Backend
	Path     string   // Subprocess: executable
	Args     []string // Subprocess: arguments
	WorkDir  string   // Subprocess: working directory
	Env      []string // Subprocess: extra KEY=VALUE entries
	Module   string   // In-process and worker: registered module name
	Registry *Registry
}

// Target returns the path or module the config launches, for messages.
func (c Config) Target() string {
	if c.Backend == BackendSubprocess {
		return c.Path
	}
	return c.Module
}

// LaunchError reports that an endpoint could not be started.
type LaunchError struct {
	Backend Backend
	Target  string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s engine %q: %v", e.Backend, e.Target, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// IsLaunchFailure reports whether err (or anything it wraps) is a LaunchError.
func IsLaunchFailure(err error) bool {
	var le *LaunchError
	return errors.As(err, &le)
}

// Start launches an endpoint for cfg. Any failure to start is returned as a
// *LaunchError; nothing is reported asynchronously after Start returns.
func Start(ctx context.Context, cfg Config) (Endpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case BackendSubprocess, "":
		cfg.Backend = BackendSubprocess
		return startProcess(cfg)
	case BackendInProcess, BackendWorker:
		module, err := cfg.Registry.Lookup(cfg.Module)
		if err != nil {
			return nil, &LaunchError{Backend: cfg.Backend, Target: cfg.Module, Err: err}
		}
		if cfg.Backend == BackendWorker {
			return startWorker(module), nil
		}
		return newCallbackEndpoint(module), nil
	default:
		return nil, &LaunchError{Backend: cfg.Backend, Target: cfg.Target(), Err: fmt.Errorf("unknown backend")}
	}
}
