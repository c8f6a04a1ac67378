package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"sync"

	"github.com/harrison/uciharness/internal/models"
)

// ModuleIO is the host surface an in-process engine module sees: a pull
// stdin and print callbacks for its two output streams.
type ModuleIO struct {
	// Stdin returns the next input byte, or false at end of input. It never blocks.
	Stdin    func() (byte, bool)
	Print    func(text string)
	PrintErr func(text string)
}

// Module is an engine linked into the harness process. It reads commands
// through io.Stdin until exhaustion or quit and returns when done.
// Returning an error maps to exit code 1.
type Module func(ctx context.Context, io ModuleIO) error

// ModuleFactory instantiates a module. A factory error is a load failure.
type ModuleFactory func() (Module, error)

// ErrModuleNotFound is wrapped by Lookup for unregistered names.
var ErrModuleNotFound = errors.New("module not registered")

// Registry maps module names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ModuleFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ModuleFactory)}
}

// Register adds or replaces a module factory.
func (r *Registry) Register(name string, factory ModuleFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Lookup instantiates the named module.
func (r *Registry) Lookup(name string) (Module, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: %q (no registry configured)", ErrModuleNotFound, name)
	}

	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrModuleNotFound, name)
	}

	module, err := factory()
	if err != nil {
		return nil, fmt.Errorf("load module %q: %w", name, err)
	}
	if module == nil {
		return nil, fmt.Errorf("load module %q: factory returned nil", name)
	}
	return module, nil
}

// Names lists registered modules in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// moduleRun executes a module once over a frozen pull buffer and forwards
// its print callbacks as RawLines. It is shared by the in-process and worker
// backends.
type moduleRun struct {
	module Module
	lines  chan models.RawLine
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	status ExitStatus
}

func newModuleRun(module Module) *moduleRun {
	ctx, cancel := context.WithCancel(context.Background())
	return &moduleRun{
		module: module,
		lines:  make(chan models.RawLine, lineBuffer),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// run blocks until the module returns. A panic is recovered and reported on
// the error stream with exit code 1.
func (m *moduleRun) run(input *PullInput) {
	defer close(m.done)
	defer close(m.lines)
	defer m.cancel()

	m.status = ExitStatus{Code: 0}
	defer func() {
		if r := recover(); r != nil {
			m.emit(models.StreamStderr, fmt.Sprintf("Error: engine module panicked: %v", r))
			m.emit(models.StreamStderr, strings.TrimSpace(string(debug.Stack())))
			m.status = ExitStatus{Code: 1}
		}
	}()

	io := ModuleIO{
		Stdin:    input.Next,
		Print:    func(text string) { m.emit(models.StreamStdout, text) },
		PrintErr: func(text string) { m.emit(models.StreamStderr, text) },
	}
	if err := m.module(m.ctx, io); err != nil {
		m.emit(models.StreamStderr, "Error: "+err.Error())
		m.status = ExitStatus{Code: 1}
	}
}

// emit splits multi-line prints and drops output once the run is cancelled.
func (m *moduleRun) emit(stream models.Stream, text string) {
	for _, line := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
		select {
		case <-m.ctx.Done():
			return
		default:
		}
		select {
		case m.lines <- models.RawLine{Stream: stream, Text: line}:
		case <-m.ctx.Done():
			return
		}
	}
}

func (m *moduleRun) wait(ctx context.Context) (ExitStatus, error) {
	select {
	case <-m.done:
		return m.status, nil
	case <-ctx.Done():
		return ExitStatus{}, ctx.Err()
	}
}
