package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/harrison/uciharness/internal/models"
)

// waitDelay bounds how long Wait keeps pipes open after the process is killed.
const waitDelay = 2 * time.Second

// maxLineBytes caps a single output line; board dumps and info lines are far smaller.
const maxLineBytes = 1 << 20

// processEndpoint runs the engine as an OS subprocess. Commands reach it
// through a StreamInput on its stdin; stdout and stderr are scanned on
// separate goroutines into one channel.
type processEndpoint struct {
	cmd    *exec.Cmd
	input  *StreamInput
	lines  chan models.RawLine
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	status  ExitStatus
	waitErr error

	terminateOnce sync.Once
}

func startProcess(cfg Config) (*processEndpoint, error) {
	if cfg.Path == "" {
		return nil, &LaunchError{Backend: BackendSubprocess, Err: errors.New("engine path is empty")}
	}

	// The endpoint outlives the launch context; Terminate cancels it.
	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, cfg.Path, cfg.Args...)
	cmd.Dir = cfg.WorkDir
	cmd.WaitDelay = waitDelay
	if len(cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), cfg.Env...)
	}

	launchErr := func(err error) error {
		cancel()
		return &LaunchError{Backend: BackendSubprocess, Target: cfg.Path, Err: err}
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, launchErr(fmt.Errorf("stdin pipe: %w", err))
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, launchErr(fmt.Errorf("stdout pipe: %w", err))
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, launchErr(fmt.Errorf("stderr pipe: %w", err))
	}
	if err := cmd.Start(); err != nil {
		return nil, launchErr(err)
	}

	p := &processEndpoint{
		cmd:    cmd,
		input:  NewStreamInput(stdin),
		lines:  make(chan models.RawLine, lineBuffer),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	var readers sync.WaitGroup
	readers.Add(2)
	go p.scan(stdout, models.StreamStdout, &readers)
	go p.scan(stderr, models.StreamStderr, &readers)

	go func() {
		readers.Wait()
		close(p.lines)
		// Wait must follow the final pipe read.
		p.waitErr = cmd.Wait()
		p.status = exitStatusOf(cmd.ProcessState)
		if p.waitErr != nil && exitErrorOf(p.waitErr) {
			p.waitErr = nil
		}
		cancel()
		close(p.done)
	}()

	return p, nil
}

func (p *processEndpoint) scan(r io.Reader, stream models.Stream, wg *sync.WaitGroup) {
	defer wg.Done()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		select {
		case p.lines <- models.RawLine{Stream: stream, Text: scanner.Text()}:
		case <-p.ctx.Done():
			io.Copy(io.Discard, r)
			return
		}
	}
	// Drain the rest so the process never blocks on a full pipe.
	io.Copy(io.Discard, r)
}

func (p *processEndpoint) Send(cmd models.Command) error {
	return p.input.Queue(cmd)
}

// SendAll writes the pre-joined command buffer and closes stdin.
func (p *processEndpoint) SendAll(cmds []models.Command) error {
	return p.input.WriteAll(cmds)
}

func (p *processEndpoint) CloseInput() error {
	return p.input.Close()
}

func (p *processEndpoint) Lines() <-chan models.RawLine {
	return p.lines
}

func (p *processEndpoint) Wait(ctx context.Context) (ExitStatus, error) {
	select {
	case <-p.done:
		return p.status, p.waitErr
	case <-ctx.Done():
		return ExitStatus{}, ctx.Err()
	}
}

func (p *processEndpoint) Terminate() error {
	p.terminateOnce.Do(func() {
		p.input.Close()
		p.cancel()
	})
	return nil
}

// exitErrorOf reports whether err only describes a non-zero exit, which
// ExitStatus already carries.
func exitErrorOf(err error) bool {
	var ee *exec.ExitError
	return errors.As(err, &ee)
}

func exitStatusOf(state *os.ProcessState) ExitStatus {
	if state == nil {
		return ExitStatus{Code: -1}
	}
	status := ExitStatus{Code: state.ExitCode()}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		status.Signal = ws.Signal().String()
	}
	return status
}
