package engine

import (
	"context"
	"sync"

	"github.com/harrison/uciharness/internal/models"
)

// workerEndpoint hosts a Module on a dedicated goroutine that behaves like a
// single-threaded worker: it waits for exactly one inbound message carrying
// the pre-joined command buffer, runs the module over it, and posts each
// output line back. Terminating the endpoint closes the worker.
type workerEndpoint struct {
	mu         sync.Mutex
	pending    []models.Command
	posted     bool
	terminated bool

	inbox chan *PullInput
	run   *moduleRun
}

func startWorker(module Module) *workerEndpoint {
	w := &workerEndpoint{
		inbox: make(chan *PullInput, 1),
		run:   newModuleRun(module),
	}
	go w.host()
	return w
}

func (w *workerEndpoint) host() {
	select {
	case input := <-w.inbox:
		w.run.run(input)
	case <-w.run.ctx.Done():
		w.run.status = ExitStatus{Code: -1, Signal: "terminated"}
		close(w.run.lines)
		close(w.run.done)
	}
}

func (w *workerEndpoint) Send(cmd models.Command) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.posted || w.terminated {
		return ErrInputClosed
	}
	w.pending = append(w.pending, cmd)
	return nil
}

// CloseInput posts the joined buffer to the worker.
func (w *workerEndpoint) CloseInput() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.posted || w.terminated {
		return nil
	}
	w.posted = true
	input := NewPullInput(w.pending...)
	input.Close()
	w.inbox <- input
	return nil
}

func (w *workerEndpoint) Lines() <-chan models.RawLine {
	return w.run.lines
}

func (w *workerEndpoint) Wait(ctx context.Context) (ExitStatus, error) {
	return w.run.wait(ctx)
}

func (w *workerEndpoint) Terminate() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.terminated {
		return nil
	}
	w.terminated = true
	w.run.cancel()
	return nil
}
