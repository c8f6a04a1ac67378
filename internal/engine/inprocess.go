package engine

import (
	"context"
	"sync"

	"github.com/harrison/uciharness/internal/models"
)

// callbackEndpoint runs a Module in the harness process. Because the module
// pulls its stdin without blocking, sent commands are buffered and the module
// is invoked once input is closed.
type callbackEndpoint struct {
	mu         sync.Mutex
	input      *PullInput
	run        *moduleRun
	started    bool
	terminated bool
}

func newCallbackEndpoint(module Module) *callbackEndpoint {
	return &callbackEndpoint{
		input: NewPullInput(),
		run:   newModuleRun(module),
	}
}

func (c *callbackEndpoint) Send(cmd models.Command) error {
	return c.input.Queue(cmd)
}

func (c *callbackEndpoint) CloseInput() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started || c.terminated {
		return nil
	}
	c.started = true
	c.input.Close()
	go c.run.run(c.input)
	return nil
}

func (c *callbackEndpoint) Lines() <-chan models.RawLine {
	return c.run.lines
}

func (c *callbackEndpoint) Wait(ctx context.Context) (ExitStatus, error) {
	return c.run.wait(ctx)
}

func (c *callbackEndpoint) Terminate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.terminated {
		return nil
	}
	c.terminated = true
	c.input.Close()
	c.run.cancel()
	if !c.started {
		// Never invoked: close the streams the module would have closed.
		c.run.status = ExitStatus{Code: -1, Signal: "terminated"}
		close(c.run.lines)
		close(c.run.done)
	}
	return nil
}
