package engine

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/harrison/uciharness/internal/models"
)

// ErrInputClosed is returned when a command is queued after input was closed.
var ErrInputClosed = errors.New("engine input already closed")

// InputSource delivers commands to an engine. Stream sources write to a sink
// as commands are queued; pull sources accumulate a buffer that the engine
// reads one byte at a time.
type InputSource interface {
	// Queue appends a command for delivery. Order of delivery is order of Queue calls.
	Queue(cmd models.Command) error
	// Close ends input. It is idempotent.
	Close() error
}

// JoinCommands renders commands as the newline-terminated buffer an engine reads.
func JoinCommands(cmds []models.Command) string {
	if len(cmds) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, c := range cmds {
		sb.WriteString(string(c))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// StreamInput writes commands to a writable sink such as a subprocess stdin.
// Closing the sink signals end of input, which engines treat like quit.
type StreamInput struct {
	mu     sync.Mutex
	w      io.WriteCloser
	closed bool
}

// NewStreamInput wraps w.
func NewStreamInput(w io.WriteCloser) *StreamInput {
	return &StreamInput{w: w}
}

// Queue writes cmd followed by a newline.
func (s *StreamInput) Queue(cmd models.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrInputClosed
	}
	if _, err := io.WriteString(s.w, string(cmd)+"\n"); err != nil {
		return fmt.Errorf("write command %q: %w", cmd, err)
	}
	return nil
}

// WriteAll writes the pre-joined buffer in one call and closes the sink.
func (s *StreamInput) WriteAll(cmds []models.Command) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrInputClosed
	}
	_, err := io.WriteString(s.w, JoinCommands(cmds))
	s.mu.Unlock()
	if err != nil {
		s.Close()
		return fmt.Errorf("write commands: %w", err)
	}
	return s.Close()
}

// Close closes the sink once.
func (s *StreamInput) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.w.Close()
}

// PullInput serves a synthetic stdin buffer one byte per call, the way an
// embedded engine reads its input through a character callback. Next never
// blocks: when the buffer is exhausted it reports exhaustion immediately.
type PullInput struct {
	mu     sync.Mutex
	buf    []byte
	pos    int
	closed bool
}

// NewPullInput returns a pull source pre-loaded with cmds.
func NewPullInput(cmds ...models.Command) *PullInput {
	return &PullInput{buf: []byte(JoinCommands(cmds))}
}

// Queue appends cmd to the buffer.
func (p *PullInput) Queue(cmd models.Command) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrInputClosed
	}
	p.buf = append(p.buf, cmd...)
	p.buf = append(p.buf, '\n')
	return nil
}

// Close freezes the buffer.
func (p *PullInput) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

// Next returns the next byte, or false once the buffer is exhausted.
func (p *PullInput) Next() (byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pos >= len(p.buf) {
		return 0, false
	}
	b := p.buf[p.pos]
	p.pos++
	return b, true
}

// Remaining returns the number of unread bytes.
func (p *PullInput) Remaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buf) - p.pos
}
