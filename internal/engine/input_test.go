package engine

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/uciharness/internal/models"
)

// recordingSink is an io.WriteCloser that remembers writes and closes.
// The buffer is a named field so io.WriteString goes through Write.
type recordingSink struct {
	buf    bytes.Buffer
	writes int
	closes int
	err    error
}

func (s *recordingSink) Write(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.writes++
	return s.buf.Write(p)
}

func (s *recordingSink) String() string {
	return s.buf.String()
}

func (s *recordingSink) Close() error {
	s.closes++
	return nil
}

func TestJoinCommands(t *testing.T) {
	assert.Equal(t, "", JoinCommands(nil))
	assert.Equal(t, "uci\nisready\nquit\n", JoinCommands([]models.Command{"uci", "isready", "quit"}))
}

func TestStreamInputQueue(t *testing.T) {
	sink := &recordingSink{}
	in := NewStreamInput(sink)

	require.NoError(t, in.Queue("uci"))
	require.NoError(t, in.Queue("isready"))
	assert.Equal(t, "uci\nisready\n", sink.String())
	assert.Equal(t, 2, sink.writes)

	require.NoError(t, in.Close())
	require.NoError(t, in.Close())
	assert.Equal(t, 1, sink.closes, "close is idempotent")
	assert.ErrorIs(t, in.Queue("quit"), ErrInputClosed)
}

func TestStreamInputWriteAll(t *testing.T) {
	sink := &recordingSink{}
	in := NewStreamInput(sink)

	require.NoError(t, in.WriteAll([]models.Command{"uci", "go depth 3", "quit"}))
	assert.Equal(t, "uci\ngo depth 3\nquit\n", sink.String())
	assert.Equal(t, 1, sink.writes, "the pre-joined buffer is written once")
	assert.Equal(t, 1, sink.closes)
	assert.ErrorIs(t, in.WriteAll([]models.Command{"uci"}), ErrInputClosed)
}

func TestStreamInputWriteFailureCloses(t *testing.T) {
	sink := &recordingSink{err: errors.New("broken pipe")}
	in := NewStreamInput(sink)

	err := in.WriteAll([]models.Command{"uci"})
	assert.ErrorContains(t, err, "broken pipe")
	assert.Equal(t, 0, sink.writes)
	assert.Equal(t, 1, sink.closes)
	assert.ErrorIs(t, in.Queue("quit"), ErrInputClosed)
}

func TestStreamInputQueueFailure(t *testing.T) {
	sink := &recordingSink{err: errors.New("broken pipe")}
	in := NewStreamInput(sink)

	err := in.Queue("uci")
	assert.ErrorContains(t, err, `write command "uci"`)
	assert.ErrorContains(t, err, "broken pipe")
	assert.Equal(t, 0, sink.closes, "a failed queue leaves closing to the caller")
}

func TestPullInputNeverBlocks(t *testing.T) {
	in := NewPullInput("uci")
	require.NoError(t, in.Queue("quit"))
	require.NoError(t, in.Close())
	assert.ErrorIs(t, in.Queue("isready"), ErrInputClosed)

	var got []byte
	for {
		b, ok := in.Next()
		if !ok {
			break
		}
		got = append(got, b)
	}
	assert.Equal(t, "uci\nquit\n", string(got))
	assert.Equal(t, 0, in.Remaining())

	// Exhaustion is reported again, immediately.
	_, ok := in.Next()
	assert.False(t, ok)
}

func TestPullInputEmpty(t *testing.T) {
	in := NewPullInput()
	_, ok := in.Next()
	assert.False(t, ok)
}

func TestParseBackend(t *testing.T) {
	for _, name := range []string{"subprocess", "InProcess", " worker "} {
		_, err := ParseBackend(name)
		assert.NoError(t, err, name)
	}
	_, err := ParseBackend("wasm")
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Register("b", func() (Module, error) {
		return func(ctx context.Context, io ModuleIO) error { return nil }, nil
	})
	reg.Register("a", func() (Module, error) { return nil, errors.New("wasm load failed") })
	reg.Register("nil", func() (Module, error) { return nil, nil })

	assert.Equal(t, []string{"a", "b", "nil"}, reg.Names())

	_, err := reg.Lookup("b")
	assert.NoError(t, err)

	_, err = reg.Lookup("a")
	assert.ErrorContains(t, err, "wasm load failed")

	_, err = reg.Lookup("nil")
	assert.Error(t, err)

	_, err = reg.Lookup("missing")
	assert.ErrorIs(t, err, ErrModuleNotFound)

	var none *Registry
	_, err = none.Lookup("b")
	assert.ErrorIs(t, err, ErrModuleNotFound)
}
