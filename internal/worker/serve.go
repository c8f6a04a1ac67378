package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// Serve handles exactly one request message read from in and writes either
// the Move or null to out, then returns, which closes the worker. A request
// that cannot be decoded is answered with null as well.
func (b *Bridge) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	var req Request
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		b.warn(fmt.Sprintf("decode request: %v", err))
		return writeReply(out, nil)
	}

	move, err := b.BestMove(ctx, req)
	if err != nil {
		b.warn(fmt.Sprintf("best move: %v", err))
	}
	return writeReply(out, move)
}

func writeReply(out io.Writer, move *Move) error {
	// A nil *Move encodes as null.
	if err := json.NewEncoder(out).Encode(move); err != nil {
		return fmt.Errorf("write reply: %w", err)
	}
	return nil
}
