package stream

import (
	"context"
	"errors"
	"io"
)

// readChunkSize matches the granularity network reads typically arrive in.
const readChunkSize = 4096

// Read drains body through a fresh decoder, invoking onDelta once per
// extracted delta in strict arrival order. It returns nil when the stream
// ends cleanly (EOF or the [DONE] sentinel) and the underlying read error
// otherwise. A nil body is treated as an already-finished stream.
func Read(ctx context.Context, body io.Reader, onDelta func(delta string)) error {
	if body == nil {
		return nil
	}

	decoder := NewDecoder()
	buf := make([]byte, readChunkSize)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, readErr := body.Read(buf)
		if n > 0 {
			deltas, done := decoder.Feed(buf[:n])
			for _, delta := range deltas {
				onDelta(delta)
			}
			if done {
				return nil
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			return readErr
		}
	}
}
