package stream

import (
	"encoding/json"
	"strings"
)

const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"

	// maxCarryover bounds the internal buffer so a malformed line that keeps
	// failing to parse cannot hold the decoder hostage waiting for bytes that
	// never complete it.
	maxCarryover = 256 << 10
)

// completionChunk mirrors the wire shape of one streamed completion record.
type completionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Decoder incrementally extracts text deltas from an event-stream formatted
// completion response. Chunks may split lines at arbitrary byte offsets; the
// decoder carries partial lines across calls. One Decoder per stream.
type Decoder struct {
	buffer string
	done   bool
}

// NewDecoder returns a decoder ready to receive the first chunk.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Done reports whether the termination sentinel has been observed.
func (d *Decoder) Done() bool {
	return d.done
}

// Feed appends one raw chunk and returns the deltas it completed, in arrival
// order. Once the [DONE] sentinel is seen, Feed returns done=true and ignores
// any further input.
func (d *Decoder) Feed(chunk []byte) (deltas []string, done bool) {
	if d.done {
		return nil, true
	}

	d.buffer += string(chunk)

	for {
		idx := strings.IndexByte(d.buffer, '\n')
		if idx < 0 {
			break
		}

		line := d.buffer[:idx]
		d.buffer = d.buffer[idx+1:]

		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}

		payload := strings.TrimSpace(line[len(dataPrefix):])
		if payload == doneSentinel {
			d.done = true
			return deltas, true
		}

		var record completionChunk
		if err := json.Unmarshal([]byte(payload), &record); err != nil {
			// The line was probably not complete: a payload split that
			// happened to land on a newline. Put it back and wait for
			// more bytes instead of discarding it.
			d.buffer = line + "\n" + d.buffer
			break
		}

		if len(record.Choices) > 0 {
			if content := record.Choices[0].Delta.Content; content != "" {
				deltas = append(deltas, content)
			}
		}
	}

	if len(d.buffer) > maxCarryover {
		d.dropHeldLine()
	}

	return deltas, false
}

// dropHeldLine discards the line at the front of the buffer so scanning can
// resume past input that will never parse.
func (d *Decoder) dropHeldLine() {
	if idx := strings.IndexByte(d.buffer, '\n'); idx >= 0 {
		d.buffer = d.buffer[idx+1:]
		return
	}
	d.buffer = ""
}
