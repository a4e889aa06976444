package voice

import "strings"

// TurnBuffer accumulates streamed agent deltas until the turn is complete.
// The upstream protocol does not reliably emit an explicit end-of-turn event
// for every agent utterance, so the buffer also treats a speaking→idle
// transition as a completion signal.
type TurnBuffer struct {
	pending  strings.Builder
	speaking bool
}

// NewTurnBuffer returns an empty buffer.
func NewTurnBuffer() *TurnBuffer {
	return &TurnBuffer{}
}

// Append adds one streamed delta to the pending utterance.
func (b *TurnBuffer) Append(delta string) {
	b.pending.WriteString(delta)
}

// Len reports how many bytes are currently buffered.
func (b *TurnBuffer) Len() int {
	return b.pending.Len()
}

// FinalizeExplicit closes the turn on an explicit final event. Buffered
// content wins; eventText is used only when nothing was buffered.
func (b *TurnBuffer) FinalizeExplicit(eventText string) (string, bool) {
	if b.pending.Len() > 0 {
		return b.Flush()
	}
	text := strings.TrimSpace(eventText)
	if text == "" {
		return "", false
	}
	return text, true
}

// ObserveSpeaking samples the agent speaking indicator. A true→false
// transition with a non-empty buffer closes the turn.
func (b *TurnBuffer) ObserveSpeaking(speaking bool) (string, bool) {
	wasSpeaking := b.speaking
	b.speaking = speaking
	if wasSpeaking && !speaking && b.pending.Len() > 0 {
		return b.Flush()
	}
	return "", false
}

// Flush force-closes the pending utterance, as on session disconnect. The
// buffer is always cleared; an utterance that trims to empty is not emitted.
func (b *TurnBuffer) Flush() (string, bool) {
	text := strings.TrimSpace(b.pending.String())
	b.pending.Reset()
	if text == "" {
		return "", false
	}
	return text, true
}

// Reset clears all buffered state for a fresh session.
func (b *TurnBuffer) Reset() {
	b.pending.Reset()
	b.speaking = false
}
