package voice

import "encoding/json"

// Kind tags the outcome of classifying one raw transport event.
type Kind int

const (
	KindIgnored Kind = iota
	KindUserFinal
	KindAgentFinal
	KindAgentDelta
	KindAgentDone
)

// Classification is the tagged result of shape-matching a raw event.
// KindAgentDelta text belongs in the turn buffer, not the history;
// KindAgentDone closes whatever is buffered (Text may be empty).
type Classification struct {
	Kind Kind
	Text string
}

// rule pairs a recognizable event shape with its extractor. Rules are
// evaluated in order and the first match wins, so an event matching several
// heuristics still yields exactly one classification.
type rule func(event map[string]any) (Classification, bool)

// The upstream agent platform does not hold its event schema stable across
// releases, so classification is deliberately permissive: an ordered set of
// shape heuristics, with anything unrecognized falling through to ignored.
var rules = []rule{
	typedUserTranscript,
	typedAgentResponse,
	flatTranscriptFields,
	textWithRole,
	finalTranscriptFlag,
	streamingDelta,
	doneMarker,
}

// Classify maps one inbound realtime event of unknown shape to at most one
// classification. It never fails: malformed payloads are ignored.
func Classify(raw json.RawMessage) Classification {
	var event map[string]any
	if err := json.Unmarshal(raw, &event); err != nil || event == nil {
		return Classification{Kind: KindIgnored}
	}

	for _, match := range rules {
		if c, ok := match(event); ok {
			return c
		}
	}
	return Classification{Kind: KindIgnored}
}

// typedUserTranscript matches {"type":"user_transcript","user_transcription_event":{"user_transcript":...}}.
func typedUserTranscript(event map[string]any) (Classification, bool) {
	if stringField(event, "type") != "user_transcript" {
		return Classification{}, false
	}
	nested := mapField(event, "user_transcription_event")
	if text := stringField(nested, "user_transcript"); text != "" {
		return Classification{Kind: KindUserFinal, Text: text}, true
	}
	return Classification{}, false
}

// typedAgentResponse matches {"type":"agent_response","agent_response_event":{"agent_response":...}}.
func typedAgentResponse(event map[string]any) (Classification, bool) {
	if stringField(event, "type") != "agent_response" {
		return Classification{}, false
	}
	nested := mapField(event, "agent_response_event")
	if text := stringField(nested, "agent_response"); text != "" {
		return Classification{Kind: KindAgentFinal, Text: text}, true
	}
	return Classification{}, false
}

// flatTranscriptFields matches events carrying user_transcript or
// agent_response directly at the top level.
func flatTranscriptFields(event map[string]any) (Classification, bool) {
	if text := stringField(event, "user_transcript"); text != "" {
		return Classification{Kind: KindUserFinal, Text: text}, true
	}
	if text := stringField(event, "agent_response"); text != "" {
		return Classification{Kind: KindAgentFinal, Text: text}, true
	}
	return Classification{}, false
}

// textWithRole matches the generic {"text":...,"role":...} shape.
func textWithRole(event map[string]any) (Classification, bool) {
	text := stringField(event, "text")
	if text == "" {
		return Classification{}, false
	}
	switch stringField(event, "role") {
	case "user":
		return Classification{Kind: KindUserFinal, Text: text}, true
	case "agent", "assistant":
		return Classification{Kind: KindAgentFinal, Text: text}, true
	}
	return Classification{}, false
}

// finalTranscriptFlag matches {"transcript":...,"is_final":true}. Transcripts
// are speech-to-text output of the user's side.
func finalTranscriptFlag(event map[string]any) (Classification, bool) {
	text := stringField(event, "transcript")
	if text == "" {
		return Classification{}, false
	}
	if isFinal, ok := event["is_final"].(bool); ok && isFinal {
		return Classification{Kind: KindUserFinal, Text: text}, true
	}
	return Classification{}, false
}

// streamingDelta matches the incremental agent shapes: a text_delta event or
// field, or a chunked agent_response_part. Deltas are buffered, never
// finalized here.
func streamingDelta(event map[string]any) (Classification, bool) {
	if stringField(event, "type") == "text_delta" {
		if text := stringField(event, "text"); text != "" {
			return Classification{Kind: KindAgentDelta, Text: text}, true
		}
		if text := stringField(event, "delta"); text != "" {
			return Classification{Kind: KindAgentDelta, Text: text}, true
		}
		return Classification{}, false
	}
	if text := stringField(event, "text_delta"); text != "" {
		return Classification{Kind: KindAgentDelta, Text: text}, true
	}
	if text := stringField(event, "agent_response_part"); text != "" {
		return Classification{Kind: KindAgentDelta, Text: text}, true
	}
	return Classification{}, false
}

// doneMarker matches explicit end-of-turn shapes. Text is optional: when the
// event carries none, whatever is buffered becomes the finalized turn.
func doneMarker(event map[string]any) (Classification, bool) {
	switch stringField(event, "type") {
	case "done", "agent_response_done", "response_done", "turn_end":
		return Classification{Kind: KindAgentDone, Text: stringField(event, "text")}, true
	}
	return Classification{}, false
}

func stringField(event map[string]any, key string) string {
	if event == nil {
		return ""
	}
	s, _ := event[key].(string)
	return s
}

func mapField(event map[string]any, key string) map[string]any {
	if event == nil {
		return nil
	}
	m, _ := event[key].(map[string]any)
	return m
}

// SpeakingSignal detects agent speaking-state events, which drive the
// fallback turn boundary. Recognized shapes: {"mode":"speaking"|"listening"},
// the same under {"type":"mode_change"}, and boolean "speaking" or
// "agent_speaking" fields.
func SpeakingSignal(raw json.RawMessage) (speaking, ok bool) {
	var event map[string]any
	if err := json.Unmarshal(raw, &event); err != nil || event == nil {
		return false, false
	}

	if mode := stringField(event, "mode"); mode != "" {
		switch mode {
		case "speaking":
			return true, true
		case "listening":
			return false, true
		}
		return false, false
	}

	for _, key := range []string{"speaking", "agent_speaking"} {
		if value, present := event[key].(bool); present {
			return value, true
		}
	}
	return false, false
}
