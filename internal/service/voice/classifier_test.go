package voice

import (
	"encoding/json"
	"testing"
)

func classify(t *testing.T, payload string) Classification {
	t.Helper()
	return Classify(json.RawMessage(payload))
}

func TestClassifyRecognizedShapes(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    Classification
	}{
		{
			name:    "typed user transcript",
			payload: `{"type":"user_transcript","user_transcription_event":{"user_transcript":"I feel anxious"}}`,
			want:    Classification{Kind: KindUserFinal, Text: "I feel anxious"},
		},
		{
			name:    "typed agent response",
			payload: `{"type":"agent_response","agent_response_event":{"agent_response":"Tell me more"}}`,
			want:    Classification{Kind: KindAgentFinal, Text: "Tell me more"},
		},
		{
			name:    "flat user transcript",
			payload: `{"user_transcript":"rough day"}`,
			want:    Classification{Kind: KindUserFinal, Text: "rough day"},
		},
		{
			name:    "flat agent response",
			payload: `{"agent_response":"I hear you"}`,
			want:    Classification{Kind: KindAgentFinal, Text: "I hear you"},
		},
		{
			name:    "generic text with user role",
			payload: `{"text":"hello","role":"user"}`,
			want:    Classification{Kind: KindUserFinal, Text: "hello"},
		},
		{
			name:    "generic text with agent role",
			payload: `{"text":"hi there","role":"agent"}`,
			want:    Classification{Kind: KindAgentFinal, Text: "hi there"},
		},
		{
			name:    "generic text with assistant role",
			payload: `{"text":"hi there","role":"assistant"}`,
			want:    Classification{Kind: KindAgentFinal, Text: "hi there"},
		},
		{
			name:    "final transcript flag",
			payload: `{"transcript":"all done","is_final":true}`,
			want:    Classification{Kind: KindUserFinal, Text: "all done"},
		},
		{
			name:    "text delta event",
			payload: `{"type":"text_delta","text":"par"}`,
			want:    Classification{Kind: KindAgentDelta, Text: "par"},
		},
		{
			name:    "text delta field",
			payload: `{"text_delta":"tial"}`,
			want:    Classification{Kind: KindAgentDelta, Text: "tial"},
		},
		{
			name:    "agent response part",
			payload: `{"agent_response_part":"chunk"}`,
			want:    Classification{Kind: KindAgentDelta, Text: "chunk"},
		},
		{
			name:    "done without text",
			payload: `{"type":"agent_response_done"}`,
			want:    Classification{Kind: KindAgentDone, Text: ""},
		},
		{
			name:    "done with text",
			payload: `{"type":"done","text":"final words"}`,
			want:    Classification{Kind: KindAgentDone, Text: "final words"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classify(t, tc.payload)
			if got != tc.want {
				t.Fatalf("got %+v want %+v", got, tc.want)
			}
		})
	}
}

func TestClassifyIgnoresUnknownShapes(t *testing.T) {
	cases := []string{
		`{}`,
		`{"type":"ping"}`,
		`{"transcript":"not final yet","is_final":false}`,
		`{"text":"orphan text"}`,
		`{"type":"user_transcript"}`,
		`not json at all`,
		`null`,
		`{"audio":"base64..."}`,
	}

	for _, payload := range cases {
		if got := classify(t, payload); got.Kind != KindIgnored {
			t.Fatalf("payload %s: expected ignored, got %+v", payload, got)
		}
	}
}

func TestClassifySingleMatchPerEvent(t *testing.T) {
	// An event satisfying both the typed shape and the flat field must
	// classify exactly once, via the first matching rule.
	got := classify(t, `{"type":"user_transcript","user_transcription_event":{"user_transcript":"once"},"user_transcript":"once"}`)
	if got.Kind != KindUserFinal || got.Text != "once" {
		t.Fatalf("unexpected classification: %+v", got)
	}
}

func TestSpeakingSignal(t *testing.T) {
	cases := []struct {
		name         string
		raw          string
		wantSpeaking bool
		wantOK       bool
	}{
		{"mode speaking", `{"mode":"speaking"}`, true, true},
		{"mode listening", `{"mode":"listening"}`, false, true},
		{"typed mode change", `{"type":"mode_change","mode":"speaking"}`, true, true},
		{"speaking bool", `{"speaking":true}`, true, true},
		{"agent speaking bool", `{"agent_speaking":false}`, false, true},
		{"unknown mode value", `{"mode":"thinking"}`, false, false},
		{"unrelated event", `{"type":"agent_response","agent_response_event":{"agent_response":"hi"}}`, false, false},
		{"malformed", `{"mode":`, false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			speaking, ok := SpeakingSignal([]byte(tc.raw))
			if ok != tc.wantOK {
				t.Fatalf("expected ok=%v, got %v", tc.wantOK, ok)
			}
			if ok && speaking != tc.wantSpeaking {
				t.Fatalf("expected speaking=%v, got %v", tc.wantSpeaking, speaking)
			}
		})
	}
}
