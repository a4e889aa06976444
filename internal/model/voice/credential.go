package voice

// Credential is the payload handed to a client (or the session controller)
// to open a realtime voice session.
type Credential struct {
	Token      string `json:"token"`
	SignedURL  string `json:"signedUrl,omitempty"`
	Context    string `json:"context,omitempty"`
	HasContext bool   `json:"hasContext"`
}

// SessionConfig configures one realtime transport session. ContextOverride,
// when present, is injected into the agent session as a system-prompt style
// continuity summary of the prior conversation.
type SessionConfig struct {
	Token           string `json:"token"`
	SignedURL       string `json:"signedUrl,omitempty"`
	ContextOverride string `json:"contextOverride,omitempty"`
}
