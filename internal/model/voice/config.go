package voice

// ProviderConfig holds the upstream conversational-agent platform settings.
type ProviderConfig struct {
	APIKey  string `json:"apiKey"`
	AgentID string `json:"agentId"`
	BaseURL string `json:"baseUrl"`
	Timeout int    `json:"timeout"` // seconds
}

// Enabled reports whether the required provider credentials are present.
func (c ProviderConfig) Enabled() bool {
	return c.APIKey != "" && c.AgentID != ""
}
