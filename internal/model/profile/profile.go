package profile

// Profile captures the personalization attributes the companion weaves into
// its prompts.
type Profile struct {
	ID                 string   `json:"id"`
	DisplayName        string   `json:"displayName,omitempty"`
	Goals              []string `json:"goals,omitempty"`
	CommunicationStyle string   `json:"communicationStyle,omitempty"`
}
