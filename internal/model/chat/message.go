package chat

import "time"

// Roles a turn may be attributed to.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one finalized unit of dialogue. Turns are append-only: once
// persisted they are never mutated.
type Turn struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	FromVoice bool      `json:"fromVoice,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
