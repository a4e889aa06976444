package chat

import "time"

// Session is one ongoing conversation with the companion.
type Session struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Summary       string    `json:"summary,omitempty"`
	Preview       string    `json:"preview,omitempty"`
	HasVoiceTurns bool      `json:"hasVoiceTurns"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
