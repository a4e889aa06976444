package chat

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flourish-app/backend/internal/model/chat"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrEmptyContent    = errors.New("turn content is empty")
)

// titleLimit caps the session title derived from the first user turn.
const titleLimit = 50

// Service encapsulates conversation state management. Inserts are append-only
// and echo back asynchronously to any subscriber registered for the session,
// mirroring how a realtime database delivers its own writes.
type Service struct {
	mu          sync.RWMutex
	sessions    map[string]chat.Session
	turns       map[string][]chat.Turn
	subscribers map[string][]chan chat.Turn
}

// NewService bootstraps the in-memory chat service suitable for early iterations.
func NewService() *Service {
	return &Service{
		sessions:    make(map[string]chat.Session),
		turns:       make(map[string][]chat.Turn),
		subscribers: make(map[string][]chan chat.Turn),
	}
}

// CreateSession provisions a new conversation.
func (s *Service) CreateSession(_ context.Context) (chat.Session, error) {
	now := time.Now().UTC()
	session := chat.Session{
		ID:        uuid.NewString(),
		Title:     "New Conversation",
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.turns[session.ID] = make([]chat.Turn, 0, 16)
	s.mu.Unlock()

	return session, nil
}

// SaveTurn appends a finalized turn to the session history and notifies
// subscribers. Empty or whitespace-only content is rejected: it must never
// reach the persisted history.
func (s *Service) SaveTurn(_ context.Context, turn chat.Turn) error {
	if turn.SessionID == "" {
		return ErrSessionNotFound
	}
	if strings.TrimSpace(turn.Content) == "" {
		return ErrEmptyContent
	}

	s.mu.Lock()

	session, ok := s.sessions[turn.SessionID]
	if !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}

	turn.ID = uuid.NewString()
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	s.turns[turn.SessionID] = append(s.turns[turn.SessionID], turn)

	if turn.Role == chat.RoleUser && session.Title == "New Conversation" {
		session.Title = deriveTitle(turn.Content)
	}
	if turn.FromVoice {
		session.HasVoiceTurns = true
	}
	session.Preview = deriveTitle(turn.Content)
	session.UpdatedAt = time.Now().UTC()
	s.sessions[turn.SessionID] = session

	listeners := append([]chan chat.Turn(nil), s.subscribers[turn.SessionID]...)
	s.mu.Unlock()

	// Echo the insert asynchronously; slow listeners lose events rather
	// than blocking the writer.
	for _, ch := range listeners {
		select {
		case ch <- turn:
		default:
		}
	}

	return nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return session, nil
}

// ListSessions returns all sessions, most recently updated first.
func (s *Service) ListSessions(_ context.Context) []chat.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]chat.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions
}

// LoadTranscript returns stored turns for the provided session.
func (s *Service) LoadTranscript(_ context.Context, sessionID string) ([]chat.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns, ok := s.turns[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]chat.Turn, len(turns))
	copy(copied, turns)
	return copied, nil
}

// TurnCount reports how many turns the session has accumulated.
func (s *Service) TurnCount(_ context.Context, sessionID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns, ok := s.turns[sessionID]
	if !ok {
		return 0, ErrSessionNotFound
	}
	return len(turns), nil
}

// SetSummary records a lazily generated conversation summary.
func (s *Service) SetSummary(_ context.Context, sessionID, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	session.Summary = summary
	session.UpdatedAt = time.Now().UTC()
	s.sessions[sessionID] = session
	return nil
}

// UpdateTitle replaces the session title.
func (s *Service) UpdateTitle(_ context.Context, sessionID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	session.Title = title
	session.UpdatedAt = time.Now().UTC()
	s.sessions[sessionID] = session
	return nil
}

// Subscribe registers a listener for future inserts on the session. The
// returned cancel func must be called to release the channel.
func (s *Service) Subscribe(sessionID string) (<-chan chat.Turn, func()) {
	ch := make(chan chat.Turn, 16)

	s.mu.Lock()
	s.subscribers[sessionID] = append(s.subscribers[sessionID], ch)
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		listeners := s.subscribers[sessionID]
		for i, listener := range listeners {
			if listener == ch {
				s.subscribers[sessionID] = append(listeners[:i], listeners[i+1:]...)
				break
			}
		}
	}

	return ch, cancel
}

// deriveTitle cuts content down to a session title/preview.
func deriveTitle(content string) string {
	runes := []rune(strings.TrimSpace(content))
	if len(runes) <= titleLimit {
		return string(runes)
	}
	return string(runes[:titleLimit]) + "..."
}
