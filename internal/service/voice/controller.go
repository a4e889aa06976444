package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	chatmodel "github.com/flourish-app/backend/internal/model/chat"
	voicemodel "github.com/flourish-app/backend/internal/model/voice"
)

// Status is the controller's lifecycle state.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusConnecting Status = "connecting"
	StatusConnected  Status = "connected"
	StatusSpeaking   Status = "speaking"
	StatusListening  Status = "listening"
)

var (
	// ErrPermissionDenied is surfaced distinctly from transport failures so
	// the user sees an actionable message.
	ErrPermissionDenied = errors.New("audio capture permission denied")

	ErrSessionActive = errors.New("voice session already active")
)

// TurnStore is the persistence collaborator the controller appends to.
type TurnStore interface {
	SaveTurn(ctx context.Context, turn chatmodel.Turn) error
}

// ControllerHooks are the UI-facing callbacks. All fields are optional.
type ControllerHooks struct {
	// OnTurn fires for every finalized utterance, before persistence.
	OnTurn func(role, text string)
	// OnStatus fires on every lifecycle transition.
	OnStatus func(status Status)
	// OnError fires once per surfaced session-level failure.
	OnError func(err error)
}

// PermissionFunc requests local audio-capture permission. A nil func is
// treated as granted; a denial must return ErrPermissionDenied.
type PermissionFunc func(ctx context.Context) error

// Controller owns the lifecycle of one voice conversation attempt: it
// acquires a credential, drives the realtime transport, reconciles the three
// transcript sources (turn events, streamed deltas, the speaking indicator)
// and persists finalized turns exactly once.
type Controller struct {
	sessionID   string
	credentials CredentialFetcher
	transport   Transport
	store       TurnStore
	permission  PermissionFunc
	hooks       ControllerHooks

	mu      sync.Mutex
	status  Status
	muted   bool
	buffer  *TurnBuffer
	dedup   *Deduper
	persist context.Context
}

// NewController wires a controller for one chat session.
func NewController(sessionID string, credentials CredentialFetcher, transport Transport, store TurnStore, permission PermissionFunc, hooks ControllerHooks) *Controller {
	return &Controller{
		sessionID:   sessionID,
		credentials: credentials,
		transport:   transport,
		store:       store,
		permission:  permission,
		hooks:       hooks,
		status:      StatusIdle,
		buffer:      NewTurnBuffer(),
		dedup:       NewDeduper(),
		persist:     context.Background(),
	}
}

// Status returns the current lifecycle state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Muted reports whether agent output is muted.
func (c *Controller) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}

// Start opens a voice session: audio permission, credential fetch, transport
// handshake. Any failure lands back in Idle; nothing retries automatically.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.status != StatusIdle {
		c.mu.Unlock()
		return ErrSessionActive
	}
	changed := c.setStatusLocked(StatusConnecting)
	// Stale buffered text or dedup keys from a previous session must never
	// leak into this one.
	c.buffer.Reset()
	c.dedup.Reset()
	c.persist = ctx
	c.mu.Unlock()
	c.notifyStatus(changed, StatusConnecting)

	fail := func(err error) error {
		c.mu.Lock()
		wasChanged := c.setStatusLocked(StatusIdle)
		c.mu.Unlock()
		c.notifyStatus(wasChanged, StatusIdle)
		if c.hooks.OnError != nil {
			c.hooks.OnError(err)
		}
		return err
	}

	if c.permission != nil {
		if err := c.permission(ctx); err != nil {
			if errors.Is(err, ErrPermissionDenied) {
				return fail(err)
			}
			return fail(fmt.Errorf("audio capture unavailable: %w", err))
		}
	}

	cred, err := c.credentials.FetchCredential(ctx, c.sessionID)
	if err != nil {
		return fail(fmt.Errorf("fetch voice credential: %w", err))
	}

	cfg := voicemodel.SessionConfig{
		Token:           cred.Token,
		SignedURL:       cred.SignedURL,
		ContextOverride: cred.Context,
	}
	err = c.transport.StartSession(ctx, cfg, Callbacks{
		OnConnect:    c.handleConnect,
		OnDisconnect: c.handleDisconnect,
		OnError:      c.handleTransportError,
		OnMessage:    c.HandleEvent,
	})
	if err != nil {
		return fail(fmt.Errorf("start voice transport: %w", err))
	}

	c.mu.Lock()
	changed = false
	if c.status == StatusConnecting {
		changed = c.setStatusLocked(StatusConnected)
	}
	c.mu.Unlock()
	c.notifyStatus(changed, StatusConnected)
	return nil
}

// Stop force-flushes any buffered partial utterance, ends the transport
// session and resets local state. Safe to call when already idle.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if c.status == StatusIdle {
		c.mu.Unlock()
		return nil
	}
	text, ok := c.buffer.Flush()
	c.mu.Unlock()

	// The agent's trailing partial utterance must not be dropped silently:
	// flush before tearing the transport down.
	if ok {
		c.commit(chatmodel.RoleAssistant, text)
	}

	err := c.transport.EndSession()

	c.mu.Lock()
	changed := c.setStatusLocked(StatusIdle)
	c.buffer.Reset()
	c.dedup.Reset()
	c.muted = false
	c.mu.Unlock()
	c.notifyStatus(changed, StatusIdle)

	return err
}

// ToggleMute flips agent output volume without touching transcript flow.
func (c *Controller) ToggleMute() error {
	c.mu.Lock()
	muted := !c.muted
	c.mu.Unlock()

	volume := 1.0
	if muted {
		volume = 0.0
	}
	if err := c.transport.SetVolume(volume); err != nil {
		return err
	}

	c.mu.Lock()
	c.muted = muted
	c.mu.Unlock()
	return nil
}

// HandleEvent classifies one raw transport event and routes it: deltas to
// the turn buffer, finalized utterances to the UI callback and persistence.
func (c *Controller) HandleEvent(raw json.RawMessage) {
	if speaking, ok := SpeakingSignal(raw); ok {
		c.ObserveSpeaking(speaking)
		return
	}

	classification := Classify(raw)

	switch classification.Kind {
	case KindUserFinal:
		c.commit(chatmodel.RoleUser, classification.Text)
	case KindAgentFinal:
		c.commit(chatmodel.RoleAssistant, classification.Text)
	case KindAgentDelta:
		c.mu.Lock()
		c.buffer.Append(classification.Text)
		c.mu.Unlock()
	case KindAgentDone:
		c.mu.Lock()
		text, ok := c.buffer.FinalizeExplicit(classification.Text)
		c.mu.Unlock()
		if ok {
			c.commit(chatmodel.RoleAssistant, text)
		}
	}
}

// ObserveSpeaking samples the transport's speaking indicator. The transition
// to not-speaking is the fallback completion signal for agent turns that
// never receive an explicit final event.
func (c *Controller) ObserveSpeaking(speaking bool) {
	c.mu.Lock()
	changed := false
	next := c.status
	if c.status == StatusConnected || c.status == StatusSpeaking || c.status == StatusListening {
		if speaking {
			next = StatusSpeaking
		} else {
			next = StatusListening
		}
		changed = c.setStatusLocked(next)
	}
	text, ok := c.buffer.ObserveSpeaking(speaking)
	c.mu.Unlock()
	c.notifyStatus(changed, next)

	if ok {
		c.commit(chatmodel.RoleAssistant, text)
	}
}

// commit delivers a finalized utterance to the UI and persists it at most
// once. Persistence failures roll the dedup claim back and never interrupt
// the live conversation.
func (c *Controller) commit(role, text string) {
	if text == "" {
		return
	}

	if c.hooks.OnTurn != nil {
		c.hooks.OnTurn(role, text)
	}

	c.mu.Lock()
	claimed := c.dedup.Claim(role, text)
	ctx := c.persist
	c.mu.Unlock()

	if !claimed || c.store == nil {
		return
	}

	turn := chatmodel.Turn{
		SessionID: c.sessionID,
		Role:      role,
		Content:   text,
		FromVoice: true,
	}
	if err := c.store.SaveTurn(ctx, turn); err != nil {
		c.mu.Lock()
		c.dedup.Release(role, text)
		c.mu.Unlock()
		log.Printf("[voice] persist turn failed session=%s role=%s: %v", c.sessionID, role, err)
	}
}

func (c *Controller) handleConnect() {
	c.mu.Lock()
	changed := false
	if c.status == StatusConnecting {
		changed = c.setStatusLocked(StatusConnected)
	}
	c.mu.Unlock()
	c.notifyStatus(changed, StatusConnected)
}

func (c *Controller) handleDisconnect() {
	c.mu.Lock()
	if c.status == StatusIdle {
		c.mu.Unlock()
		return
	}
	text, ok := c.buffer.Flush()
	changed := c.setStatusLocked(StatusIdle)
	c.mu.Unlock()
	c.notifyStatus(changed, StatusIdle)

	if ok {
		c.commit(chatmodel.RoleAssistant, text)
	}
}

func (c *Controller) handleTransportError(err error) {
	log.Printf("[voice] transport error session=%s: %v", c.sessionID, err)
	c.mu.Lock()
	changed := c.setStatusLocked(StatusIdle)
	c.mu.Unlock()
	c.notifyStatus(changed, StatusIdle)
	if c.hooks.OnError != nil {
		c.hooks.OnError(err)
	}
}

// setStatusLocked records a transition. Caller holds c.mu; the hook fires
// after the lock is released via notifyStatus.
func (c *Controller) setStatusLocked(status Status) bool {
	if c.status == status {
		return false
	}
	c.status = status
	return true
}

func (c *Controller) notifyStatus(changed bool, status Status) {
	if changed && c.hooks.OnStatus != nil {
		c.hooks.OnStatus(status)
	}
}
