package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	chatmodel "github.com/flourish-app/backend/internal/model/chat"
	voicemodel "github.com/flourish-app/backend/internal/model/voice"
	chatservice "github.com/flourish-app/backend/internal/service/chat"
)

var (
	ErrProviderNotConfigured = errors.New("voice provider is not configured")
	ErrMissingToken          = errors.New("no token in provider response")
)

// summaryThreshold is the turn count past which a session summary is
// generated for voice continuity context.
const summaryThreshold = 12

// contextTurnWindow is how many recent turns are quoted into the context payload.
const contextTurnWindow = 6

// Summarizer condenses a transcript into a short continuity summary.
type Summarizer interface {
	Summarize(ctx context.Context, turns []chatmodel.Turn) (string, error)
}

// CredentialFetcher issues session credentials for the realtime transport.
type CredentialFetcher interface {
	FetchCredential(ctx context.Context, sessionID string) (voicemodel.Credential, error)
}

// CredentialService fetches conversation tokens from the agent platform and
// assembles the optional continuity context from prior conversation.
type CredentialService struct {
	cfg        voicemodel.ProviderConfig
	httpClient *http.Client
	chatSvc    *chatservice.Service
	summarizer Summarizer
}

// NewCredentialService wires the credential service. summarizer may be nil;
// context then falls back to whatever summary the session already carries.
func NewCredentialService(cfg voicemodel.ProviderConfig, chatSvc *chatservice.Service, summarizer Summarizer) *CredentialService {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CredentialService{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		chatSvc:    chatSvc,
		summarizer: summarizer,
	}
}

// FetchCredential requests a conversation token for the configured agent and,
// when a session id is supplied, attaches a continuity context summarizing
// the prior conversation.
func (s *CredentialService) FetchCredential(ctx context.Context, sessionID string) (voicemodel.Credential, error) {
	if !s.cfg.Enabled() {
		return voicemodel.Credential{}, ErrProviderNotConfigured
	}

	endpoint := strings.TrimSuffix(s.cfg.BaseURL, "/") +
		"/v1/convai/conversation/token?agent_id=" + url.QueryEscape(s.cfg.AgentID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return voicemodel.Credential{}, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("xi-api-key", s.cfg.APIKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return voicemodel.Credential{}, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return voicemodel.Credential{}, fmt.Errorf("token request failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		Token     string `json:"token"`
		SignedURL string `json:"signed_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return voicemodel.Credential{}, fmt.Errorf("decode token response: %w", err)
	}
	if payload.Token == "" {
		return voicemodel.Credential{}, ErrMissingToken
	}

	cred := voicemodel.Credential{Token: payload.Token, SignedURL: payload.SignedURL}

	if sessionID != "" {
		if contextText := s.buildContext(ctx, sessionID); contextText != "" {
			cred.Context = contextText
			cred.HasContext = true
		}
	}

	return cred, nil
}

// buildContext assembles the continuity payload: the session summary
// (generated lazily once the transcript is long enough) plus the most recent
// exchanges. Failures degrade to no context rather than blocking the session.
func (s *CredentialService) buildContext(ctx context.Context, sessionID string) string {
	if s.chatSvc == nil {
		return ""
	}

	session, err := s.chatSvc.GetSession(ctx, sessionID)
	if err != nil {
		log.Printf("[voice] context lookup failed for session=%s: %v", sessionID, err)
		return ""
	}

	turns, err := s.chatSvc.LoadTranscript(ctx, sessionID)
	if err != nil || len(turns) == 0 {
		return ""
	}

	summary := session.Summary
	if summary == "" && s.summarizer != nil && len(turns) >= summaryThreshold {
		generated, err := s.summarizer.Summarize(ctx, turns)
		if err != nil {
			log.Printf("[voice] summary generation failed for session=%s: %v", sessionID, err)
		} else if generated != "" {
			summary = generated
			if err := s.chatSvc.SetSummary(ctx, sessionID, generated); err != nil {
				log.Printf("[voice] summary store failed for session=%s: %v", sessionID, err)
			}
		}
	}

	var b strings.Builder
	b.WriteString("The user is continuing an earlier conversation with you.")
	if summary != "" {
		b.WriteString("\nConversation so far: ")
		b.WriteString(summary)
	}

	start := len(turns) - contextTurnWindow
	if start < 0 {
		start = 0
	}
	b.WriteString("\nMost recent exchanges:")
	for _, turn := range turns[start:] {
		b.WriteString("\n")
		b.WriteString(turn.Role)
		b.WriteString(": ")
		b.WriteString(turn.Content)
	}

	return b.String()
}
