package companion

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/flourish-app/backend/internal/config"
	"github.com/flourish-app/backend/internal/model/chat"
)

// historyLimit caps how much transcript is replayed into the model.
const historyLimit = 10

// Request is one completion request as the HTTP layer receives it.
type Request struct {
	Messages     []Message       `json:"messages"`
	IsNewSession bool            `json:"isNewSession,omitempty"`
	Profile      *ProfileContext `json:"profile,omitempty"`
}

// Message mirrors the wire shape of one conversation message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Service encapsulates the AI companion: a prompt template and chat model
// composed into one runnable chain.
type Service struct {
	cfg   config.AIConfig
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewService creates an AI companion backed by the configured chat model.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile companion chain: %w", err)
	}

	return &Service{
		cfg:   cfg,
		chain: runnable,
	}, nil
}

// StreamingEnabled reports whether responses stream incrementally.
func (s *Service) StreamingEnabled() bool {
	return s.cfg.StreamResponse
}

// StreamReply streams the companion's next reply for the request.
func (s *Service) StreamReply(ctx context.Context, req Request) (*schema.StreamReader[*schema.Message], error) {
	input, err := buildChainInput(req)
	if err != nil {
		return nil, err
	}

	stream, err := s.chain.Stream(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to stream companion reply: %w", err)
	}
	return stream, nil
}

// GenerateReply produces the full reply in one call, for callers that do not
// stream.
func (s *Service) GenerateReply(ctx context.Context, req Request) (*schema.Message, error) {
	input, err := buildChainInput(req)
	if err != nil {
		return nil, err
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to generate companion reply: %w", err)
	}

	log.Printf("[companion] generated reply length=%d", len(response.Content))
	return response, nil
}

// Summarize condenses a transcript into a short continuity summary used for
// session metadata and voice-session context.
func (s *Service) Summarize(ctx context.Context, turns []chat.Turn) (string, error) {
	if len(turns) == 0 {
		return "", nil
	}

	var transcript strings.Builder
	for _, turn := range turns {
		transcript.WriteString(turn.Role)
		transcript.WriteString(": ")
		transcript.WriteString(turn.Content)
		transcript.WriteString("\n")
	}

	input := map[string]any{
		"system":  "Summarize the following wellness conversation in 2-3 sentences. Capture the user's emotional state, the themes discussed and any coping strategies suggested. Write in third person.",
		"history": []*schema.Message(nil),
		"query":   transcript.String(),
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to summarize conversation: %w", err)
	}
	return strings.TrimSpace(response.Content), nil
}

// buildChainInput splits the request into the chain's system/history/query
// slots. A brand new session with no messages gets the greeting query.
func buildChainInput(req Request) (map[string]any, error) {
	system := buildSystemPrompt(req.Profile)

	if len(req.Messages) == 0 {
		if !req.IsNewSession {
			return nil, fmt.Errorf("no messages in request")
		}
		return map[string]any{
			"system":  system,
			"history": []*schema.Message(nil),
			"query":   greetingQuery,
		}, nil
	}

	last := req.Messages[len(req.Messages)-1]
	if last.Role != chat.RoleUser {
		return nil, fmt.Errorf("last message must be from the user, got role %q", last.Role)
	}

	return map[string]any{
		"system":  system,
		"history": buildHistoryMessages(req.Messages[:len(req.Messages)-1]),
		"query":   last.Content,
	}, nil
}

func buildHistoryMessages(messages []Message) []*schema.Message {
	if len(messages) == 0 {
		return nil
	}

	startIdx := 0
	if len(messages) > historyLimit {
		startIdx = len(messages) - historyLimit
	}

	history := make([]*schema.Message, 0, len(messages)-startIdx)
	for _, msg := range messages[startIdx:] {
		switch msg.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(msg.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		}
	}
	return history
}
