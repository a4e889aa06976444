package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	voicemodel "github.com/flourish-app/backend/internal/model/voice"
)

// Callbacks receive the transport's lifecycle and message events. All fields
// are optional.
type Callbacks struct {
	OnConnect    func()
	OnDisconnect func()
	OnError      func(err error)
	OnMessage    func(raw json.RawMessage)
}

// Transport is the opaque realtime connection to the conversational agent.
type Transport interface {
	StartSession(ctx context.Context, cfg voicemodel.SessionConfig, callbacks Callbacks) error
	EndSession() error
	SetVolume(volume float64) error
}

// AgentTransportOptions tune the websocket connection to the agent platform.
type AgentTransportOptions struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	ReadTimeout      time.Duration
	PingInterval     time.Duration
}

// DefaultAgentTransportOptions mirror the timeouts used elsewhere in the service.
func DefaultAgentTransportOptions() AgentTransportOptions {
	return AgentTransportOptions{
		HandshakeTimeout: 30 * time.Second,
		WriteTimeout:     30 * time.Second,
		ReadTimeout:      60 * time.Second,
		PingInterval:     30 * time.Second,
	}
}

// AgentTransport implements Transport over a websocket to the agent platform.
type AgentTransport struct {
	baseURL string
	options AgentTransportOptions

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
}

// NewAgentTransport returns a transport dialing the given platform base URL.
func NewAgentTransport(baseURL string, options AgentTransportOptions) *AgentTransport {
	return &AgentTransport{baseURL: baseURL, options: options}
}

// StartSession dials the agent platform, sends the session configuration and
// starts pumping inbound events into the callbacks.
func (t *AgentTransport) StartSession(ctx context.Context, cfg voicemodel.SessionConfig, callbacks Callbacks) error {
	endpoint, err := t.sessionURL(cfg)
	if err != nil {
		return err
	}

	dialer := &websocket.Dialer{HandshakeTimeout: t.options.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("agent websocket dial failed: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(t.options.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(t.options.ReadTimeout))
		return nil
	})

	init := map[string]any{"type": "session_config"}
	if cfg.ContextOverride != "" {
		init["context_override"] = cfg.ContextOverride
	}
	conn.SetWriteDeadline(time.Now().Add(t.options.WriteTimeout))
	if err := conn.WriteJSON(init); err != nil {
		conn.Close()
		return fmt.Errorf("send session config failed: %w", err)
	}

	pumpCtx, cancel := context.WithCancel(context.Background())

	t.mu.Lock()
	if t.conn != nil {
		t.conn.Close()
	}
	t.conn = conn
	t.cancel = cancel
	t.mu.Unlock()

	if callbacks.OnConnect != nil {
		callbacks.OnConnect()
	}

	go t.pingLoop(pumpCtx, conn)
	go t.readPump(pumpCtx, conn, callbacks)

	return nil
}

// EndSession closes the websocket. Safe to call when no session is active.
func (t *AgentTransport) EndSession() error {
	t.mu.Lock()
	conn := t.conn
	cancel := t.cancel
	t.conn = nil
	t.cancel = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn == nil {
		return nil
	}

	conn.SetWriteDeadline(time.Now().Add(t.options.WriteTimeout))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return conn.Close()
}

// SetVolume adjusts the agent output volume for the active session.
func (t *AgentTransport) SetVolume(volume float64) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("no active session")
	}
	conn.SetWriteDeadline(time.Now().Add(t.options.WriteTimeout))
	return conn.WriteJSON(map[string]any{"type": "set_volume", "volume": volume})
}

func (t *AgentTransport) sessionURL(cfg voicemodel.SessionConfig) (string, error) {
	if cfg.SignedURL != "" {
		return cfg.SignedURL, nil
	}
	if cfg.Token == "" {
		return "", fmt.Errorf("session token is required")
	}

	base := strings.TrimSuffix(t.baseURL, "/")
	base = strings.Replace(base, "https://", "wss://", 1)
	base = strings.Replace(base, "http://", "ws://", 1)
	return base + "/v1/agent/conversation?token=" + url.QueryEscape(cfg.Token), nil
}

func (t *AgentTransport) readPump(ctx context.Context, conn *websocket.Conn, callbacks Callbacks) {
	defer func() {
		if callbacks.OnDisconnect != nil {
			callbacks.OnDisconnect()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && callbacks.OnError != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					callbacks.OnError(err)
				}
			}
			return
		}

		conn.SetReadDeadline(time.Now().Add(t.options.ReadTimeout))
		if callbacks.OnMessage != nil {
			callbacks.OnMessage(json.RawMessage(payload))
		}
	}
}

func (t *AgentTransport) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(t.options.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(t.options.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
