package voice

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	voicemodel "github.com/flourish-app/backend/internal/model/voice"
	chatservice "github.com/flourish-app/backend/internal/service/chat"
	voiceservice "github.com/flourish-app/backend/internal/service/voice"
)

const (
	clientReadDeadline = 60 * time.Second
	clientPingInterval = 30 * time.Second
)

// WebSocketHandler bridges a browser websocket to one server-driven voice
// session: it owns the session controller, relays finalized turns and store
// echoes to the client, and accepts mute/stop commands.
type WebSocketHandler struct {
	cfg           voicemodel.ProviderConfig
	credentialSvc *voiceservice.CredentialService
	chatSvc       *chatservice.Service
	upgrader      websocket.Upgrader
}

// NewWebSocketHandler creates the bridge handler.
func NewWebSocketHandler(cfg voicemodel.ProviderConfig, credentialSvc *voiceservice.CredentialService, chatSvc *chatservice.Service) *WebSocketHandler {
	return &WebSocketHandler{
		cfg:           cfg,
		credentialSvc: credentialSvc,
		chatSvc:       chatSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterWebSocketRoutes registers the bridge endpoint.
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundCommand struct {
	Type string `json:"type"`
}

type outboundMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Role      string `json:"role,omitempty"`
	Text      string `json:"text,omitempty"`
	Status    string `json:"status,omitempty"`
	Error     string `json:"error,omitempty"`
	FromVoice bool   `json:"fromVoice,omitempty"`
}

// clientConn serializes websocket writes; hooks and the echo relay fire from
// separate goroutines.
type clientConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *clientConn) send(msg outboundMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(msg); err != nil {
		log.Printf("[websocket] write failed: %v", err)
	}
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	if _, err := h.chatSvc.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	if !h.cfg.Enabled() {
		http.Error(w, "voice provider not configured", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[websocket] new voice bridge for session=%s", sessionID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	client := &clientConn{conn: conn}
	seen := chatservice.NewSeenTracker()
	var seenMu sync.Mutex

	transport := voiceservice.NewAgentTransport(h.cfg.BaseURL, voiceservice.DefaultAgentTransportOptions())
	controller := voiceservice.NewController(sessionID, h.credentialSvc, transport, h.chatSvc, nil, voiceservice.ControllerHooks{
		OnTurn: func(role, text string) {
			seenMu.Lock()
			seen.Observe(role, text)
			seenMu.Unlock()
			client.send(outboundMessage{
				Type:      "turn",
				SessionID: sessionID,
				Role:      role,
				Text:      text,
				FromVoice: true,
			})
		},
		OnStatus: func(status voiceservice.Status) {
			client.send(outboundMessage{Type: "status", SessionID: sessionID, Status: string(status)})
		},
		OnError: func(err error) {
			client.send(outboundMessage{Type: "error", SessionID: sessionID, Error: err.Error()})
		},
	})

	// Relay store echoes for this session. Turns the controller just
	// persisted are filtered out through the seen set; anything else (a
	// text turn saved over REST while the voice session runs) reaches the
	// client once.
	echo, unsubscribe := h.chatSvc.Subscribe(sessionID)
	defer unsubscribe()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case turn, ok := <-echo:
				if !ok {
					return
				}
				seenMu.Lock()
				alreadySeen := seen.Observe(turn.Role, turn.Content)
				seenMu.Unlock()
				if alreadySeen {
					continue
				}
				client.send(outboundMessage{
					Type:      "turn",
					SessionID: sessionID,
					Role:      turn.Role,
					Text:      turn.Content,
					FromVoice: turn.FromVoice,
				})
			}
		}
	}()

	if err := controller.Start(ctx); err != nil {
		client.send(outboundMessage{Type: "error", SessionID: sessionID, Error: err.Error()})
		return
	}
	// Disconnect must flush whatever utterance is still buffered.
	defer func() {
		if err := controller.Stop(); err != nil {
			log.Printf("[websocket] stop failed for session=%s: %v", sessionID, err)
		}
	}()

	conn.SetReadDeadline(time.Now().Add(clientReadDeadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(clientReadDeadline))
		return nil
	})
	go h.pingLoop(ctx, client)

	for {
		var cmd inboundCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("[websocket] read error for session=%s: %v", sessionID, err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(clientReadDeadline))

		switch cmd.Type {
		case "mute":
			if err := controller.ToggleMute(); err != nil {
				client.send(outboundMessage{Type: "error", SessionID: sessionID, Error: err.Error()})
				continue
			}
			client.send(outboundMessage{Type: "muted", SessionID: sessionID, Text: muteLabel(controller.Muted())})
		case "stop":
			return
		default:
			client.send(outboundMessage{Type: "error", SessionID: sessionID, Error: "unsupported message type: " + cmd.Type})
		}
	}
}

func (h *WebSocketHandler) pingLoop(ctx context.Context, client *clientConn) {
	ticker := time.NewTicker(clientPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			client.mu.Lock()
			err := client.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			client.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func muteLabel(muted bool) string {
	if muted {
		return "muted"
	}
	return "unmuted"
}
