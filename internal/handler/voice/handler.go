package voice

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	voicemodel "github.com/flourish-app/backend/internal/model/voice"
	chatservice "github.com/flourish-app/backend/internal/service/chat"
	voiceservice "github.com/flourish-app/backend/internal/service/voice"
	"github.com/flourish-app/backend/pkg/utils"
)

// Handler serves voice session endpoints: credential issuance for clients
// that talk to the agent platform directly, and the websocket bridge for
// clients that let the server drive the session.
type Handler struct {
	cfg           voicemodel.ProviderConfig
	credentialSvc *voiceservice.CredentialService
	chatSvc       *chatservice.Service
}

// New creates a voice handler.
func New(cfg voicemodel.ProviderConfig, credentialSvc *voiceservice.CredentialService, chatSvc *chatservice.Service) *Handler {
	return &Handler{
		cfg:           cfg,
		credentialSvc: credentialSvc,
		chatSvc:       chatSvc,
	}
}

// RegisterRoutes registers voice routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/voice", func(voiceRouter chi.Router) {
		voiceRouter.Post("/token", h.handleToken)

		wsHandler := NewWebSocketHandler(h.cfg, h.credentialSvc, h.chatSvc)
		wsHandler.RegisterWebSocketRoutes(voiceRouter)
	})
}

func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
	}
	// An absent body means a session-less token request.
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cred, err := h.credentialSvc.FetchCredential(r.Context(), payload.SessionID)
	if err != nil {
		utils.RespondError(w, statusForCredentialError(err), err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, cred)
}

func statusForCredentialError(err error) int {
	switch {
	case errors.Is(err, voiceservice.ErrProviderNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, voiceservice.ErrMissingToken):
		return http.StatusBadGateway
	default:
		return http.StatusBadGateway
	}
}
