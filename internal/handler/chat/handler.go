package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flourish-app/backend/internal/model/chat"
	chatservice "github.com/flourish-app/backend/internal/service/chat"
	"github.com/flourish-app/backend/pkg/utils"
)

// Handler serves session and transcript CRUD.
type Handler struct {
	chatSvc *chatservice.Service
}

// New creates a chat handler.
func New(chatSvc *chatservice.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes registers session routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleCreateSession)
	r.Get("/sessions", h.handleListSessions)
	r.Get("/sessions/{sessionID}", h.handleGetSession)
	r.Patch("/sessions/{sessionID}", h.handleUpdateSession)
	r.Post("/sessions/{sessionID}/messages", h.handleSaveTurn)
	r.Get("/sessions/{sessionID}/messages", h.handleLoadTranscript)
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.chatSvc.CreateSession(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, session)
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.chatSvc.ListSessions(r.Context()))
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, session)
}

func (h *Handler) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Title == "" {
		utils.RespondError(w, http.StatusBadRequest, "title is required")
		return
	}

	if err := h.chatSvc.UpdateTitle(r.Context(), sessionID, payload.Title); err != nil {
		utils.RespondError(w, statusForChatError(err), err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) handleSaveTurn(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload struct {
		Role      string `json:"role"`
		Content   string `json:"content"`
		FromVoice bool   `json:"fromVoice"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if payload.Role != chat.RoleUser && payload.Role != chat.RoleAssistant {
		utils.RespondError(w, http.StatusBadRequest, "role must be user or assistant")
		return
	}

	turn := chat.Turn{
		SessionID: sessionID,
		Role:      payload.Role,
		Content:   payload.Content,
		FromVoice: payload.FromVoice,
	}
	if err := h.chatSvc.SaveTurn(r.Context(), turn); err != nil {
		utils.RespondError(w, statusForChatError(err), err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusAccepted, map[string]string{"status": "saved"})
}

func (h *Handler) handleLoadTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	turns, err := h.chatSvc.LoadTranscript(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, statusForChatError(err), err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, turns)
}

func statusForChatError(err error) int {
	switch {
	case errors.Is(err, chatservice.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, chatservice.ErrEmptyContent):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
