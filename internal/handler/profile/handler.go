package profile

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	profilemodel "github.com/flourish-app/backend/internal/model/profile"
	"github.com/flourish-app/backend/pkg/utils"
)

// Handler serves profile retrieval and updates.
type Handler struct {
	store profilemodel.Store
}

// New creates a profile handler.
func New(store profilemodel.Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes registers profile routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/profile/{profileID}", h.handleGet)
	r.Put("/profile/{profileID}", h.handlePut)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "profileID")

	p, ok := h.store.Get(profileID)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "profile not found")
		return
	}

	utils.RespondJSON(w, http.StatusOK, p)
}

func (h *Handler) handlePut(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "profileID")

	var p profilemodel.Profile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p.ID = profileID
	h.store.Put(p)

	utils.RespondJSON(w, http.StatusOK, p)
}
