package stream

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/flourish-app/backend/internal/service/companion"
	"github.com/flourish-app/backend/pkg/utils"
)

// Handler streams companion replies over Server-Sent Events using the
// completions wire format: one JSON chunk per delta, closed by a sentinel.
type Handler struct {
	companionSvc *companion.Service
}

// New creates a stream handler.
func New(companionSvc *companion.Service) *Handler {
	return &Handler{companionSvc: companionSvc}
}

// RegisterRoutes registers the completions endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat/completions", h.handleCompletions)
}

// completionChunk is the streamed wire shape:
// data: {"choices":[{"delta":{"content":"..."}}]}
type completionChunk struct {
	Choices []completionChoice `json:"choices"`
}

type completionChoice struct {
	Delta completionDelta `json:"delta"`
}

type completionDelta struct {
	Content string `json:"content,omitempty"`
}

const doneSentinel = "[DONE]"

func (h *Handler) handleCompletions(w http.ResponseWriter, r *http.Request) {
	if h.companionSvc == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "AI service is not configured")
		return
	}

	var req companion.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	if !h.companionSvc.StreamingEnabled() {
		h.respondFull(w, flusher, r, req)
		return
	}

	stream, err := h.companionSvc.StreamReply(r.Context(), req)
	if err != nil {
		status, message := mapUpstreamError(err)
		log.Printf("[stream] completion failed: %v", err)
		utils.RespondError(w, status, message)
		return
	}
	defer stream.Close()

	utils.SetupSSEHeaders(w)

	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			// Headers are already sent; all we can do is log and close.
			log.Printf("[stream] recv failed mid-stream: %v", recvErr)
			break
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}

		writeDelta(w, flusher, chunk.Content)
	}

	utils.SendSSERaw(w, flusher, doneSentinel)
}

// respondFull generates the whole reply first and still answers in the
// streamed wire format, so clients decode both modes identically.
func (h *Handler) respondFull(w http.ResponseWriter, flusher http.Flusher, r *http.Request, req companion.Request) {
	response, err := h.companionSvc.GenerateReply(r.Context(), req)
	if err != nil {
		status, message := mapUpstreamError(err)
		log.Printf("[stream] completion failed: %v", err)
		utils.RespondError(w, status, message)
		return
	}

	utils.SetupSSEHeaders(w)
	writeDelta(w, flusher, response.Content)
	utils.SendSSERaw(w, flusher, doneSentinel)
}

func writeDelta(w http.ResponseWriter, flusher http.Flusher, content string) {
	utils.SendSSEChunk(w, flusher, completionChunk{
		Choices: []completionChoice{{Delta: completionDelta{Content: content}}},
	})
}

// mapUpstreamError translates provider failures into client-facing messages.
// Rate and quota exhaustion get friendly wording instead of raw provider text.
func mapUpstreamError(err error) (int, string) {
	if err == nil {
		return http.StatusOK, ""
	}

	message := err.Error()
	lower := strings.ToLower(message)

	switch {
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit"):
		return http.StatusTooManyRequests, "Rate limits exceeded. Please try again in a moment."
	case strings.Contains(lower, "402") || strings.Contains(lower, "quota") || strings.Contains(lower, "insufficient"):
		return http.StatusPaymentRequired, "Service temporarily unavailable. Please try again later."
	case strings.Contains(lower, "no messages") || strings.Contains(lower, "last message"):
		return http.StatusBadRequest, message
	default:
		return http.StatusInternalServerError, "Failed to connect to AI service"
	}
}
