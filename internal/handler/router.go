package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/flourish-app/backend/internal/handler/chat"
	"github.com/flourish-app/backend/internal/handler/profile"
	"github.com/flourish-app/backend/internal/handler/stream"
	"github.com/flourish-app/backend/internal/handler/voice"
	middlewarePkg "github.com/flourish-app/backend/internal/middleware"
	profilemodel "github.com/flourish-app/backend/internal/model/profile"
	voicemodel "github.com/flourish-app/backend/internal/model/voice"
	chatservice "github.com/flourish-app/backend/internal/service/chat"
	"github.com/flourish-app/backend/internal/service/companion"
	voiceservice "github.com/flourish-app/backend/internal/service/voice"
	"github.com/flourish-app/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services. companionSvc may be nil when
// model credentials are absent; the completions endpoint then reports the AI
// service unavailable. Voice routes register only when the provider is
// configured.
func NewRouter(chatSvc *chatservice.Service, profiles profilemodel.Store, companionSvc *companion.Service, voiceCfg voicemodel.ProviderConfig, credentialSvc *voiceservice.CredentialService) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	chatHandler := chat.New(chatSvc)
	profileHandler := profile.New(profiles)
	streamHandler := stream.New(companionSvc)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		chatHandler.RegisterRoutes(api)
		profileHandler.RegisterRoutes(api)
		streamHandler.RegisterRoutes(api)

		if voiceCfg.Enabled() && credentialSvc != nil {
			voiceHandler := voice.New(voiceCfg, credentialSvc, chatSvc)
			voiceHandler.RegisterRoutes(api)
		} else {
			api.Post("/voice/token", func(w http.ResponseWriter, _ *http.Request) {
				utils.RespondError(w, http.StatusServiceUnavailable, "voice provider not configured")
			})
		}
	})

	return r
}
