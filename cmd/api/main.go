package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/flourish-app/backend/internal/config"
	"github.com/flourish-app/backend/internal/handler"
	"github.com/flourish-app/backend/internal/model/profile"
	chatservice "github.com/flourish-app/backend/internal/service/chat"
	"github.com/flourish-app/backend/internal/service/companion"
	voiceservice "github.com/flourish-app/backend/internal/service/voice"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	chatService := chatservice.NewService()
	profileStore := profile.NewMemoryStore()

	var companionSvc *companion.Service
	if cfg.AI.Enabled() {
		companionSvc, err = companion.NewService(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize companion service: %v", err)
			log.Println("continuing without AI functionality - check the Ark model environment variables")
		} else {
			log.Println("companion service initialized")
		}
	} else {
		log.Println("model credentials not configured, skipping companion initialization")
	}

	var credentialSvc *voiceservice.CredentialService
	if cfg.Voice.Enabled() {
		var summarizer voiceservice.Summarizer
		if companionSvc != nil {
			summarizer = companionSvc
		}
		credentialSvc = voiceservice.NewCredentialService(cfg.Voice, chatService, summarizer)
		log.Println("voice credential service initialized")
	} else {
		log.Println("voice provider credentials not configured, skipping voice initialization")
	}

	router := handler.NewRouter(chatService, profileStore, companionSvc, cfg.Voice, credentialSvc)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Flourish backend listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
