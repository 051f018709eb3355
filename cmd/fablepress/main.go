package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mvidale/fablepress/internal/audio"
	"github.com/mvidale/fablepress/internal/config"
	"github.com/mvidale/fablepress/internal/genai"
	"github.com/mvidale/fablepress/internal/guardrail"
	"github.com/mvidale/fablepress/internal/history"
	"github.com/mvidale/fablepress/internal/httpapi"
	"github.com/mvidale/fablepress/internal/observability"
	"github.com/mvidale/fablepress/internal/orchestrator"
	"github.com/mvidale/fablepress/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	historyStore, err := history.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("history store init failed: %v", err)
	}
	defer historyStore.Close()

	var provider genai.Provider
	providerMode := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if providerMode == "" {
		providerMode = "auto"
	}

	tryOpenAI := func() bool {
		if cfg.OpenAIAPIKey == "" {
			return false
		}
		provider = genai.NewOpenAIProvider(genai.OpenAIConfig{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			SpeechModel: cfg.SpeechModel,
			ImageModel:  cfg.ImageModel,
			ImageSize:   cfg.ImageSize,
			ChatModel:   cfg.ChatModel,
			CallTimeout: cfg.CollaboratorTimeout,
		})
		log.Printf("collaborator provider: openai")
		return true
	}

	switch providerMode {
	case "openai":
		if !tryOpenAI() {
			log.Fatalf("AI_PROVIDER=openai but OPENAI_API_KEY is not set")
		}
	case "mock":
		provider = genai.NewMockProvider()
		log.Printf("collaborator provider: mock")
	case "auto":
		if !tryOpenAI() {
			provider = genai.NewMockProvider()
			log.Printf("collaborator provider: mock (no openai key)")
		}
	default:
		log.Fatalf("invalid AI_PROVIDER: %q (expected auto|openai|mock)", cfg.Provider)
	}

	sessions := session.NewStore(cfg.SessionTTL)
	sessions.SetExpireHook(func(_ string) {
		metrics.SessionEvents.WithLabelValues("expired").Inc()
		metrics.ActiveSessions.Set(float64(sessions.Len()))
	})

	orch := orchestrator.New(
		orchestrator.Config{
			GeneralTokenCeiling: cfg.GeneralTokenCeiling,
			PDFTokenCeiling:     cfg.PDFTokenCeiling,
			WorkdirRoot:         cfg.WorkdirRoot,
			Retry:               genai.DefaultRetryPolicy(cfg.ImageRetryAttempts),
		},
		sessions,
		provider,
		guardrail.NewEstimator(cfg.TokenizerModel),
		audio.NewMP3Encoder(cfg.FFmpegPath),
		metrics,
		historyStore,
	)

	api := httpapi.New(cfg, orch, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
