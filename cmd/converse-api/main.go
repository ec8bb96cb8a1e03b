package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/converselabs/converse/internal/adapters/http"
	"github.com/converselabs/converse/internal/adapters/llm"
	firestorestore "github.com/converselabs/converse/internal/adapters/storage/firestore"
	memstore "github.com/converselabs/converse/internal/adapters/storage/memory"
	"github.com/converselabs/converse/internal/app/session"
	"github.com/converselabs/converse/internal/config"
	"github.com/converselabs/converse/internal/domain"
	"github.com/converselabs/converse/internal/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	observability.Init(cfg.LogLevel)
	logger := observability.WithComponent("main")

	// Completion provider: mock or Gemini by config (useful for dev)
	var (
		client domain.CompletionClient
		err    error
	)
	if cfg.UseMockLLM {
		logger.Info("using mock completion client")
		client = llm.NewMockClient()
	} else {
		logger.Info("using Gemini completion client", "model", cfg.ModelName)
		client, err = llm.NewGeminiClient(ctx, llm.GeminiConfig{
			ProjectID: cfg.GCPProjectID,
			Location:  cfg.GCPLocation,
			ModelName: cfg.ModelName,
		})
		if err != nil {
			log.Fatalf("error initializing Gemini client: %v", err)
		}
	}

	// Storage: Firestore or Memory
	var store domain.SessionStore
	switch cfg.StorageBackend {
	case "firestore":
		logger.Info("using Firestore storage", "project", cfg.GCPProjectID)
		fsStore, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			log.Fatalf("error initializing Firestore store: %v", err)
		}
		defer fsStore.Close()
		store = fsStore
	default:
		logger.Info("using in-memory storage")
		store = memstore.NewStore()
	}

	cache := session.NewCache()
	assembler := session.NewAssembler(cfg.HistoryMaxMessages, cfg.HistoryMaxChars)
	gateway := session.NewGateway(client, store, cache, assembler)
	mgr := session.NewManager(store, cache, gateway, assembler)
	defer mgr.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpadapter.NewServer(mgr),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("converse API listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}
