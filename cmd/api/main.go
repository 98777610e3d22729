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

	"github.com/glowlabs/glowchat/backend/internal/config"
	"github.com/glowlabs/glowchat/backend/internal/handler"
	"github.com/glowlabs/glowchat/backend/internal/service/ai"
	"github.com/glowlabs/glowchat/backend/internal/service/conversation"
	"github.com/glowlabs/glowchat/backend/internal/service/imagegen"
	jobtracker "github.com/glowlabs/glowchat/backend/internal/service/imagejob"
	"github.com/glowlabs/glowchat/backend/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	conversations := conversation.NewService()
	defer conversations.Close()

	tracker := jobtracker.NewTracker()
	defer tracker.Close()

	var completer ai.Completer
	if cfg.AI.Enabled() {
		aiService, err := ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
			log.Println("continuing without chat functionality - check AI_API_KEY and AI_MODEL")
		} else {
			completer = aiService
			log.Println("AI service initialized successfully")
		}
	} else {
		log.Println("AI credentials not configured, chat requests will fail")
	}

	var generator *imagegen.Service
	generatedDir := ""
	if cfg.Image.Enabled {
		store, err := storage.NewContentStore(cfg.Image.OutputDir)
		if err != nil {
			log.Fatalf("failed to prepare generated-content dir: %v", err)
		}
		generatedDir = store.Dir()

		workerGen, err := imagegen.NewWorkerGenerator(cfg.Image.WorkerCommand, cfg.Image.Timeout)
		if err != nil {
			log.Fatalf("failed to configure image worker: %v", err)
		}

		generator = imagegen.NewService(tracker, store, workerGen)
		defer generator.Close()
		log.Println("Image generation service initialized successfully")
	} else {
		log.Println("IMAGE_WORKER_CMD not configured, image generation disabled")
	}

	router := handler.NewRouter(conversations, tracker, completer, generator, generatedDir)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("glowchat relay listening on %s", addr)
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
