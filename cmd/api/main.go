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
	"go.uber.org/zap"

	"github.com/atelierhq/atelier/backend/internal/agent"
	"github.com/atelierhq/atelier/backend/internal/blob"
	"github.com/atelierhq/atelier/backend/internal/config"
	"github.com/atelierhq/atelier/backend/internal/controller"
	"github.com/atelierhq/atelier/backend/internal/handler"
	"github.com/atelierhq/atelier/backend/internal/kv"
	"github.com/atelierhq/atelier/backend/internal/model/catalog"
	"github.com/atelierhq/atelier/backend/internal/tools"
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

	logger, err := newLogger()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// Durable store: Redis when configured, process memory otherwise.
	var store kv.Store
	var assetStore blob.Store
	if cfg.Store.RedisURL != "" {
		redisStore, err := kv.OpenRedisStore(ctx, cfg.Store.RedisURL)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		store = redisStore
		if cfg.Assets.Enabled {
			assetStore = blob.NewRedisStore(redisStore.Client())
		}
		logger.Info("durable store: redis")
	} else {
		store = kv.NewMemoryStore()
		if cfg.Assets.Enabled {
			assetStore = blob.NewMemoryStore()
		}
		logger.Warn("REDIS_URL not set, state will not survive restarts")
	}

	registry := controller.NewRegistry(store, assetStore, cfg.Assets.PublicBaseURL, logger)
	appController := registry.Default()

	dispatcher := tools.NewDispatcher(toolBackends(cfg.Tools), logger, tools.WithDelay(cfg.Tools.SimulatedDelay))
	if err := dispatcher.Initialize(ctx); err != nil {
		logger.Fatal("failed to initialize tool dispatcher", zap.Error(err))
	}

	var llm *agent.LLM
	if cfg.AI.Enabled() {
		llm, err = agent.NewLLM(ctx, cfg.AI)
		if err != nil {
			logger.Warn("failed to initialize language model, continuing with offline generator", zap.Error(err))
			llm = nil
		} else {
			logger.Info("language model initialized")
		}
	} else {
		logger.Info("model credentials not configured, using offline generator")
	}

	models := catalog.NewMemoryStore(catalog.Seed())
	defaultModel := models.List()[0].ID
	agents := agent.NewRegistry(llm, dispatcher, appController, defaultModel, logger)

	router := handler.NewRouter(appController, agents, models, logger)

	startServer(ctx, cfg.Server, router, logger)
}

func newLogger() (*zap.Logger, error) {
	if os.Getenv("APP_ENV") == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func toolBackends(cfg config.ToolsConfig) []tools.BackendConfig {
	return []tools.BackendConfig{
		{Name: tools.BackendImageGenerate, Endpoint: cfg.ImageGenerateURL},
		{Name: tools.BackendImageEdit, Endpoint: cfg.ImageEditURL},
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("atelier backend listening", zap.String("addr", serverCfg.Addr))
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal("server error", zap.Error(err))
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
