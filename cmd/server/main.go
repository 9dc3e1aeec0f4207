package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/drillbook/drillbook/internal/ai"
	"github.com/drillbook/drillbook/internal/assist"
	"github.com/drillbook/drillbook/internal/catalog"
	"github.com/drillbook/drillbook/internal/generate"
	"github.com/drillbook/drillbook/internal/platform/cache"
	"github.com/drillbook/drillbook/internal/platform/config"
	"github.com/drillbook/drillbook/internal/platform/database"
	"github.com/drillbook/drillbook/internal/progress"
	"github.com/drillbook/drillbook/internal/server"
	"github.com/drillbook/drillbook/internal/source"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	cat, err := catalog.New(cfg.CatalogPath)
	if err != nil {
		logger.Error("failed to load catalog", "path", cfg.CatalogPath, "error", err)
		os.Exit(1)
	}
	logger.Info("catalog loaded", "path", cfg.CatalogPath, "terms", len(cat.Terms()))

	var store progress.Store = progress.NewMemoryStore()
	var events progress.EventLogger = progress.NopEventLogger{}
	var exchanges assist.ExchangeStore = assist.NewMemoryExchangeStore()
	var readiness []server.HealthChecker

	if cfg.Database.URL != "" {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := db.Migrate(ctx, progress.Schema, assist.Schema); err != nil {
			logger.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}

		pgStore, err := progress.NewPostgresStore(db.Pool)
		if err != nil {
			logger.Error("failed to build progress store", "error", err)
			os.Exit(1)
		}
		exStore, err := assist.NewPostgresExchangeStore(db.Pool)
		if err != nil {
			logger.Error("failed to build exchange store", "error", err)
			os.Exit(1)
		}
		store = pgStore
		events = progress.NewPostgresEventLogger(db.Pool)
		exchanges = exStore
		readiness = append(readiness, db)
		logger.Info("database connected")
	}

	var contentCache *cache.Cache
	if cfg.Cache.URL != "" {
		contentCache, err = cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			logger.Error("failed to connect to cache", "error", err)
			os.Exit(1)
		}
		defer contentCache.Close()
		readiness = append(readiness, contentCache)
		logger.Info("cache connected")
	}

	router := newRouter(cfg.AI, logger)
	gen := generate.New(router, generate.Config{
		Timeout: time.Duration(cfg.Generate.TimeoutSeconds) * time.Second,
		Retries: cfg.Generate.Retries,
	})

	engine := source.NewEngine(cat, catalog.NewTopicLookupInferrer(cat))
	assistant := assist.NewEngine(engine, gen, exchanges, logger)
	content := server.NewContentService(cat, gen, contentCache,
		time.Duration(cfg.Cache.ContentTTL)*time.Minute, logger)

	srv := &http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: server.New(server.Options{
			Catalog:   cat,
			Content:   content,
			Assistant: assistant,
			Store:     store,
			Events:    events,
			Exchanges: exchanges,
			TokenHash: cfg.Auth.TokenHash,
			Logger:    logger,
			Readiness: readiness,
		}).Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", srv.Addr, "providers", router.Names())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

// newLogger builds the process logger from config.
func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// newRouter registers every configured AI provider, in fallback order.
func newRouter(cfg config.AIConfig, logger *slog.Logger) *ai.Router {
	router := ai.NewRouter()
	if cfg.OpenAI.APIKey != "" {
		router.Register("openai", ai.NewOpenAIProvider(cfg.OpenAI.APIKey))
	}
	if cfg.DeepSeek.APIKey != "" {
		router.Register("deepseek", ai.NewDeepSeekProvider(cfg.DeepSeek.APIKey))
	}
	if cfg.Google.APIKey != "" {
		router.Register("google", ai.NewGoogleProvider(cfg.Google.APIKey))
	}
	if cfg.Ollama.Enabled {
		router.Register("ollama", ai.NewOllamaProvider(cfg.Ollama.URL))
	}
	if !router.HasProvider() {
		logger.Warn("no AI providers registered")
	}
	return router
}
