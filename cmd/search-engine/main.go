// cmd/search-engine/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"devpulse-search/internal/agents"
	"devpulse-search/internal/api"
	"devpulse-search/internal/cache"
	"devpulse-search/internal/common/config"
	"devpulse-search/internal/common/database"
	"devpulse-search/internal/common/httpclient"
	"devpulse-search/internal/common/logger"
	"devpulse-search/internal/common/observability"
	"devpulse-search/internal/intent"
	"devpulse-search/internal/orchestrator"
	"devpulse-search/internal/ratelimit"
	"devpulse-search/internal/relevance"
	"devpulse-search/internal/source"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting search engine...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Redis with retry; degrade to in-memory stores ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 5, 2*time.Second, zapLog, "Redis connection")

	var (
		cacheStore cache.Store
		quotaStore ratelimit.Store
	)
	if err != nil {
		// Cache and quota both fail open, so a missing Redis costs cross-
		// instance coordination, not availability.
		zapLog.Warn("redis unavailable, using in-memory cache and quota stores", zap.Error(err))
		redis = nil
		cacheStore = cache.NewMemoryStore()
		quotaStore = ratelimit.NewMemoryStore(cfg.Quota)
	} else {
		defer redis.Close()
		zapLog.Info("Redis connected successfully")
		cacheStore = cache.NewRedisStore(redis.Client)
		quotaStore = ratelimit.NewRedisStore(redis.Client, cfg.Quota)
	}

	// --- Source adapters ---
	httpClient := httpclient.NewClient(time.Duration(cfg.Search.SourceTimeout) * time.Millisecond)

	registry := source.NewRegistry()
	adapters := []source.Adapter{
		source.NewGitHubAdapter(cfg.Sources.GitHub, httpClient, log),
		source.NewHackerNewsAdapter(cfg.Sources.HackerNews, httpClient, log),
		source.NewDevToAdapter(cfg.Sources.DevTo, httpClient, log),
		source.NewCryptoAdapter(cfg.Sources.Crypto, httpClient, log),
	}
	for _, adapter := range adapters {
		if err := registry.Register(adapter); err != nil {
			zapLog.Fatal("adapter registration failed", zap.Error(err))
		}
	}
	zapLog.Info("source adapters registered", zap.Strings("sources", registry.Names()))

	// --- Optional semantic scoring ---
	var semantic *relevance.SemanticScorer
	if cfg.Embedding.Enabled {
		embedder, err := newEmbedder(cfg.Embedding)
		if err != nil {
			zapLog.Warn("embedder init failed, keyword scoring only", zap.Error(err))
		} else {
			semantic, err = relevance.NewSemanticScorer(embedder, cfg.Embedding.PoolSize, log)
			if err != nil {
				zapLog.Warn("semantic scorer init failed, keyword scoring only", zap.Error(err))
				semantic = nil
			} else {
				zapLog.Info("semantic scoring enabled", zap.String("model", cfg.Embedding.Model))
			}
		}
	}

	scorer := relevance.NewScorer(cfg.Search, semantic, log)
	classifier := intent.NewClassifier()
	queryCache := cache.New(cacheStore, cfg.Cache, log)
	limiter := ratelimit.New(quotaStore, log)

	orch := orchestrator.New(classifier, registry, scorer, queryCache, cfg.Search, log)

	// --- Optional narration agents ---
	var responder api.Responder = api.NewSearchOnlyResponder(orch)
	if cfg.Agents.Enabled {
		model, err := agents.NewModel(cfg.Agents)
		if err != nil {
			zapLog.Warn("agent model init failed, narration disabled", zap.Error(err))
		} else {
			registered := []agents.Agent{
				agents.NewConversationAgent(model, cfg.Agents.Model, log),
				agents.NewCodeAgent(model, cfg.Agents.Model, log),
				agents.NewSearchAgent(model, cfg.Agents.Model, log),
			}
			responder = agents.NewRouter(classifier, orch, registered, cfg.Agents, log)
			zapLog.Info("narration agents enabled", zap.String("model", cfg.Agents.Model))
		}
	}

	handler, err := api.NewHandler(responder, limiter, obs, cfg.App.Version, log)
	if err != nil {
		zapLog.Fatal("handler init failed", zap.Error(err))
	}

	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: handler.Routes(),
	}

	go func() {
		zapLog.Info("API server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("API server failed", zap.Error(err))
		}
	}()

	// --- Metrics & pprof Server ---
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Metrics server listening", zap.String("address", cfg.Server.MetricsAddress))
		if err := http.ListenAndServe(cfg.Server.MetricsAddress, nil); err != nil {
			zapLog.Error("Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("API server shutdown failed", zap.Error(err))
	}

	zapLog.Info("Search engine stopped gracefully")
}

// newEmbedder builds the OpenAI-compatible embedding client. An empty
// token works against local endpoints.
func newEmbedder(cfg config.EmbeddingConfig) (embeddings.Embedder, error) {
	opts := []openai.Option{
		openai.WithToken("none"),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
}
