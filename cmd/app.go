package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spigell/freelance-advisor/internal/advisor"
	"github.com/spigell/freelance-advisor/internal/backend"
	"github.com/spigell/freelance-advisor/internal/cache"
	"github.com/spigell/freelance-advisor/internal/llm"
	"github.com/spigell/freelance-advisor/internal/llm/gemini"
	"github.com/spigell/freelance-advisor/internal/metrics"
	"github.com/spigell/freelance-advisor/internal/orchestrator"
	"github.com/spigell/freelance-advisor/internal/secrets"
)

// agent holds the process wide components shared by the commands.
type agent struct {
	backend      *backend.Client
	cache        *cache.Cache
	tools        *advisor.Toolset
	orchestrator *orchestrator.Orchestrator
	metrics      *metrics.Collector

	redis  *redis.Client
	logger *zap.Logger
}

// newDataLayer builds the backend client and the cache in front of it.
func newDataLayer(ctx context.Context, cfg *Config, log *zap.Logger, m *metrics.Collector) (*agent, error) {
	a := &agent{
		backend: backend.New(cfg.Backend, log, m),
		metrics: m,
		logger:  log,
	}

	var store cache.Store
	if url := strings.TrimSpace(cfg.Cache.RedisURL); url != "" {
		client, err := cache.NewRedisClient(ctx, url)
		if err != nil {
			return nil, err
		}
		a.redis = client
		// entries outlive their TTL so a failed refresh can still serve stale data
		store = cache.NewRedisStore(client, cfg.Cache.RedisPrefix, 10*cacheTTL(cfg))
		log.Info("using redis cache store", zap.String("prefix", cfg.Cache.RedisPrefix))
	}

	a.cache = cache.New(cfg.Cache.Config, a.backend, store, log, m)

	return a, nil
}

// newAgent builds the full tool-calling stack on top of the data layer.
func newAgent(ctx context.Context, cfg *Config, log *zap.Logger, m *metrics.Collector) (*agent, error) {
	a, err := newDataLayer(ctx, cfg, log, m)
	if err != nil {
		return nil, err
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "llm api key",
		Value: cfg.LLM.APIKey,
		File:  cfg.LLM.APIKeyFile,
		Env:   "ASI1_API_KEY",
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("%w (set llm.api-key, ASI1_API_KEY or ASI1_API_KEY_FILE)", err)
	}
	client := llm.NewOpenAIClient(apiKey, cfg.LLM)

	completer, err := newCompleter(ctx, cfg.LLM, client, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	tools, err := advisor.New(a.cache, completer, log, m)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build advisor tools: %w", err)
	}
	a.tools = tools

	a.orchestrator = orchestrator.New(client, tools, orchestrator.Options{
		Model:         cfg.LLM.Model,
		MaxTokens:     cfg.LLM.MaxTokens,
		ParallelTools: cfg.LLM.ParallelTools,
	}, log, m)

	return a, nil
}

func newCompleter(ctx context.Context, cfg llm.Config, client llm.ChatClient, log *zap.Logger) (llm.Completer, error) {
	switch cfg.Provider {
	case llm.ProviderGemini:
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			Value: cfg.Gemini.APIKey,
			File:  cfg.Gemini.APIKeyFile,
			Env:   "GEMINI_API_KEY",
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set llm.gemini.api-key, GEMINI_API_KEY or GEMINI_API_KEY_FILE)", err)
		}
		return gemini.New(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, log)
	case llm.ProviderOpenAI, "":
		return llm.NewOpenAICompleter(client, cfg.Model, cfg.MaxTokens, log), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}

func (a *agent) Close() {
	if a.redis == nil {
		return
	}
	if err := a.redis.Close(); err != nil {
		a.logger.Warn("failed to close redis client", zap.Error(err))
	}
}

func cacheTTL(cfg *Config) time.Duration {
	if cfg.Cache.TTL > 0 {
		return cfg.Cache.TTL
	}
	return cache.DefaultTTL
}
