package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/SimondaVinciii/capbot-agent/internal/config"
	"github.com/SimondaVinciii/capbot-agent/internal/db"
	dbRedis "github.com/SimondaVinciii/capbot-agent/internal/db/redis"
	"github.com/SimondaVinciii/capbot-agent/internal/domain"
	logpkg "github.com/SimondaVinciii/capbot-agent/internal/logger"
	"github.com/SimondaVinciii/capbot-agent/internal/metrics"
	"github.com/SimondaVinciii/capbot-agent/internal/repository/embcache"
	statsrepo "github.com/SimondaVinciii/capbot-agent/internal/repository/stats"
	topicrepo "github.com/SimondaVinciii/capbot-agent/internal/repository/topic"
	"github.com/SimondaVinciii/capbot-agent/internal/repository/topicindex"
	openaiTransport "github.com/SimondaVinciii/capbot-agent/internal/transport/openai"
	"github.com/SimondaVinciii/capbot-agent/internal/usecase/detect"
	embeddinguc "github.com/SimondaVinciii/capbot-agent/internal/usecase/embedding"
	healthuc "github.com/SimondaVinciii/capbot-agent/internal/usecase/health"
	"github.com/SimondaVinciii/capbot-agent/internal/usecase/indexing"
	"github.com/SimondaVinciii/capbot-agent/internal/usecase/modify"
	"github.com/SimondaVinciii/capbot-agent/internal/usecase/resolve"
	"github.com/SimondaVinciii/capbot-agent/internal/usecase/submit"
)

// app is the composition root shared by every subcommand.
type app struct {
	env    string
	cfg    config.Config
	logger *zap.Logger

	store  db.Store
	topics *topicrepo.Repo
	index  *topicindex.Repo
	stats  *statsrepo.Store

	detect   *detect.Service
	modify   *modify.Service
	resolve  *resolve.Service
	indexing *indexing.Service
	submit   *submit.Service
	health   *healthuc.Service
}

func newApp(ctx context.Context, env string) (*app, error) {
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	a := &app{env: env, cfg: cfg, logger: logger}
	if err := a.init(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context) error {
	cfg := a.cfg
	var err error

	// rueidis speaks RESP to both Redis Stack and Valkey with valkey-search.
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		return fmt.Errorf("create %s store: %w", cfg.Database.Driver, err)
	}
	a.store = store
	if err := a.store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	a.logger.Info("Connected to database",
		zap.String("driver", cfg.Database.Driver),
		zap.Strings("addrs", cfg.Database.Addrs),
	)

	a.topics, err = topicrepo.Open(ctx, topicrepo.Config{Driver: cfg.Repository.Driver, DSN: cfg.Repository.DSN})
	if err != nil {
		return fmt.Errorf("open topic repository: %w", err)
	}

	// Explicit registration, no init().
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterGeneratorMetrics()
	metrics.RegisterDetectionMetrics()
	metrics.RegisterHTTPMetrics()

	provider := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:            cfg.Embedding.APIKey,
		BaseURL:           cfg.Embedding.BaseURL,
		Model:             cfg.Embedding.Model,
		Dimensions:        cfg.Embedding.Dimensions,
		Provider:          cfg.Embedding.Provider,
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
		Logger:            a.logger,
	})
	embedder := buildEmbedder(provider, cfg.Embedding, a.store, a.logger)

	generator := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		Config: openaiTransport.Config{
			APIKey:            cfg.Generator.APIKey,
			BaseURL:           cfg.Generator.BaseURL,
			Model:             cfg.Generator.Model,
			Provider:          cfg.Generator.Provider,
			RequestsPerSecond: cfg.Generator.RequestsPerSecond,
			Logger:            a.logger,
		},
		Temperature: cfg.Generator.Temperature,
		MaxTokens:   cfg.Generator.MaxTokens,
	})

	a.index = topicindex.New(a.store, topicindex.Config{
		IndexName:          cfg.Index.Name,
		KeyPrefix:          cfg.Index.KeyPrefix,
		Dimension:          cfg.Embedding.Dimensions,
		HNSWM:              cfg.Index.HNSWM,
		HNSWEFConstruction: cfg.Index.HNSWEFConstruct,
	})
	if err := a.index.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}

	// A nil interface, not a typed nil pointer, disables the advisor.
	var advisor detect.Advisor
	if cfg.Generator.AdvisorEnabled {
		advisor = generator
	}

	a.stats = statsrepo.New(a.store)
	a.detect = detect.New(a.index, embedder, advisor, detect.Config{
		CandidateK:             cfg.Detection.CandidateK,
		MinCandidateSimilarity: cfg.Detection.MinCandidateSimilarity,
		AdvisorTimeout:         cfg.Generator.Timeout(),
	})
	a.modify = modify.New(generator, cfg.Generator.Timeout())
	a.resolve = resolve.New(a.detect, a.modify, a.stats)
	a.indexing = indexing.New(a.index, embedder, a.topics, indexing.Config{
		Workers:   cfg.Index.Workers,
		PageSize:  cfg.Index.DefaultPageSize * 10,
		BatchSize: cfg.Index.BatchSize,
	})
	a.submit = submit.New(a.resolve, a.topics, a.indexing)
	a.health = healthuc.New(a.store, a.topics, provider, generator)

	a.logger.Info("Services ready",
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.String("generator_model", cfg.Generator.Model),
		zap.Bool("advisor", cfg.Generator.AdvisorEnabled),
	)
	return nil
}

// context returns a background context carrying the application logger.
func (a *app) context() context.Context {
	return logpkg.ContextWithLogger(context.Background(), a.logger)
}

func (a *app) close() {
	if a.topics != nil {
		if err := a.topics.Close(); err != nil {
			a.logger.Warn("Failed to close topic repository", zap.Error(err))
		}
	}
	if a.store != nil {
		a.store.Close()
	}
	_ = a.logger.Sync()
}

// buildEmbedder assembles the decorator chain: provider -> cache -> instrumentation -> instruction.
func buildEmbedder(
	provider *openaiTransport.Embedder,
	cfg config.EmbeddingConfig,
	store db.KVStore,
	logger *zap.Logger,
) domain.Embedder {
	ttl := time.Duration(cfg.CacheTTLHours) * time.Hour
	var e domain.Embedder = embcache.New(provider, store, cfg.Model, ttl, metrics.EmbeddingCacheTotal, logger)
	e = embeddinguc.NewInstrumentedEmbedder(e, cfg.Provider, cfg.Model, logger)
	if cfg.Instruction != "" {
		e = domain.NewInstructionEmbedder(e, cfg.Instruction)
	}
	return e
}
