// Package bootstrap wires configuration, stores and services together.
package bootstrap

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"spam_filter/adapter/out/cache"
	"spam_filter/adapter/out/mongodb"
	"spam_filter/adapter/out/persistence"
	"spam_filter/config"
	"spam_filter/core/port/out"
	"spam_filter/core/service/content"
	"spam_filter/core/service/intake"
	"spam_filter/core/service/learning"
	"spam_filter/core/service/lexicon"
	"spam_filter/infra/database"
	"spam_filter/pkg/apperr"
	rediscache "spam_filter/pkg/cache"
	"spam_filter/pkg/logger"
	"spam_filter/pkg/metrics"
	"spam_filter/pkg/resilience"
)

type Dependencies struct {
	Config  *config.Config
	Log     zerolog.Logger
	DB      *pgxpool.Pool
	SQLDB   *sqlx.DB
	Redis   *redis.Client
	MongoDB *mongo.Client

	// Stores
	WordStore out.WordCounterStore
	Weights   out.WeightBlobStore
	Messages  out.LearningMessageRepository
	Corpus    *mongodb.CorpusAdapter

	// Services
	Parser      *content.Parser
	Bayes       *learning.BayesModel
	Neural      *learning.NeuralModel
	Trainer     *learning.Trainer
	AutoLearner *intake.AutoLearner
	Intake      *intake.Service
}

// NewDependencies connects to every configured backend and builds the
// services. PostgreSQL is required; Redis and MongoDB are optional.
func NewDependencies(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg, Log: log}
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, nil, apperr.ConfigError("DATABASE_URL is required")
	}

	// Database (pgxpool)
	db, err := database.NewPostgres(ctx, cfg.DatabaseURL, database.DefaultPostgresConfig(cfg.NumCPUCores))
	if err != nil {
		return nil, nil, apperr.DatabaseError("connect", err)
	}
	deps.DB = db
	cleanups = append(cleanups, db.Close)

	// Database (sqlx over the same pool)
	deps.SQLDB = database.NewSQLX(db)
	cleanups = append(cleanups, func() { deps.SQLDB.Close() })
	if err := metrics.RegisterPool("postgres", deps.SQLDB.DB); err != nil {
		logger.Warn("Failed to register pool metrics: %v", err)
	}

	wordAdapter := persistence.NewWordCounterAdapter(deps.SQLDB)
	deps.WordStore = wordAdapter
	deps.Weights = persistence.NewWeightAdapter(db)
	deps.Messages = persistence.NewLearningMessageAdapter(deps.SQLDB)

	// Redis (word cache)
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedis(ctx, cfg.RedisURL, nil)
		if err != nil {
			logger.Warn("Redis connection failed, word cache disabled: %v", err)
		} else {
			deps.Redis = redisClient
			wordCache := rediscache.NewRedisCache(redisClient)
			cleanups = append(cleanups, func() { wordCache.Close() })

			breaker := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("word-cache"), log)
			deps.WordStore = cache.NewCachedWordStore(wordAdapter, wordCache, breaker,
				cache.Options{Prefix: cache.DefaultOptions().Prefix, TTL: cfg.CacheTTL()}, log)
			logger.Info("Word cache enabled (ttl=%s)", cfg.CacheTTL())
		}
	}

	// MongoDB (message corpus)
	if cfg.MongoDBURL != "" {
		mongoClient, err := mongodb.NewClient(ctx, cfg.MongoDBURL)
		if err != nil {
			logger.Warn("MongoDB connection failed: %v", err)
		} else {
			deps.MongoDB = mongoClient
			cleanups = append(cleanups, func() { mongoClient.Disconnect(context.Background()) })
			deps.Corpus = mongodb.NewCorpusAdapter(mongoClient.Database(cfg.MongoDBName))
		}
	}

	if err := deps.buildServices(); err != nil {
		cleanup()
		return nil, nil, err
	}
	return deps, cleanup, nil
}

// buildServices creates the models and intake services on top of the stores.
func (d *Dependencies) buildServices() error {
	lexicon.Configure(d.Config.LexiconOptions())
	lex, err := lexicon.Shared()
	if err != nil {
		return apperr.ConfigError("failed to load lexicon").WithError(err)
	}

	d.Parser = content.NewParser(lex)
	d.Bayes = learning.NewBayesModel(d.WordStore, d.Parser, d.Config.BayesOptions(), d.Log)
	d.Neural = learning.NewNeuralModel(d.Weights, d.Bayes, d.Parser, d.Config.NeuralOptions(), d.Log)
	d.Trainer = learning.NewTrainer(d.Log)
	d.AutoLearner = intake.NewAutoLearner(d.Messages, d.Trainer, intake.AutoLearnerConfig{
		Enabled:   d.Config.AutoLearningEnabled,
		BatchSize: d.Config.TrainBatchSize,
	}, d.Log, d.Bayes, d.Neural)
	d.Intake = intake.NewService(d.Neural, d.Messages, d.AutoLearner, d.Log)
	return nil
}

// NewInMemory builds the services on caller-provided stores without any
// network backend.
func NewInMemory(cfg *config.Config, log zerolog.Logger, words out.WordCounterStore,
	weights out.WeightBlobStore, messages out.LearningMessageRepository) (*Dependencies, error) {
	deps := &Dependencies{
		Config:    cfg,
		Log:       log,
		WordStore: words,
		Weights:   weights,
		Messages:  messages,
	}
	if err := deps.buildServices(); err != nil {
		return nil, err
	}
	return deps, nil
}
