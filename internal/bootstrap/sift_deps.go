package bootstrap

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"sift_server/adapter/out/persistence"
	"sift_server/adapter/out/provider"
	"sift_server/config"
	"sift_server/core/agent/llm"
	"sift_server/core/port/out"
	"sift_server/core/service/classify"
	"sift_server/core/service/process"
	"sift_server/infra/database"
	"sift_server/pkg/cache"
	"sift_server/pkg/logger"
)

type Dependencies struct {
	Config *config.Config
	DB     *pgxpool.Pool
	SQLDB  *sqlx.DB
	Redis  *redis.Client

	// Repositories
	EmailRepo out.ProcessedEmailRepository

	// Cache
	ProcessedIDs out.ProcessedIDCache

	// Providers
	GmailAdapter *provider.GmailAdapter

	// Classification
	LLMClient *llm.Client
	Router    *classify.Router

	// Services
	ProcessService *process.Service
}

func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg}
	var cleanups []func()

	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	// Database (pgxpool, used by readiness checks)
	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	deps.DB = db
	cleanups = append(cleanups, func() { db.Close() })

	// Database (sqlx for the persistence adapter)
	sqlxURL := cfg.DatabaseURL
	if strings.Contains(sqlxURL, "?") {
		sqlxURL += "&default_query_exec_mode=simple_protocol"
	} else {
		sqlxURL += "?default_query_exec_mode=simple_protocol"
	}
	sqlDB, err := sqlx.Connect("pgx", sqlxURL)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	deps.SQLDB = sqlDB
	cleanups = append(cleanups, func() { sqlDB.Close() })

	// Persistence
	emailAdapter := persistence.NewProcessedEmailAdapter(sqlDB)
	if err := emailAdapter.EnsureSchema(context.Background()); err != nil {
		cleanup()
		return nil, nil, err
	}
	deps.EmailRepo = emailAdapter

	// Redis is optional; without it the dedupe cache is disabled and every
	// unread message is refetched each run.
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedis(cfg.RedisURL)
		if err != nil {
			logger.WithError(err).Warn("Redis connection failed, processed-ID dedupe disabled")
		} else {
			deps.Redis = redisClient
			cleanups = append(cleanups, func() { redisClient.Close() })
			deps.ProcessedIDs = cache.NewProcessedIDCache(cache.NewRedisCache(redisClient))
		}
	}

	// Gmail provider
	deps.GmailAdapter = provider.NewGmailAdapter(&provider.GmailConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		TokenFile:    cfg.TokenFile,
	})

	// Classifier router. The model path is only wired when an API key is
	// configured; the router falls back to keyword rules otherwise.
	var llmClassifier *classify.LLMClassifier
	if cfg.UseLLM() {
		deps.LLMClient = llm.NewClientWithConfig(llm.ClientConfig{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.LLMBaseURL,
			Model:       cfg.LLMModel,
			MaxTokens:   cfg.LLMMaxTokens,
			Temperature: cfg.LLMTemperature,
		})
		llmClassifier = classify.NewLLMClassifier(deps.LLMClient, time.Duration(cfg.LLMTimeoutSec)*time.Second)
		logger.Info("LLM classification enabled (model: %s)", cfg.LLMModel)
	} else {
		logger.Info("LLM classification disabled, using keyword rules")
	}
	deps.Router = classify.NewRouter(llmClassifier)

	return deps, cleanup, nil
}

// NewProcessService builds the triage service from resolved dependencies.
// It fails until a Gmail token has been stored via the OAuth flow.
func (d *Dependencies) BuildProcessService(ctx context.Context) (*process.Service, error) {
	mailProvider, err := d.GmailAdapter.Provider(ctx)
	if err != nil {
		return nil, err
	}

	svc := process.NewService(mailProvider, d.EmailRepo, d.ProcessedIDs, d.Router, process.Options{
		Query:          d.Config.InboxQuery,
		MaxMessages:    d.Config.MaxMessages,
		FetchWorkers:   d.Config.FetchWorkers,
		MarkReadAfter:  d.Config.MarkReadAfter,
		UseLLM:         d.Config.UseLLM(),
		ProcessedIDTTL: d.Config.ProcessedIDTTL,
	})
	d.ProcessService = svc
	return svc, nil
}
