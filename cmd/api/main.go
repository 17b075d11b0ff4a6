package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tax-advisor/internal/config"
	"tax-advisor/internal/db"
	"tax-advisor/internal/domain"
	apihttp "tax-advisor/internal/http"
	"tax-advisor/internal/llm"
	"tax-advisor/internal/repository"
	"tax-advisor/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	rules, err := config.LoadRules(cfg.RulesFile, cfg.DefaultRuleSet())
	if err != nil {
		logger.Fatal("load rules", zap.Error(err))
	}

	sessionRepo, closeRepo := buildSessionRepository(ctx, cfg, logger)
	defer closeRepo()

	factory := llm.NewProviderFactory(llm.ProviderSettings{
		OpenAIAPIKey:     cfg.OpenAIAPIKey,
		OpenAIModel:      cfg.OpenAIModel,
		AnthropicAPIKey:  cfg.AnthropicAPIKey,
		AnthropicModel:   cfg.AnthropicModel,
		AnthropicBaseURL: cfg.AnthropicBaseURL,
		CompatibleURL:    cfg.LLMBaseURL,
		CompatibleAPIKey: cfg.LLMAPIKey,
		CompatibleModel:  cfg.LLMModel,
	}, logger)
	chains := service.ProviderChains{
		domain.VariantControl: llm.BuildChain(cfg.ProviderOrder, factory),
	}
	if len(cfg.TreatmentProviderOrder) > 0 {
		chains[domain.VariantTreatment] = llm.BuildChain(cfg.TreatmentProviderOrder, factory)
	}
	if len(chains.For(domain.VariantControl)) == 0 {
		logger.Warn("no llm provider configured; narratives will use the unavailable placeholder")
	}

	sessionSvc := service.NewSessionService(sessionRepo, logger)
	advisorySvc := service.NewAdvisoryService(
		sessionSvc,
		service.NewBucketAssigner(),
		service.NewAuditRiskClassifier(rules),
		service.NewTierClassifier(rules),
		service.DefaultStrategyCatalog,
		service.NewProviderRouter(cfg.ProviderTimeout(), cfg.RouterCeiling(), logger),
		chains,
		cfg.RolloutPercentage,
		cfg.RequiredDisclosures,
		logger,
	)

	turnLimiter := service.NewLocalTurnLimiter(cfg.TurnRatePerMinute, cfg.TurnBurst)
	advisoryHandler := apihttp.NewAdvisoryHandler(logger, advisorySvc, turnLimiter)
	router := apihttp.NewRouter(logger, advisoryHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server",
		zap.String("port", cfg.HTTPPort),
		zap.Int("rollout_percentage", cfg.RolloutPercentage),
		zap.Strings("provider_order", cfg.ProviderOrder),
	)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}

// buildSessionRepository elige el store: Redis si está configurado y responde, si no
// Postgres, y como último recurso memoria del proceso.
func buildSessionRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.SessionRepository, func()) {
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := redisClient.Ping(ctxPing).Err()
		cancel()
		if err == nil {
			logger.Info("session store: redis", zap.String("addr", cfg.RedisAddr))
			return repository.NewRedisSessionRepository(redisClient, cfg.SessionTTL()), func() { _ = redisClient.Close() }
		}
		logger.Warn("redis ping failed", zap.Error(err))
		_ = redisClient.Close()
	}

	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		if err := ensurePostgres(ctx, pool); err != nil {
			pool.Close()
			logger.Fatal("db init", zap.Error(err))
		}
		logger.Info("session store: postgres")
		return repository.NewPgSessionRepository(pool), pool.Close
	}

	logger.Warn("session store: in-memory; sessions are lost on restart")
	return repository.NewMemorySessionRepository(), func() {}
}

func ensurePostgres(ctx context.Context, pool *pgxpool.Pool) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.Ping(pingCtx, pool); err != nil {
		return err
	}
	return db.EnsureSchema(ctx, pool)
}
