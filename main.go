package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/upkept/upkept-engine/pkg/auth"
	"github.com/upkept/upkept-engine/pkg/config"
	"github.com/upkept/upkept-engine/pkg/database"
	"github.com/upkept/upkept-engine/pkg/handlers"
	"github.com/upkept/upkept-engine/pkg/llm"
	"github.com/upkept/upkept-engine/pkg/logging"
	"github.com/upkept/upkept-engine/pkg/middleware"
	"github.com/upkept/upkept-engine/pkg/repositories"
	"github.com/upkept/upkept-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
		zap.Bool("ai_available", cfg.AI.IsAvailable()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database",
			zap.String("error", logging.SanitizeError(err)))
	}
	defer db.Close()

	if err := runMigrations(cfg, logger); err != nil {
		logger.Fatal("Failed to run migrations",
			zap.String("error", logging.SanitizeError(err)))
	}

	redisClient, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	validator, err := auth.NewJWKSValidator(&auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSURL:            cfg.Auth.JWKSURL,
		Issuer:             cfg.Auth.Issuer,
	})
	if err != nil {
		logger.Fatal("Failed to create token validator", zap.Error(err))
	}
	authMiddleware := auth.NewMiddleware(validator, logger)

	var llmClient llm.LLMClient
	if cfg.AI.IsAvailable() {
		client, err := llm.NewClient(&llm.Config{
			Endpoint: cfg.AI.BaseURL,
			Model:    cfg.AI.Model,
			APIKey:   cfg.AI.APIKey,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to create LLM client", zap.Error(err))
		}
		llmClient = client
		logger.Info("AI features enabled", zap.String("model", client.GetModel()))
	} else {
		logger.Info("No AI endpoint configured, insights run rule-based only")
	}

	itemRepo := repositories.NewItemRepository()
	issueRepo := repositories.NewIssueRepository()
	typeRepo := repositories.NewItemTypeRepository()

	itemService := services.NewItemService(itemRepo, logger)
	typeService := services.NewItemTypeService(typeRepo, logger)
	issueService := services.NewIssueService(issueRepo, itemRepo, logger)
	queryService := services.NewQueryService(issueRepo, llmClient, cfg.AI.Timeout(), logger)
	summaryService := services.NewSummaryService(itemRepo, issueRepo, llmClient, cfg.AI.Timeout(), logger)
	insightService := services.NewInsightService(itemRepo, issueRepo, services.InsightServiceConfig{
		LLMClient:  llmClient,
		LLMTimeout: cfg.AI.Timeout(),
		Cache:      redisClient,
		CacheTTL:   time.Duration(cfg.Redis.InsightTTLSeconds) * time.Second,
	}, logger)

	tenantMiddleware := handlers.TenantMiddleware(database.WithTenantContext(db, logger))
	publicMiddleware := handlers.TenantMiddleware(database.WithPublicContext(db, logger))

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewItemHandler(itemService, logger).RegisterRoutes(mux, authMiddleware, tenantMiddleware)
	handlers.NewItemTypeHandler(typeService, logger).RegisterRoutes(mux, authMiddleware, tenantMiddleware)
	handlers.NewIssueHandler(issueService, queryService, logger).RegisterRoutes(mux, authMiddleware, tenantMiddleware, publicMiddleware)
	handlers.NewInsightHandler(insightService, summaryService, logger).RegisterRoutes(mux, authMiddleware, tenantMiddleware)

	server := &http.Server{
		Addr:              cfg.BindAddr + ":" + cfg.Port,
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting upkept-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
	}
}

// runMigrations opens a short-lived database/sql connection for the
// migration driver; the pgx pool stays dedicated to request traffic.
func runMigrations(cfg *config.Config, logger *zap.Logger) error {
	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()

	return database.RunMigrations(sqlDB, cfg.MigrationsPath, logger)
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
