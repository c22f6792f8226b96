package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/config"
	"github.com/ekaya-inc/ekaya-catalog/pkg/crypto"
	"github.com/ekaya-inc/ekaya-catalog/pkg/database"
	"github.com/ekaya-inc/ekaya-catalog/pkg/llm"
	"github.com/ekaya-inc/ekaya-catalog/pkg/logging"
	"github.com/ekaya-inc/ekaya-catalog/pkg/repositories"
	"github.com/ekaya-inc/ekaya-catalog/pkg/services"
)

// app holds the wired dependencies shared by every command.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *database.DB
	redis  *redis.Client

	areas     services.AreaService
	steps     services.ProcessStepService
	useCases  services.UseCaseService
	relevance services.RelevanceService
	graph     services.GraphService
	dashboard services.DashboardService
	settings  services.LLMSettingsService
	analysis  services.AnalysisService
	users     services.UserService
	imports   services.ImportService
	transfers services.TransferService
	planStore services.PlanStore
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(Version)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.NewLogger(cfg.IsLocal(), cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	logger.Debug("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.URL())),
		zap.Bool("redis", cfg.Redis.Host != ""))

	db, err := database.NewConnection(ctx, &database.Config{
		URL:             cfg.Database.URL(),
		MaxConnections:  cfg.Database.MaxConnections,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	})
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	box, err := crypto.NewSecretBox(cfg.CredentialsKey)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("invalid credentials key: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, db: db}

	if cfg.Redis.Host != "" {
		a.redis, err = database.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.planStore = services.NewRedisPlanStore(a.redis, cfg.Import.PreviewTTL)
	} else {
		a.planStore = services.NewMemoryPlanStore(cfg.Import.PreviewTTL, nil)
	}

	tx := database.NewTxRunner()

	areaRepo := repositories.NewAreaRepository()
	stepRepo := repositories.NewProcessStepRepository()
	ucRepo := repositories.NewUseCaseRepository()
	linkRepo := repositories.NewRelevanceRepository()
	tags := services.NewTagNormalizer(repositories.NewTagRepository(), logger)

	a.areas = services.NewAreaService(areaRepo, logger)
	a.steps = services.NewProcessStepService(stepRepo, logger)
	a.useCases = services.NewUseCaseService(ucRepo, linkRepo, tags, tx, logger)
	a.relevance = services.NewRelevanceService(linkRepo, tx, logger)
	a.graph = services.NewGraphService(areaRepo, stepRepo, linkRepo, logger)
	a.dashboard = services.NewDashboardService(repositories.NewDashboardRepository(), logger)
	a.settings = services.NewLLMSettingsService(repositories.NewLLMSettingsRepository(box), logger)
	a.analysis = services.NewAnalysisService(stepRepo, ucRepo, a.settings, llm.NewFactory(cfg.LLM, logger), logger)
	a.users = services.NewUserService(repositories.NewUserRepository(), logger)
	a.imports = services.NewImportService(&services.ImportServiceDeps{
		AreaRepo:        areaRepo,
		ProcessStepRepo: stepRepo,
		UseCaseRepo:     ucRepo,
		RelevanceRepo:   linkRepo,
		Tags:            tags,
		Tx:              tx,
		Logger:          logger,
	})
	a.transfers = services.NewTransferService(repositories.NewTransferRepository(), a.imports, tx, Version, logger)

	return a, nil
}

func (a *app) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("Failed to close redis client", zap.Error(err))
		}
	}
	a.db.Close()
	_ = a.logger.Sync()
}
