package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-rubric-api/internal/config"
	"github.com/noah-isme/gema-rubric-api/internal/database"
	"github.com/noah-isme/gema-rubric-api/internal/handler"
	"github.com/noah-isme/gema-rubric-api/internal/middleware"
	"github.com/noah-isme/gema-rubric-api/internal/models"
	"github.com/noah-isme/gema-rubric-api/internal/repository"
	"github.com/noah-isme/gema-rubric-api/internal/router"
	"github.com/noah-isme/gema-rubric-api/internal/service"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.AppEnv == "development" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.DatabaseDriver).Msg("failed to connect to database")
	}

	if err := db.AutoMigrate(&models.Rubric{}, &models.RubricAssessment{}, &models.ActivityLog{}); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	redisClient, err := database.ConnectRedis(context.Background(), cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to nats")
	}
	if natsConn != nil {
		defer natsConn.Drain()
	} else {
		logger.Info().Msg("nats url not configured; assessment events disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	rubricRepo := repository.NewRubricRepository(db)
	assessmentRepo := repository.NewRubricAssessmentRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	draftStore := repository.NewRedisDraftStore(redisClient, cfg.ChannelBase)

	activityService := service.NewActivityService(activityRepo, logger)
	rubricService := service.NewRubricService(rubricRepo, activityService, logger)
	dispatcher := service.NewFormDispatcher(cfg.LegacyAssessmentURL, cfg.LegacyAssessmentVerb, cfg.LegacyDispatchTimeout, logger)
	if !dispatcher.Enabled() {
		logger.Warn().Msg("legacy assessment url not configured; submissions are recorded but not delivered")
	}
	assessmentService := service.NewAssessmentService(service.AssessmentServiceConfig{
		Rubrics:     rubricService,
		Drafts:      draftStore,
		Assessments: assessmentRepo,
		Dispatcher:  dispatcher,
		Events:      service.NewNATSAssessmentPublisher(natsConn, cfg.ChannelBase),
		Activity:    activityService,
		Validator:   validate,
		DraftTTL:    cfg.DraftTTL,
	}, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    cfg.MaxImportBytes + 64<<10,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		RubricHandler:          handler.NewRubricHandler(rubricService, cfg.MaxImportBytes, logger),
		AssessmentDraftHandler: handler.NewAssessmentDraftHandler(assessmentService, logger),
		ActivityHandler:        handler.NewActivityHandler(activityService, logger),
		HealthProbes: []handler.HealthProbe{
			{Name: "database", Check: func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			}},
			{Name: "redis", Check: func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			}},
		},
		JWTMiddleware: middleware.JWTProtected(cfg.JWTSecret),
		SubmitLimiter: middleware.RateLimit("assessment-submit", cfg.SubmitRateLimit, cfg.SubmitRateWindow),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
