package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/essay-eval-api/internal/config"
	"github.com/noah-isme/essay-eval-api/internal/database"
	"github.com/noah-isme/essay-eval-api/internal/handler"
	"github.com/noah-isme/essay-eval-api/internal/middleware"
	"github.com/noah-isme/essay-eval-api/internal/models"
	"github.com/noah-isme/essay-eval-api/internal/repository"
	"github.com/noah-isme/essay-eval-api/internal/router"
	"github.com/noah-isme/essay-eval-api/internal/service"
	"github.com/noah-isme/essay-eval-api/pkg/ai"
	"github.com/noah-isme/essay-eval-api/pkg/media"
	"github.com/noah-isme/essay-eval-api/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Student{},
		&models.Submission{},
		&models.SubmissionMedia{},
		&models.SubmissionLog{},
		&models.Revision{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var locks *service.SubmissionLock
	if cfg.RedisURL != "" {
		redisClient, err := database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		locks = service.NewSubmissionLock(redisClient, cfg.SubmissionLockTTL)
	}

	if err := os.MkdirAll(cfg.MediaDir, 0o755); err != nil {
		log.Fatalf("failed to create media directory: %v", err)
	}

	uploader, err := storage.New(storage.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	evaluator, err := ai.NewOpenAIEvaluator(ai.OpenAIConfig{
		APIKey:         cfg.OpenAIAPIKey,
		BaseURL:        cfg.OpenAIBaseURL,
		Model:          cfg.OpenAIModel,
		MaxTokens:      cfg.OpenAIMaxTokens,
		Temperature:    cfg.OpenAITemperature,
		MaxRetries:     cfg.OpenAIMaxRetries,
		RequestTimeout: cfg.OpenAIRequestTimeout,
		Logger:         logger,
	})
	if err != nil {
		log.Fatalf("failed to create essay evaluator: %v", err)
	}

	processor, err := media.NewProcessor(media.Config{
		Dir:              cfg.MediaDir,
		TransformTimeout: cfg.TransformTimeout,
		Logger:           logger,
	})
	if err != nil {
		log.Fatalf("failed to create media processor: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	studentRepo := repository.NewStudentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	revisionRepo := repository.NewRevisionRepository(db)
	logRepo := repository.NewSubmissionLogRepository(db)

	evaluationService := service.NewEvaluationService(submissionRepo, revisionRepo, evaluator, logger)
	submissionService := service.NewSubmissionService(
		studentRepo,
		submissionRepo,
		logRepo,
		evaluationService,
		processor,
		uploader,
		locks,
		validate,
		cfg.MediaDir,
		logger,
	)
	revisionService := service.NewRevisionService(submissionRepo, revisionRepo, evaluationService, logger)
	seedService := service.NewSeedService(studentRepo, cfg.SeedEnabled, cfg.SeedToken, logger)

	submissionHandler := handler.NewSubmissionHandler(submissionService, logger)
	revisionHandler := handler.NewRevisionHandler(revisionService, logger)
	seedHandler := handler.NewSeedHandler(seedService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		SubmissionHandler: submissionHandler,
		RevisionHandler:   revisionHandler,
		SeedHandler:       seedHandler,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
