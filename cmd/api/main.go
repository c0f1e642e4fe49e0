package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/bilim-edu/grading-api/internal/config"
	"github.com/bilim-edu/grading-api/internal/database"
	"github.com/bilim-edu/grading-api/internal/handler"
	"github.com/bilim-edu/grading-api/internal/middleware"
	"github.com/bilim-edu/grading-api/internal/models"
	"github.com/bilim-edu/grading-api/internal/repository"
	"github.com/bilim-edu/grading-api/internal/router"
	"github.com/bilim-edu/grading-api/internal/service"
	"github.com/bilim-edu/grading-api/pkg/ai"
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

	if err := db.AutoMigrate(&models.Student{}, &models.Task{}, &models.Submission{}, &models.ActivityLog{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL)
	if err != nil {
		logger.Warn().Err(err).Msg("nats unavailable, grading events disabled")
		natsConn = nil
	} else {
		defer natsConn.Close()
	}

	grader, err := buildGrader(cfg, logger)
	if err != nil {
		log.Fatalf("failed to configure grading model: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	submissionRepo := repository.NewSubmissionRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activityService := service.NewActivityService(activityRepo, logger)
	events := service.NewGradingEventPublisher(natsConn, cfg.EventsSubjectBase, logger)
	autogradeService := service.NewAutogradeService(submissionRepo, grader, events, activityService, redisClient, service.AutogradeConfig{
		BonusThreshold:  cfg.BonusThreshold,
		BonusPoints:     cfg.BonusPoints,
		ScoreCap:        cfg.ScoreCap,
		BatchSize:       cfg.BatchSize,
		PromptCharLimit: cfg.PromptCharLimit,
		StatusCacheTTL:  cfg.StatusCacheTTL,
	}, logger)
	reviewService := service.NewReviewService(submissionRepo, validate, activityService, events, cfg.ReviewPageSize, logger)

	autogradeHandler := handler.NewAutogradeHandler(autogradeService, validate, logger)
	reviewHandler := handler.NewReviewHandler(reviewService, logger)
	activityHandler := handler.NewActivityHandler(activityService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AutogradeHandler: autogradeHandler,
		ReviewHandler:    reviewHandler,
		ActivityHandler:  activityHandler,
		JWTMiddleware:    middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

// buildGrader fails fast when the selected provider has no credential; there
// is no placeholder client to fall back to.
func buildGrader(cfg config.Config, logger zerolog.Logger) (ai.Grader, error) {
	switch cfg.AIProvider {
	case "", "openai":
		return ai.NewOpenAIGrader(ai.OpenAIConfig{
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.OpenAIModel,
			Temperature: cfg.ModelTemperature,
			TopP:        cfg.ModelTopP,
			MaxTokens:   cfg.ModelMaxTokens,
			Logger:      logger,
		})
	case "anthropic":
		return ai.NewAnthropicGrader(ai.AnthropicConfig{APIKey: cfg.AnthropicAPIKey})
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.AIProvider)
	}
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
