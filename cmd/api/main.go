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
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/handout-api/internal/config"
	"github.com/noah-isme/handout-api/internal/database"
	"github.com/noah-isme/handout-api/internal/handler"
	"github.com/noah-isme/handout-api/internal/middleware"
	"github.com/noah-isme/handout-api/internal/observability"
	"github.com/noah-isme/handout-api/internal/repository"
	"github.com/noah-isme/handout-api/internal/router"
	"github.com/noah-isme/handout-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	probes := map[string]handler.HealthProbe{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		probes["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	} else {
		logger.Warn().Msg("redis url not configured, student stats cache disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	observability.RegisterMetrics()

	validate := validator.New(validator.WithRequiredStructEnabled())

	courseRepo := repository.NewCourseRepository(db)
	tagRepo := repository.NewTagRepository(db)
	exerciseRepo := repository.NewExerciseRepository(db)
	telemetryRepo := repository.NewTelemetryRepository(db)
	userRepo := repository.NewUserRepository(db)

	liveFeed := service.NewLiveFeedService(redisClient, cfg.RealtimeChannel, natsConn, logger)
	publishers := service.TelemetryPublishers{
		liveFeed,
		service.NewStatsCacheInvalidator(redisClient, cfg.DashboardCacheTTL, logger),
	}
	telemetryService := service.NewTelemetryService(courseRepo, exerciseRepo, telemetryRepo, publishers, validate, logger)
	exerciseService := service.NewExerciseService(courseRepo, exerciseRepo, tagRepo, validate, logger)
	courseService := service.NewCourseService(courseRepo, telemetryRepo, logger)
	statsService := service.NewStudentStatsService(service.StudentStatsRepositories{
		Courses:   courseRepo,
		Tags:      tagRepo,
		Exercises: exerciseRepo,
		Telemetry: telemetryRepo,
		Users:     userRepo,
	}, redisClient, cfg.DashboardCacheTTL, logger)
	progressService := service.NewProgressService(courseRepo, exerciseRepo, telemetryRepo, userRepo, logger)

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()
	liveFeed.Start(rootCtx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSAllowOrigins})
	router.Register(app, cfg, router.Dependencies{
		TelemetryHandler: handler.NewTelemetryHandler(telemetryService, middleware.RateLimit("telemetry", cfg.TelemetryRateLimit, cfg.TelemetryRateWindow), logger),
		ExerciseHandler:  handler.NewExerciseHandler(exerciseService, logger),
		CourseHandler:    handler.NewCourseHandler(courseService, logger),
		DashboardHandler: handler.NewDashboardHandler(statsService, progressService, logger),
		LiveFeedHandler:  handler.NewLiveFeedHandler(liveFeed, 30*time.Second, logger),
		HealthProbes:     probes,
		JWTMiddleware:    middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	logger.Info().Str("address", cfg.HTTPAddress()).Str("driver", cfg.DatabaseDriver).Msg("handout api started")
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
