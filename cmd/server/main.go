package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nahb-server/internal/config"
	"nahb-server/internal/database"
	"nahb-server/internal/handler"
	"nahb-server/internal/logger"
	"nahb-server/internal/messaging"
	appMiddleware "nahb-server/internal/middleware"
	"nahb-server/internal/repository"
	"nahb-server/internal/service"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

func main() {
	// .env опционален: в контейнере конфигурация приходит из окружения
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: "json"})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)
	log.Info("Logger initialized", zap.String("logLevel", cfg.LogLevel))

	// --- Внешние подключения ---
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := database.NewPgPool(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pgPool.Close()
	log.Info("Connected to PostgreSQL")

	if err := database.ApplyMigrations(pgPool); err != nil {
		log.Fatal("Failed to apply migrations", zap.Error(err))
	}
	log.Info("Database migrations applied")

	mongoClient, err := database.NewMongoClient(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Error("Failed to disconnect MongoDB client", zap.Error(err))
		}
	}()
	log.Info("Connected to MongoDB")

	redisClient, err := database.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("Connected to Redis")

	// --- Публикация событий ---
	// Без RABBITMQ_URL платформа работает автономно, события только логируются
	publisher := messaging.NewNoopEventPublisher(log)
	if cfg.RabbitMQURL != "" {
		mqConn, err := connectRabbitMQ(cfg.RabbitMQURL, log)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer mqConn.Close()

		publisher, err = messaging.NewRabbitMQEventPublisher(mqConn, cfg.EventsQueueName, log)
		if err != nil {
			log.Fatal("Failed to create event publisher", zap.Error(err))
		}
		log.Info("Connected to RabbitMQ", zap.String("queue", cfg.EventsQueueName))
	}

	// --- Dependency Injection ---
	userRepo := repository.NewPgUserRepository(pgPool, log)
	storyRepo := repository.NewPgStoryRepository(pgPool, log)
	pageRepo := repository.NewPgPageRepository(pgPool, log)
	choiceRepo := repository.NewPgChoiceRepository(pgPool, log)
	sessionRepo := repository.NewPgSessionRepository(pgPool, log)
	contentRepo := repository.NewMongoContentRepository(mongoClient.Database(cfg.MongoDBName), log)
	tokenRepo := repository.NewRedisTokenRepository(redisClient, log)

	authService := service.NewAuthService(userRepo, tokenRepo, cfg, log)
	storyService := service.NewStoryService(storyRepo, pageRepo, choiceRepo, contentRepo, publisher, log)
	playService := service.NewPlayService(storyRepo, pageRepo, choiceRepo, sessionRepo, contentRepo, publisher, log)
	adminService := service.NewAdminService(userRepo, storyRepo, tokenRepo, publisher, log)

	h := handler.NewHandler(authService, storyService, playService, adminService, log)

	// --- HTTP Server (Echo) ---
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMiddleware.Recover())
	e.Use(appMiddleware.EchoZapLogger(log))

	corsConfig := echoMiddleware.DefaultCORSConfig
	if origins := cfg.GetAllowedOrigins(); len(origins) > 0 {
		corsConfig.AllowOrigins = origins
	}
	corsConfig.AllowHeaders = []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization}
	e.Use(echoMiddleware.CORSWithConfig(corsConfig))

	h.RegisterRoutes(e)

	go func() {
		log.Info("Starting HTTP server", zap.String("port", cfg.Port))
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server listen error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}
	log.Info("Server stopped")
}

// connectRabbitMQ подключается к RabbitMQ с повторными попытками:
// брокер может подниматься дольше приложения.
func connectRabbitMQ(rabbitURL string, log *zap.Logger) (*amqp.Connection, error) {
	const maxRetries = 10
	const retryDelay = 5 * time.Second

	log.Info("Attempting to connect to RabbitMQ",
		zap.String("url", config.MaskAMQPURL(rabbitURL)),
		zap.Int("max_retries", maxRetries),
	)

	var conn *amqp.Connection
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		conn, err = amqp.Dial(rabbitURL)
		if err == nil {
			log.Info("Connected to RabbitMQ", zap.Int("attempt", attempt))
			go func() {
				notifyClose := make(chan *amqp.Error)
				conn.NotifyClose(notifyClose)
				if closeErr := <-notifyClose; closeErr != nil {
					log.Error("RabbitMQ connection closed unexpectedly", zap.Error(closeErr))
				}
			}()
			return conn, nil
		}
		log.Warn("RabbitMQ connection failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("retry_delay", retryDelay),
			zap.Error(err))
		time.Sleep(retryDelay)
	}
	return nil, fmt.Errorf("не удалось подключиться к RabbitMQ за %d попыток: %w", maxRetries, err)
}
