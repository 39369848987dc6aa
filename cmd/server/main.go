package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/DriveShare-Marketplace/service-rental/internal/application"
	"github.com/DriveShare-Marketplace/service-rental/internal/config"
	bookingDomain "github.com/DriveShare-Marketplace/service-rental/internal/domain/booking"
	rentalEvents "github.com/DriveShare-Marketplace/service-rental/internal/events"
	"github.com/DriveShare-Marketplace/service-rental/internal/gateway/payments"
	"github.com/DriveShare-Marketplace/service-rental/internal/gateway/storage"
	"github.com/DriveShare-Marketplace/service-rental/internal/handler"
	"github.com/DriveShare-Marketplace/service-rental/internal/notify"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/auth"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/database"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/health"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/kafka"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/lock"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/logger"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/middleware"
	"github.com/DriveShare-Marketplace/service-rental/internal/repository"
	"github.com/DriveShare-Marketplace/service-rental/internal/workers"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, "service-rental")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting service-rental",
		zap.String("port", cfg.Port),
	)

	// Connect to database
	db, err := database.Connect(cfg.DBConfig, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(&repository.UserModel{}, &repository.CarModel{}, &repository.BookingModel{}); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(cfg.DBConfig.DatabaseURL(), "migrations", log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Connect to redis for the booking creation lease
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal("invalid redis URL", zap.Error(err))
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() { _ = redisClient.Close() }()

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(
		cfg.JWTConfig.Secret,
		15*time.Minute,
		7*24*time.Hour,
	)

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()

	// Initialize repositories
	userRepo := repository.NewGormUserRepository(db)
	carRepo := repository.NewGormCarRepository(db)
	bookingRepo := repository.NewGormBookingRepository(db)

	// Initialize domain collaborators
	availability := bookingDomain.NewAvailabilityChecker(bookingRepo)
	cancellationPolicy := bookingDomain.NewStandardCancellationPolicy()
	locker := lock.NewRedisLocker(redisClient)

	// Initialize gateways
	paymentProvider := payments.NewClient(cfg.Payment.BaseURL, cfg.Payment.APIKey, cfg.Payment.WebhookSecret, log)
	imageStore := storage.NewClient(cfg.Storage.BaseURL, cfg.Storage.APIKey, cfg.Storage.Bucket, log)
	notifier := notify.NewLogNotifier(log)

	// Initialize application services
	userService := application.NewUserService(userRepo, jwtManager, log)
	carService := application.NewCarService(carRepo, bookingRepo, userRepo, imageStore, cfg.Payment.Currency, log)
	bookingService := application.NewBookingService(
		bookingRepo,
		carRepo,
		userRepo,
		availability,
		cancellationPolicy,
		locker,
		kafkaProducer,
		log,
	)
	paymentService := application.NewPaymentService(
		bookingRepo,
		userRepo,
		paymentProvider,
		notifier,
		kafkaProducer,
		application.BankAccount{BankName: cfg.Payment.BankName, IBAN: cfg.Payment.BankIBAN},
		log,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start the notification consumer in a goroutine
	groupID := cfg.KafkaConfig.GroupPrefix + "rental-service"
	notificationConsumer := rentalEvents.NewNotificationConsumer(
		cfg.KafkaConfig.Brokers,
		groupID,
		userRepo,
		notifier,
		log,
	)
	defer func() { _ = notificationConsumer.Close() }()

	go func() {
		log.Info("starting notification consumer")
		if err := notificationConsumer.Start(ctx); err != nil && err != context.Canceled {
			log.Error("notification consumer error", zap.Error(err))
		}
	}()

	// Start the lifecycle worker in a goroutine
	lifecycleWorker := workers.NewLifecycleWorker(bookingService, time.Minute, log)
	go lifecycleWorker.Run(ctx)

	// Initialize HTTP handlers
	authHandler := handler.NewAuthHandler(userService)
	carHandler := handler.NewCarHandler(carService, bookingService)
	bookingHandler := handler.NewBookingHandler(bookingService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	adminHandler := handler.NewAdminHandler(userService, carService, bookingService, paymentService)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	healthHandler := health.NewHandler(db, "service-rental")
	healthHandler.RegisterRoutes(router)

	// Register routes
	authHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	carHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	bookingHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	paymentHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	adminHandler.RegisterRoutes(&router.RouterGroup, jwtManager)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down service-rental...")

	// Stop the consumer and worker
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info("service-rental stopped")
}
