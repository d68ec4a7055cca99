package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/marrakech-reviews/service-community/internal/access"
	"github.com/marrakech-reviews/service-community/internal/application"
	"github.com/marrakech-reviews/service-community/internal/config"
	communityEvents "github.com/marrakech-reviews/service-community/internal/events"
	"github.com/marrakech-reviews/service-community/internal/handler"
	"github.com/marrakech-reviews/service-community/internal/repository"
	"github.com/marrakech-reviews/service-community/internal/scheduler"
	"github.com/marrakech-reviews/service-community/pkg/auth"
	"github.com/marrakech-reviews/service-community/pkg/database"
	"github.com/marrakech-reviews/service-community/pkg/events"
	"github.com/marrakech-reviews/service-community/pkg/health"
	"github.com/marrakech-reviews/service-community/pkg/kafka"
	"github.com/marrakech-reviews/service-community/pkg/logger"
	"github.com/marrakech-reviews/service-community/pkg/middleware"
)

const serviceName = "service-community"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("starting "+serviceName,
		zap.String("port", cfg.Port),
		zap.String("env", cfg.AppEnv),
		zap.String("db_driver", cfg.DB.Driver),
	)

	db, err := database.Connect(cfg.DB, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := repository.AutoMigrate(db); err != nil {
		zapLogger.Fatal("failed to auto-migrate", zap.Error(err))
	}
	zapLogger.Info("database migration completed")

	// Token denylist
	var denylist auth.Denylist
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			zapLogger.Fatal("failed to connect to redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		denylist = auth.NewRedisDenylist(rdb)
	} else {
		zapLogger.Warn("REDIS_ADDR not set, revoked tokens are kept in memory")
		denylist = auth.NewMemoryDenylist()
	}

	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)

	// Event publishing
	var publisher application.EventPublisher
	if cfg.Kafka.Enabled() {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, zapLogger)
		defer producer.Close()
		publisher = communityEvents.NewKafkaPublisher(producer, events.TopicCommunityEvents)
	} else {
		zapLogger.Warn("KAFKA_BROKERS not set, events are only logged")
		publisher = communityEvents.NewLogPublisher(zapLogger)
	}

	// Repositories
	accountRepo := repository.NewAccountRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	couponRepo := repository.NewCouponRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	reviewRepo := repository.NewReviewRepository(db)

	// Services
	notificationService := application.NewNotificationService(notificationRepo, accountRepo, zapLogger)
	authService := application.NewAuthService(accountRepo, jwtManager, denylist, publisher, zapLogger)
	accountService := application.NewAccountService(accountRepo, publisher, zapLogger)
	walletService := application.NewWalletService(accountRepo, walletRepo, notificationService, publisher, zapLogger)
	couponLedger := application.NewCouponLedger(couponRepo, notificationService, publisher, zapLogger)
	couponService := application.NewCouponService(couponRepo, zapLogger)
	auditService := application.NewAuditService(auditRepo, zapLogger)
	adminService := application.NewAdminService(accountRepo, walletService, couponService, notificationService, auditService, zapLogger)
	reviewService := application.NewReviewService(reviewRepo, accountRepo, walletService, notificationService, publisher, zapLogger)

	authorizer := access.NewAuthorizer(jwtManager, accountRepo, denylist, zapLogger)
	recorder := access.NewRecorder(auditRepo, zapLogger, cfg.AuditQueueSize)

	// Content events reward authors
	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	defer consumerCancel()

	if cfg.Kafka.Enabled() {
		contentConsumer := communityEvents.NewContentEventConsumer(
			cfg.Kafka.Brokers,
			cfg.ConsumerGroup(),
			walletService,
			zapLogger,
		)
		defer contentConsumer.Close()

		go func() {
			zapLogger.Info("starting content event consumer")
			if err := contentConsumer.Start(consumerCtx); err != nil {
				if consumerCtx.Err() == nil {
					zapLogger.Error("content event consumer failed", zap.Error(err))
				}
			}
		}()
	}

	var cron *scheduler.Scheduler
	if cfg.SchedulerEnabled {
		jobs := scheduler.NewJobs(accountRepo, couponLedger, auditService, cfg.AuditRetentionDays, zapLogger)
		cron = scheduler.New(jobs, zapLogger)
		if err := cron.Start(); err != nil {
			zapLogger.Fatal("failed to start scheduler", zap.Error(err))
		}
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware(zapLogger))
	router.Use(middleware.LoggerMiddleware(zapLogger))
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins...))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	health.NewHandler(db, serviceName).RegisterRoutes(router)

	apiV1 := router.Group("/api/v1")
	handler.NewAuthHandler(authService).RegisterRoutes(apiV1, authorizer)
	handler.NewUserHandler(accountService).RegisterRoutes(apiV1, authorizer, recorder)
	handler.NewWalletHandler(walletService).RegisterRoutes(apiV1, authorizer, recorder)
	handler.NewCouponHandler(couponLedger, couponService).RegisterRoutes(apiV1, authorizer, recorder)
	handler.NewNotificationHandler(notificationService).RegisterRoutes(apiV1, authorizer, recorder)
	handler.NewReviewHandler(reviewService).RegisterRoutes(apiV1, authorizer, recorder)
	handler.NewAdminHandler(adminService, auditService, accountService).RegisterRoutes(apiV1, authorizer, recorder)

	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zapLogger.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down " + serviceName + "...")

	consumerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server forced to shutdown", zap.Error(err))
	}
	if cron != nil {
		cron.Stop(shutdownCtx)
	}
	// Drain pending audit entries after the last request has finished.
	if err := recorder.Close(shutdownCtx); err != nil {
		zapLogger.Error("audit queue not drained", zap.Error(err))
	}

	zapLogger.Info(serviceName + " stopped")
}
