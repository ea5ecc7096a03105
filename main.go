package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/management-backend/consumers"
	"github.com/yashrajoria/management-backend/controllers"
	"github.com/yashrajoria/management-backend/database"
	"github.com/yashrajoria/management-backend/events"
	"github.com/yashrajoria/management-backend/middleware"
	aws_pkg "github.com/yashrajoria/management-backend/pkg/aws"
	"github.com/yashrajoria/management-backend/pkg/logger"
	"github.com/yashrajoria/management-backend/repository"
	"github.com/yashrajoria/management-backend/routes"
	"github.com/yashrajoria/management-backend/services"
	"go.uber.org/zap"
)

const serviceName = "management-backend"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := LoadConfig()
	if cfg.UseSecretsManager {
		if err := loadSecrets(ctx, cfg); err != nil {
			log.Printf("Secrets Manager unavailable, using environment: %v", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	awsCfg, awsErr := aws_pkg.LoadAWSConfig(ctx)

	var logSink io.Writer
	if cfg.CloudWatchEnabled && awsErr == nil {
		if w, err := aws_pkg.NewCloudWatchLogsWriter(ctx, awsCfg, cfg.CloudWatchLogGroup, serviceName); err != nil {
			log.Printf("CloudWatch logs disabled: %v", err)
		} else {
			logSink = w
		}
	}
	zapLogger, err := logger.New(cfg.Env, cfg.LogLevel, logSink)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync() //nolint:errcheck
	if awsErr != nil {
		zapLogger.Warn("AWS config unavailable, SNS, SQS, S3 and CloudWatch disabled", zap.Error(awsErr))
	}

	db, err := database.ConnectPostgres(cfg.Postgres(), zapLogger, database.Models()...)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db) //nolint:errcheck

	var (
		permCache   repository.PermissionCache
		idempotency repository.IdempotencyStore
	)
	if cfg.RedisURL != "" {
		rdb, err := database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			zapLogger.Warn("Redis unavailable, permission cache and idempotency keys disabled", zap.Error(err))
		} else {
			defer rdb.Close() //nolint:errcheck
			permCache = repository.NewRedisPermissionCache(rdb, cfg.PermissionCacheTTL)
			idempotency = repository.NewRedisIdempotencyStore(rdb, "idempotency:orders:")
		}
	}

	var metrics *aws_pkg.MetricsClient
	if awsErr == nil {
		metrics = aws_pkg.NewMetricsClient(awsCfg, cfg.CloudWatchNamespace, cfg.CloudWatchEnabled)
	}

	// Repositories
	userRepo := repository.NewGormUserRepository(db)
	rbacRepo := repository.NewGormRBACRepository(db)
	productRepo := repository.NewGormProductRepository(db)
	locationRepo := repository.NewGormLocationRepository(db)
	orderRepo := repository.NewGormOrderRepository(db)
	resetRepo := repository.NewGormPasswordResetRepository(db)
	stockStore := repository.NewGormStockStore(db)

	// Services
	tokens, err := services.NewTokenService(cfg.Tokens())
	if err != nil {
		zapLogger.Fatal("Failed to init token service", zap.Error(err))
	}
	var accountPublisher events.AccountPublisher
	if cfg.AuthEventsTopicArn != "" && awsErr == nil {
		accountPublisher = events.NewSNSAccountPublisher(aws_pkg.NewSNSClient(awsCfg), cfg.AuthEventsTopicArn, zapLogger)
	}
	authService := services.NewAuthService(userRepo, tokens, zapLogger).
		WithPasswordReset(resetRepo, accountPublisher, cfg.PasswordResetTTL)
	rbacService := services.NewRBACService(rbacRepo, userRepo, permCache, zapLogger)
	userService := services.NewUserService(userRepo, rbacRepo, permCache, zapLogger)
	catalogService := services.NewCatalogService(productRepo, locationRepo, zapLogger)

	stockEngine := services.NewStockEngine(stockStore, productRepo, locationRepo,
		stockPublisher(cfg, awsCfg, awsErr, metrics, zapLogger), zapLogger)

	var orderPublisher events.OrderPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := events.NewKafkaOrderPublisher(cfg.KafkaBrokers, cfg.OrderEventsTopic, zapLogger)
		defer kafkaPublisher.Close() //nolint:errcheck
		orderPublisher = kafkaPublisher
	}
	orderService := services.NewOrderService(orderRepo, stockEngine, idempotency, orderPublisher, zapLogger)

	var exporter controllers.MovementExporter
	if cfg.ExportBucket != "" && awsErr == nil {
		store := aws_pkg.NewS3Store(awsCfg, cfg.S3UsePathStyle)
		exporter = services.NewMovementExporter(stockEngine, store, cfg.ExportBucket, cfg.ExportPrefix, cfg.ExportLinkTTL, zapLogger)
	}

	if cfg.SeedRBAC {
		if err := rbacService.Seed(ctx); err != nil {
			zapLogger.Fatal("Failed to seed roles and permissions", zap.Error(err))
		}
	}

	var workers sync.WaitGroup
	if cfg.PaymentEventsQueueURL != "" && awsErr == nil {
		var counter consumers.Counter
		if metrics != nil {
			counter = metrics
		}
		consumer := consumers.NewPaymentConsumer(
			aws_pkg.NewSQSConsumer(awsCfg, cfg.PaymentEventsQueueURL, zapLogger),
			orderService, counter, zapLogger,
		)
		workers.Add(1)
		go func() {
			defer workers.Done()
			consumer.Start(ctx)
		}()
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(zapLogger),
		middleware.SecurityHeaders(),
		middleware.CORSMiddleware(cfg.AllowedOrigins),
		middleware.RateLimitMiddleware(middleware.NewRateLimiter(ctx, cfg.RateLimitPerMinute, cfg.RateLimitBurst, 3*time.Minute)),
		middleware.Timeout(cfg.RequestTimeout),
	)
	if metrics != nil && metrics.IsEnabled() {
		r.Use(middleware.HTTPMetrics(metrics))
	}

	routes.RegisterRoutes(r, routes.Handlers{
		Auth:      controllers.NewAuthController(authService),
		Users:     controllers.NewUserController(userService, rbacService),
		RBAC:      controllers.NewRBACController(rbacService),
		Catalog:   controllers.NewCatalogController(catalogService, zapLogger),
		Inventory: controllers.NewInventoryController(stockEngine, exporter, zapLogger),
		Orders:    controllers.NewOrderController(orderService),
	}, authService, rbacService, zapLogger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	zapLogger.Info("Management backend started", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
	<-ctx.Done()
	zapLogger.Info("Shutting down management backend...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	workers.Wait()
	zapLogger.Info("Server exited cleanly")
}

// stockPublisher sends stock events to SNS when a topic is configured and
// counts them in CloudWatch when metrics are on.
func stockPublisher(cfg *Config, awsCfg sdkaws.Config, awsErr error, metrics *aws_pkg.MetricsClient, logger *zap.Logger) events.StockPublisher {
	var publisher events.StockPublisher = events.Nop{}
	if awsErr != nil {
		return publisher
	}
	if cfg.StockEventsTopicArn != "" {
		publisher = events.NewSNSStockPublisher(aws_pkg.NewSNSClient(awsCfg), cfg.StockEventsTopicArn, logger)
	}
	if metrics != nil && metrics.IsEnabled() {
		publisher = events.NewMeteredStockPublisher(publisher, metrics, logger)
	}
	return publisher
}
