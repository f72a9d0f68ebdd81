package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/lib/pq" // PostgreSQL driver

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"claimgate/internal/audit"
	"claimgate/internal/batch"
	"claimgate/internal/bundle"
	"claimgate/internal/config"
	"claimgate/internal/constants"
	"claimgate/internal/identity"
	"claimgate/internal/logger"
	"claimgate/internal/polling"
	"claimgate/internal/submission"
	"claimgate/internal/transport"
	"claimgate/pkg/bootstrap"
	"claimgate/pkg/cel"
	"claimgate/pkg/health"
	"claimgate/pkg/metrics"
	"claimgate/pkg/middleware"
	"claimgate/pkg/migrations"
	"claimgate/pkg/ratelimit"
	"claimgate/pkg/tracing"
)

type App struct {
	config         *config.Config
	logger         logger.Logger
	base           *bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	db             *sql.DB
	redisClient    *redis.Client
	mongoClient    *mongo.Client
	server         *http.Server
	router         *gin.Engine
	tracerProvider *tracing.TracerProvider
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		config:      cfg,
		logger:      log,
		base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.initDatabases(ctx); err != nil {
		return fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := a.base.InitBroker(); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	if err := a.initRouter(ctx); err != nil {
		return fmt.Errorf("failed to initialize router: %w", err)
	}

	if err := a.initServer(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	tp, err := tracing.Init(a.config.Tracing, "exchange-service")
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	return nil
}

func (a *App) initDatabases(ctx context.Context) error {
	db, err := a.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return err
	}
	a.db = db

	if a.config.Database.RunMigrations {
		if err := bootstrap.RunPostgresMigrations(a.db, "db/migrations"); err != nil {
			return err
		}
		a.logger.Info("Database migrations applied")
	}

	redisClient, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		a.logger.Warnw("Redis connection failed, focus locks fall back to in-process", "error", err)
	} else if redisClient != nil {
		a.redisClient = redisClient
	}

	mongoClient, err := a.dbConnector.InitMongoDB(ctx)
	if err != nil {
		a.logger.Warnw("MongoDB connection failed, envelope audit disabled", "error", err)
	} else if mongoClient != nil {
		a.mongoClient = mongoClient
		if err := migrations.EnsureAuditIndexes(ctx, mongoClient.Database(a.mongoDBName())); err != nil {
			a.logger.Warnw("Failed to ensure audit indexes", "error", err)
		}
	}

	return nil
}

func (a *App) mongoDBName() string {
	if name := a.config.Database.MongoDB.Database; name != "" {
		return name
	}
	return constants.DefaultMongoDBName
}

func (a *App) initRouter(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if a.config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware("exchange-service"))
	}

	router.Use(middleware.RecoveryMiddleware(a.logger))
	router.Use(middleware.LoggerMiddleware(a.logger))
	router.Use(middleware.RequestIDMiddleware())

	if a.config.RateLimit.Enabled {
		rateLimitConfig := ratelimit.RateLimitConfig{
			RPS:             a.config.RateLimit.RPS,
			Burst:           a.config.RateLimit.Burst,
			CleanupInterval: time.Duration(a.config.RateLimit.CleanupInterval) * time.Second,
			MaxAge:          time.Duration(a.config.RateLimit.MaxAge) * time.Second,
		}
		router.Use(ratelimit.RateLimitMiddleware(rateLimitConfig))
		metrics.RegisterRateLimitMetrics()
		a.logger.Infow("Rate limiting enabled", "rps", rateLimitConfig.RPS, "burst", rateLimitConfig.Burst)
	}

	classifier, err := cel.NewClassifier(
		a.config.Dispositions.Queued,
		a.config.Dispositions.Approved,
		a.config.Dispositions.Denied,
	)
	if err != nil {
		return fmt.Errorf("failed to compile disposition rules: %w", err)
	}

	sender := identity.NewStaticResolver(a.config.Exchange)
	builder := bundle.NewBuilder(sender.Sender())
	validator := bundle.NewValidator(classifier)
	client := transport.NewHTTPClient(a.config.Exchange, a.config.CircuitBreaker, a.logger)
	notifier := submission.NewLifecycleNotifier(a.base.Producer, a.config.Broker.Kafka.LifecycleTopic, a.logger)

	var auditStore audit.Store = audit.NopStore{}
	if a.mongoClient != nil {
		auditStore = audit.NewStore(a.mongoClient.Database(a.mongoDBName()))
	}

	var cache submission.EligibilityCache = submission.NopEligibilityCache{}
	var locker polling.FocusLocker = polling.NewLocalFocusLocker()
	if a.redisClient != nil {
		if a.config.Eligibility.CacheEnabled {
			cache = submission.NewEligibilityCache(a.redisClient, a.config.Eligibility.CacheTTL)
		}
		locker = polling.NewFocusLocker(a.redisClient, a.config.Polling.FocusLockTTL)
	}

	submissionRepo := submission.NewRepository(a.db)
	interactionRepo := polling.NewRepository(a.db)
	batchRepo := batch.NewRepository(a.db)

	submissionService := submission.NewService(submission.Options{
		Repo:         submissionRepo,
		Client:       client,
		Builder:      builder,
		Validator:    validator,
		Resolver:     sender,
		Interactions: interactionRepo,
		Audit:        auditStore,
		Notifier:     notifier,
		Cache:        cache,
		SweepAge:     a.config.Polling.PendingSweepAge,
		Logger:       a.logger,
	})
	batchService := batch.NewService(batch.Options{
		Repo:           batchRepo,
		Submissions:    submissionRepo,
		Client:         client,
		Builder:        builder,
		Validator:      validator,
		Resolver:       sender,
		Interactions:   interactionRepo,
		Audit:          auditStore,
		Notifier:       notifier,
		RequestTimeout: a.config.Exchange.RequestTimeout,
		Logger:         a.logger,
	})

	pollingService := polling.NewService(polling.Options{
		Repo:          interactionRepo,
		Client:        client,
		Builder:       builder,
		Validator:     validator,
		Resolver:      sender,
		Submissions:   submissionService,
		Batches:       batchService,
		Locker:        locker,
		ReceiverID:    a.config.Exchange.ReceiverID,
		MaxConcurrent: a.config.Polling.MaxConcurrent,
		Logger:        a.logger,
	})

	submission.NewHandler(submissionService, a.logger).RegisterRoutes(router)
	polling.NewHandler(pollingService, a.logger).RegisterRoutes(router)
	batch.NewHandler(batchService, pollingService, a.logger).RegisterRoutes(router)

	metrics.RegisterEngineMetrics()
	if a.config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	// Submissions stranded in pending by a crash between send and outcome
	// are flagged for the poll engine before traffic is accepted.
	recovered, err := submissionService.RecoverStuckPending(ctx)
	if err != nil {
		a.logger.Warnw("Pending recovery sweep failed", "error", err)
	} else if recovered > 0 {
		a.logger.Infow("Recovered stuck pending submissions", "count", recovered)
	}

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewPostgreSQLChecker(a.db))
	if a.redisClient != nil {
		healthRegistry.Register(health.NonCritical(health.NewRedisChecker(a.redisClient)))
	}
	if a.mongoClient != nil {
		healthRegistry.Register(health.NonCritical(health.NewMongoDBChecker(a.mongoClient)))
	}

	router.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	a.router = router
	return nil
}

func (a *App) initServer() error {
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  a.config.Server.ReadTimeoutSeconds,
		WriteTimeout: a.config.Server.WriteTimeoutSeconds,
	}
	return nil
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		a.logger.InfowCtx(ctx, "Server listening", "port", a.config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return a.Shutdown(ctx)
	case err := <-errChan:
		return err
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.InfowCtx(ctx, "Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
		}
	}

	errs = append(errs, a.base.ShutdownBroker()...)

	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
		}
	}

	dbErrs := a.dbConnector.ShutdownDatabases(ctx, a.redisClient, a.db, a.mongoClient)
	errs = append(errs, dbErrs...)

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	a.logger.InfowCtx(ctx, "Server exited successfully")
	return nil
}
