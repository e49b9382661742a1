package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/loan-engine/internal/cache"
	"github.com/segyhp/loan-engine/internal/config"
	"github.com/segyhp/loan-engine/internal/handler"
	"github.com/segyhp/loan-engine/internal/logging"
	"github.com/segyhp/loan-engine/internal/ratelimit"
	"github.com/segyhp/loan-engine/internal/repository"
	"github.com/segyhp/loan-engine/internal/service"
	"github.com/segyhp/loan-engine/internal/tracing"
	"github.com/segyhp/loan-engine/pkg/response"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(cfg)

	shutdownTracing, err := tracing.Init(context.Background(), cfg.Tracing.ServiceName, cfg.Tracing.Endpoint, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize tracing: %v", err)
	}

	db, err := initDB(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Redis is optional; without it the schedule cache is skipped and rate limits are per process
	var (
		redisClient   *redis.Client
		scheduleCache cache.ScheduleCache = cache.NoopScheduleCache{}
		limiter       ratelimit.Limiter   = ratelimit.NewMemoryLimiter(cfg.Server.RequestsPerMinute, time.Minute)
	)
	if cfg.RedisEnabled() {
		redisClient = initRedis(cfg)
		defer redisClient.Close()

		scheduleCache = cache.NewRedisScheduleCache(redisClient, cfg.GetScheduleCacheTTL())
		limiter = ratelimit.NewRedisLimiter(redisClient, cfg.Server.RequestsPerMinute, time.Minute)
	} else {
		logger.Warn("REDIS_ADDR not set, schedule cache disabled and rate limits reset on restart")
	}

	loanEntryRepo := repository.NewLoanEntryRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	referenceRepo := repository.NewReferenceRepository(db)

	loanEntryService := service.NewLoanEntryService(loanEntryRepo, paymentRepo, referenceRepo, scheduleCache, cfg, logger)
	loanEntryHandler := handler.NewLoanEntryHandler(loanEntryService, logger)
	healthHandler := handler.NewHealthHandler(db, redisClient, cfg.GetHealthTimeout())

	router := setupRoutes(loanEntryHandler, healthHandler, limiter, logger)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.GetReadTimeout(),
		WriteTimeout: cfg.GetWriteTimeout(),
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"addr":   server.Addr,
			"driver": cfg.Database.Driver,
			"env":    cfg.Server.Env,
		}).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}
	if err := shutdownTracing(ctx); err != nil {
		logger.WithError(err).Warn("Failed to flush traces")
	}

	logger.Info("Server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := repository.Open(repository.Options{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.GetConnMaxLifetime(),
	})
	if err != nil {
		return nil, err
	}

	if err := repository.Migrate(context.Background(), db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func setupRoutes(loanEntryHandler *handler.LoanEntryHandler, healthHandler *handler.HealthHandler, limiter ratelimit.Limiter, logger *logrus.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.CORSMiddleware, response.LoggingMiddleware(logger), handler.MetricsMiddleware)

	// preflight requests are answered by the CORS middleware
	router.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	healthHandler.Register(router)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := router.NewRoute().Subrouter()
	api.Use(handler.RateLimitMiddleware(limiter, logger))
	loanEntryHandler.Register(api)

	return router
}
