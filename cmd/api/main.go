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
	"github.com/sangkips/quoteflow-api/internal/application/service"
	"github.com/sangkips/quoteflow-api/internal/config"
	domainRepo "github.com/sangkips/quoteflow-api/internal/domain/repository"
	"github.com/sangkips/quoteflow-api/internal/infrastructure/cache"
	"github.com/sangkips/quoteflow-api/internal/infrastructure/database"
	"github.com/sangkips/quoteflow-api/internal/infrastructure/repository"
	"github.com/sangkips/quoteflow-api/internal/presentation/http/handler"
	"github.com/sangkips/quoteflow-api/internal/presentation/http/middleware"
	"github.com/sangkips/quoteflow-api/internal/presentation/http/routes"
	"github.com/sangkips/quoteflow-api/internal/presentation/websocket"
	"github.com/sangkips/quoteflow-api/pkg/logger"
	"github.com/sangkips/quoteflow-api/pkg/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	zlog, err := logger.New(cfg.App.Env, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.NewPostgresDB(&cfg.Database, cfg.App.Debug, zlog)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		zlog.Fatal("failed to run migrations", zap.Error(err))
	}

	// Seed default data
	if cfg.App.Seed {
		if err := database.SeedDefaultData(db, zlog); err != nil {
			zlog.Warn("failed to seed default data", zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Currency cache, shared across instances when Redis is configured
	currencyCache := cache.NewMemory()
	if cfg.Redis.Enabled() {
		redisCache, err := cache.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.App.Name)
		if err != nil {
			zlog.Warn("redis unavailable, using in-process cache", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			currencyCache = redisCache
		}
	}

	// Initialize JWT manager
	jwtManager := utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.ExpiryHours)

	// Initialize repositories
	productRepo := repository.NewProductRepository(db)
	currencyRepo := repository.NewCurrencyRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	quotationRepo := repository.NewQuotationRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)

	// Initialize services
	catalogService := service.NewCatalogService(productRepo, currencyRepo, currencyCache, cfg.Redis.TTL, zlog.Named("catalog"))
	customerService := service.NewCustomerService(customerRepo)
	settingsService := service.NewSettingsService(settingsRepo, catalogService, cfg.Session.DefaultCurrency, cfg.Session.DefaultLimit)
	quotationService := service.NewQuotationService(quotationRepo, productRepo, customerRepo, invoiceRepo, cfg.Session.ValidityDays, zlog.Named("quotation"))

	hub := websocket.NewHub(zlog.Named("ws"))
	sessionService := service.NewSessionService(catalogService, quotationService, catalogService, hub, service.SessionOptions{
		DefaultCurrency: cfg.Session.DefaultCurrency,
		DefaultLimit:    cfg.Session.DefaultLimit,
		VATPercentage:   decimal.NewFromFloat(cfg.Session.VATPercentage),
		RemoteTimeout:   cfg.Session.RemoteTimeout,
		IdleTTL:         cfg.Session.IdleTTL,
	}, zlog.Named("session"))

	rateLimiter := middleware.NewUserRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: float64(cfg.RateLimit.Requests) / float64(max(cfg.RateLimit.Duration, 1)),
		BurstSize:         cfg.RateLimit.Requests,
		CleanupInterval:   5 * time.Minute,
		EntryTTL:          10 * time.Minute,
	})

	// Background workers stop with ctx
	go hub.Run(ctx)
	go rateLimiter.Run(ctx)
	go sessionService.RunJanitor(ctx, cfg.Session.JanitorInterval)
	go purgeIdempotencyKeys(ctx, idempotencyRepo, time.Hour, zlog)

	// Initialize handlers
	handlers := &routes.Handlers{
		Session:   handler.NewSessionHandler(sessionService, settingsService),
		Quotation: handler.NewQuotationHandler(quotationService),
		Catalog:   handler.NewCatalogHandler(catalogService),
		Customer:  handler.NewCustomerHandler(customerService),
		Settings:  handler.NewSettingsHandler(settingsService),
	}

	// Setup routes
	router := routes.Setup(handlers, &routes.Deps{
		JWTManager:      jwtManager,
		Cfg:             cfg,
		IdempotencyRepo: idempotencyRepo,
		RateLimiter:     rateLimiter,
		Hub:             hub,
		Logger:          zlog,
		ActiveSessions:  sessionService.Count,
	})

	// Get port from environment or use default
	port := cfg.App.Port
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("starting server", zap.String("service", cfg.App.Name), zap.String("port", port), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
}

// purgeIdempotencyKeys deletes expired idempotency keys every interval
func purgeIdempotencyKeys(ctx context.Context, repo domainRepo.IdempotencyRepository, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.DeleteExpired(ctx, time.Now())
			if err != nil {
				log.Warn("failed to purge idempotency keys", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Debug("purged idempotency keys", zap.Int64("count", n))
			}
		}
	}
}
