package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appfulfillment "github.com/dropship/backend/internal/application/fulfillment"
	appintegration "github.com/dropship/backend/internal/application/integration"
	"github.com/dropship/backend/internal/domain/integration"
	"github.com/dropship/backend/internal/infrastructure/cache"
	"github.com/dropship/backend/internal/infrastructure/config"
	"github.com/dropship/backend/internal/infrastructure/logger"
	"github.com/dropship/backend/internal/infrastructure/persistence"
	"github.com/dropship/backend/internal/infrastructure/scheduler"
	"github.com/dropship/backend/internal/infrastructure/supplierapi"
	"github.com/dropship/backend/internal/interfaces/http/handler"
	"github.com/dropship/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting dropship backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize database connection
	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := db.AutoMigrate(); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database connected")

	// Initialize repositories
	supplierRepo := persistence.NewGormSupplierRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	orderItemRepo := persistence.NewGormOrderItemRepository(db.DB)
	supplierOrderRepo := persistence.NewGormSupplierOrderRepository(db.DB)
	tokenRepo := persistence.NewSupplierTokenRepository(supplierRepo, cfg.Supplier.MinAuthInterval)

	// Auth gate: Redis when reachable so all instances share one auth
	// window per supplier, in-memory otherwise
	var authGate integration.AuthGate
	redisGate, err := cache.NewRedisAuthGate(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn("Redis unavailable, using in-process auth gate", zap.Error(err))
		authGate = cache.NewInMemoryAuthGate()
	} else {
		defer func() {
			if err := redisGate.Close(); err != nil {
				log.Error("Error closing Redis connection", zap.Error(err))
			}
		}()
		authGate = redisGate
		log.Info("Redis auth gate connected", zap.String("addr", cfg.Redis.Addr()))
	}

	// Supplier gateway registry, one adapter instance per supplier
	gateways := supplierapi.NewRegistry(supplierapi.RegistryOptions{
		RequestTimeout:   cfg.Supplier.RequestTimeout,
		RequestSpacing:   cfg.Supplier.RequestSpacing,
		MinAuthInterval:  cfg.Supplier.MinAuthInterval,
		CategoryCacheTTL: cfg.Supplier.CategoryCacheTTL,
	}, tokenRepo, authGate, log)

	// Initialize application services
	costFactor := decimal.NewFromFloat(cfg.Fulfillment.DefaultCostFactor)
	fanoutService := appfulfillment.NewFanoutService(orderRepo, supplierOrderRepo, supplierRepo, costFactor, log)
	dispatchService := appfulfillment.NewDispatchService(orderRepo, orderItemRepo, supplierOrderRepo, supplierRepo, gateways, log)
	reconcileService := appfulfillment.NewReconcileService(orderRepo, orderItemRepo, supplierOrderRepo, supplierRepo, gateways, log)
	catalogService := appintegration.NewCatalogService(supplierRepo, gateways, log)

	// Reconciliation scheduler
	reconcileSched := scheduler.NewReconcileScheduler(reconcileService, log, scheduler.ReconcileSchedulerConfig{
		Enabled:       cfg.Scheduler.Enabled,
		SweepInterval: cfg.Scheduler.SweepInterval,
		SweepTimeout:  cfg.Scheduler.SweepTimeout,
		HistorySize:   cfg.Scheduler.HistorySize,
	})
	if err := reconcileSched.Start(context.Background()); err != nil {
		log.Fatal("Failed to start reconcile scheduler", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := reconcileSched.Stop(stopCtx); err != nil {
			log.Error("Error stopping reconcile scheduler", zap.Error(err))
		}
	}()

	// Initialize router with middleware
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	handler.SetupValidator()
	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}
	engine.Use(logger.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(handler.NewFulfillmentHandler(fanoutService, dispatchService, reconcileSched))
	r.Register(handler.NewSupplierHandler(catalogService))
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}
	log.Info("Server stopped")
}
