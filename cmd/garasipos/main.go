package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/garasipos/garasipos/internal/app"
	"github.com/garasipos/garasipos/internal/audit"
	"github.com/garasipos/garasipos/internal/catalog"
	"github.com/garasipos/garasipos/internal/catalog/packages"
	"github.com/garasipos/garasipos/internal/catalog/products"
	"github.com/garasipos/garasipos/internal/catalog/services"
	"github.com/garasipos/garasipos/internal/observability"
	"github.com/garasipos/garasipos/internal/platform/cache"
	"github.com/garasipos/garasipos/internal/platform/db"
	"github.com/garasipos/garasipos/internal/shared"
	"github.com/garasipos/garasipos/internal/stock"
	"github.com/garasipos/garasipos/internal/transaction"

	"github.com/go-playground/validator/v10"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, catalog cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	validate := validator.New()
	metrics := observability.NewMetrics()
	auditRecorder := shared.NewAuditRecorder(pool)
	catalogCache := catalog.NewCache(redisClient, cfg.CatalogCacheTTL)

	productRepo := products.NewRepository(pool)
	productSvc := products.NewService(productRepo, auditRecorder, catalogCache, logger)
	serviceRepo := services.NewRepository(pool)
	serviceUC := services.NewUseCase(serviceRepo, auditRecorder, logger)
	packageRepo := packages.NewRepository(pool)
	packageSvc := packages.NewService(packageRepo, auditRecorder, catalogCache, logger)
	resolver := catalog.NewResolver(productRepo, serviceRepo, packageRepo, catalogCache)
	catalogHandler := catalog.NewHandler(logger, productSvc, serviceUC, packageSvc, resolver, validate)

	stockRepo := stock.NewRepository(pool)
	stockSvc := stock.NewService(stockRepo, auditRecorder, catalogCache, metrics, logger)
	stockHandler := stock.NewHandler(logger, stockSvc, validate)

	txRepo := transaction.NewRepository(pool)
	txSvc := transaction.NewService(txRepo, resolver, auditRecorder, catalogCache, metrics, logger)
	txHandler := transaction.NewHandler(logger, txSvc, validate)

	auditRepo := audit.NewRepository(pool)
	auditHandler := audit.NewHandler(logger, auditRepo)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		CatalogHandler:     catalogHandler,
		StockHandler:       stockHandler,
		TransactionHandler: txHandler,
		AuditHandler:       auditHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}
