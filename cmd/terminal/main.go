package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kimanidev/dukapos-backend/api/controllers"
	"github.com/kimanidev/dukapos-backend/api/routes"
	"github.com/kimanidev/dukapos-backend/internal/catalog"
	"github.com/kimanidev/dukapos-backend/internal/ledger"
	"github.com/kimanidev/dukapos-backend/internal/localstore"
	"github.com/kimanidev/dukapos-backend/internal/netwatch"
	"github.com/kimanidev/dukapos-backend/internal/sales"
	"github.com/kimanidev/dukapos-backend/internal/syncengine"
	"github.com/kimanidev/dukapos-backend/pkg/config"
	"github.com/kimanidev/dukapos-backend/pkg/db"
	"github.com/kimanidev/dukapos-backend/pkg/enums"
	"github.com/kimanidev/dukapos-backend/pkg/logger"
	"github.com/kimanidev/dukapos-backend/pkg/metrics"
	"github.com/kimanidev/dukapos-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "terminal"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "terminal",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	localClient, err := db.OpenLocal(ctx, cfg.TerminalDB, logg)
	if err != nil {
		logg.Error(ctx, "failed to open terminal database", err)
		os.Exit(1)
	}
	defer func() {
		if err := localClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing terminal database", err)
		}
	}()

	store, err := localstore.New(localClient.DB(),
		localstore.WithFreshnessWindow(cfg.Cache.FreshnessWindow))
	if err != nil {
		logg.Error(ctx, "failed to bootstrap local store", err)
		os.Exit(1)
	}

	// The ledger may be unreachable at boot; the terminal still starts and
	// queues locally until the monitor flips online.
	ledgerClient, err := db.New(ctx, cfg.LedgerDB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap ledger database", err)
		os.Exit(1)
	}
	defer func() {
		if err := ledgerClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing ledger database", err)
		}
	}()

	ledgerService, err := ledger.NewService(ledger.ServiceParams{
		Repository: ledger.NewRepository(ledgerClient.DB()),
		Pinger:     ledgerClient,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create ledger service", err)
		os.Exit(1)
	}

	monitor, err := netwatch.NewMonitor(netwatch.MonitorParams{
		Config: cfg.Network,
		Logger: logg,
		Pinger: ledgerClient,
	})
	if err != nil {
		logg.Error(ctx, "failed to create network monitor", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	syncMetrics := metrics.NewSyncMetrics(registry)

	var idemStore redis.IdempotencyStore
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		idemStore = redisClient
	} else {
		logg.Warn(ctx, "redis not configured, sync effect guard disabled")
	}

	engine, err := syncengine.NewEngine(syncengine.EngineParams{
		Store:           store,
		Ledger:          ledgerService,
		Logger:          logg,
		Metrics:         syncMetrics,
		Idempotency:     idemStore,
		TerminalID:      cfg.App.TerminalID,
		RetentionWindow: cfg.Sync.RetentionWindow,
		IdempotencyTTL:  cfg.Sync.IdempotencyTTL,
	})
	if err != nil {
		logg.Error(ctx, "failed to create sync engine", err)
		os.Exit(1)
	}
	engine.RegisterHandler(enums.SyncOperationUpdateProduct, syncengine.NewStockAdjustmentHandler(ledgerService))

	salesService, err := sales.NewService(sales.ServiceParams{
		Ledger:  ledgerService,
		Store:   store,
		Network: monitor,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create sales service", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalog.ServiceParams{
		Config:  cfg.Cache,
		Ledger:  ledgerService,
		Store:   store,
		Network: monitor,
		Syncer:  engine,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create catalog service", err)
		os.Exit(1)
	}

	unsubscribe := catalogService.SetupAutoSync(ctx)
	defer unsubscribe()

	go func() {
		if err := monitor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "network monitor stopped", err)
		}
	}()
	go func() {
		if err := catalogService.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "cache refresh loop stopped", err)
		}
	}()

	handler := routes.New(logg, routes.Controllers{
		Health:   controllers.NewHealthController(monitor),
		Sales:    controllers.NewSaleController(salesService, logg),
		Products: controllers.NewProductController(catalogService, store, ledgerService, monitor, logg),
		Sync:     controllers.NewSyncController(engine, logg),
	}, registry)

	addr := ":" + cfg.App.Port
	startCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"terminal": cfg.App.TerminalID,
	})
	logg.Info(startCtx, "starting terminal server")

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(startCtx, "terminal server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(context.Background(), "terminal server stopped")
}
