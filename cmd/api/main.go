package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/satsplit/satsplit/internal/config"
	"github.com/satsplit/satsplit/internal/infra"
	"github.com/satsplit/satsplit/internal/lnurl"
	"github.com/satsplit/satsplit/internal/logging"
	"github.com/satsplit/satsplit/internal/notification"
	"github.com/satsplit/satsplit/internal/nwc"
	"github.com/satsplit/satsplit/internal/payments"
	"github.com/satsplit/satsplit/internal/reconcile"
	"github.com/satsplit/satsplit/internal/routes"
	"github.com/satsplit/satsplit/internal/secstore"
	"github.com/satsplit/satsplit/internal/server"
	"github.com/satsplit/satsplit/internal/session"
	"github.com/satsplit/satsplit/internal/subwallet"
)

const simulatedSeedMsat = 1_000_000_000

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()

	var cache *redis.Client
	if cfg.RedisURL != "" {
		cache, err = infra.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	}

	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		db, err = infra.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	}

	store, err := buildStore(ctx, cfg, cache, db)
	if err != nil {
		logger.Error("build secure store", "error", err)
		os.Exit(1)
	}

	// The simulated dialer stands in for a real NWC relay transport. It keeps
	// the full session surface exercisable without network access.
	dialer := nwc.NewSimulatedDialer(simulatedSeedMsat)

	ledger := subwallet.NewLedger(store, logger)
	manager := session.NewManager(store, dialer, ledger, logger)
	engine := reconcile.NewEngine(manager, ledger, dialer, logger, cfg.TxFetchLimit)
	notifier := notification.NewLoggerNotifier(logger)
	paySvc := payments.NewService(manager, ledger, lnurl.NewHTTPResolver(nil), notifier)

	// Best effort: a previously connected account resumes across restarts.
	if _, err := manager.Restore(ctx); err != nil {
		logger.Warn("restore session", "error", err)
	}

	srv := server.New(routes.Deps{
		Cfg:      cfg,
		Store:    store,
		Cache:    cache,
		DB:       db,
		Manager:  manager,
		Ledger:   ledger,
		Engine:   engine,
		Payments: paySvc,
		Logger:   logger,
	})

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}

func buildStore(ctx context.Context, cfg config.Config, cache *redis.Client, db *pgxpool.Pool) (secstore.Store, error) {
	var store secstore.Store
	switch cfg.StoreBackend {
	case "redis":
		if cache == nil {
			return nil, fmt.Errorf("redis backend selected but no redis connection")
		}
		store = secstore.NewRedis(cache)
	case "postgres":
		if db == nil {
			return nil, fmt.Errorf("postgres backend selected but no database connection")
		}
		pg := secstore.NewPostgres(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		store = pg
	default:
		store = secstore.NewMemory()
	}

	if cfg.StorePassphrase != "" {
		return secstore.NewEncrypted(store, cfg.StorePassphrase)
	}
	return store, nil
}
