package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"gestor/internal/auth"
	"gestor/internal/backend"
	"gestor/internal/cache"
	"gestor/internal/cli"
	"gestor/internal/config"
	apphttp "gestor/internal/http"
	"gestor/internal/log"
	"gestor/internal/scheduler"
	"gestor/internal/services"
	"gestor/internal/store"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	gw := store.NewGateway(result.Backend, result.Notifier, logger)
	caches := cache.NewManager()
	stores := store.NewStores(gw, cfg.CacheTTL, caches)
	ledgerSvc := services.NewLedgerService(stores, logger)
	authSvc := auth.NewService(stores.Credentials, auth.Master{
		Username: cfg.MasterUsername,
		Password: cfg.MasterPassword,
	}, logger)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		Ledger:             ledgerSvc,
		Auth:               authSvc,
		Tokens:             auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL),
		Backend:            gw,
		Logger:             logger,
		LoginRatePerMinute: cfg.LoginRatePerMinute,
	})

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	sched := scheduler.New(jobCtx, logger)
	if cfg.RefreshSchedule != "" {
		err := sched.Add("refresh", cfg.RefreshSchedule, func(ctx context.Context) error {
			ledgerSvc.Refresh(ctx)
			return nil
		})
		if err != nil {
			logger.Error("Failed to schedule cache refresh", log.FieldError, err)
			os.Exit(1)
		}
	}
	sched.Start()
	if cfg.CacheTTL > 0 {
		go caches.Run(jobCtx, cfg.CacheTTL)
	}

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cancelJobs()
		sched.Stop(shutdownCtx)
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting gestor server",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"cache_ttl", cfg.CacheTTL.String(),
		"refresh", cfg.RefreshSchedule)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
