// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-automation/internal/config"
	"storefront-automation/internal/domain/ports/adapter"
	execAdapters "storefront-automation/internal/infra/adapters/executor"
	payAdapters "storefront-automation/internal/infra/adapters/payment"
	pg "storefront-automation/internal/infra/db/postgres"
	"storefront-automation/internal/infra/logging"
	"storefront-automation/internal/infra/metrics"
	red "storefront-automation/internal/infra/redis"
	"storefront-automation/internal/infra/sched"
	"storefront-automation/internal/infra/web"
	"storefront-automation/internal/infra/worker"
	"storefront-automation/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)
	quotaCache := red.NewQuotaCache(redisClient, cfg.Redis.TTL, logger)

	// ---- Repositories ----
	accountRepo := pg.NewAccountRepo(pool)
	planRepo := pg.NewPlanRepoCacheDecorator(pg.NewPlanRepo(pool), redisClient)
	subRepo := pg.NewSubscriptionRepo(pool)
	storeRepo := pg.NewStoreRepo(pool)
	creditRepo := pg.NewCreditRepo(pool)
	payRepo := pg.NewPaymentRepo(pool)

	// ---- Use cases ----
	catalogUC := usecase.NewCatalogUseCase(planRepo, logger)
	quotaUC := usecase.NewQuotaUseCase(accountRepo, subRepo, storeRepo, creditRepo, catalogUC, quotaCache, logger)
	autoUC := usecase.NewAutomationUseCase(storeRepo, logger)
	storeUC := usecase.NewStoreUseCase(storeRepo, subRepo, creditRepo, quotaUC, logger, pool)

	// ---- Checkout gateway ----
	var gateway adapter.CheckoutGateway
	switch cfg.Checkout.Provider {
	case "paylink":
		gateway, err = payAdapters.NewPaylinkGateway(cfg.Checkout.APIKey, cfg.Checkout.CallbackURL, cfg.Checkout.BaseURL, cfg.Checkout.Sandbox)
		if err != nil {
			logger.Fatal().Err(err).Msg("paylink gateway init failed")
		}
	default:
		gateway = payAdapters.NewNoopGateway()
	}
	logger.Info().Str("provider", gateway.Name()).Msg("checkout gateway ready")

	checkoutUC := usecase.NewCheckoutUseCase(payRepo, subRepo, creditRepo, storeRepo,
		catalogUC, quotaUC, autoUC, gateway, cfg.Checkout.CallbackURL,
		cfg.Automation.DefaultIntervalHours, logger, pg.NewTxManager(pool))

	// ---- Automation pipeline ----
	pool2 := worker.NewPool(cfg.Automation.Workers, logger)
	pool2.Start(ctx)
	defer pool2.Stop()

	executor := execAdapters.NewNoopExecutor(logger)
	sweeper := sched.NewDueSweeper(cfg.Automation.SweepInterval, cfg.Automation.BatchSize,
		autoUC, executor, pool2, locker, logger)
	go func() { _ = sweeper.Run(ctx) }()

	reconciler := sched.NewCheckoutReconciler(5*time.Minute, 15*time.Minute, 50, checkoutUC, locker, logger)
	go func() { _ = reconciler.Run(ctx) }()

	// ---- HTTP server ----
	auth := web.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.SecureCookie, cfg.Auth.CookieDomain, cfg.Auth.SessionTTL)
	srv := web.NewServer(quotaUC, storeUC, autoUC, checkoutUC, catalogUC, auth, cfg.Auth.DashboardKey, logger)

	server := &http.Server{Addr: fmt.Sprintf(":%d", cfg.HTTP.Port), Handler: srv.Router()}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	_ = server.Shutdown(shutCtx)
	cancel()
}
