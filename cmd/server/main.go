package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/linemk/commerce-core/internal/app"
	"github.com/linemk/commerce-core/internal/app/handlers"
	"github.com/linemk/commerce-core/internal/config"
	security "github.com/linemk/commerce-core/internal/jwt-new"
	"github.com/linemk/commerce-core/internal/lib/logger"
	"github.com/linemk/commerce-core/internal/service"
	"github.com/linemk/commerce-core/internal/storage"
)

func main() {
	// config path comes from -config or CONFIG_PATH
	cfg := config.MustLoad()

	log := logger.SetupLogger(cfg.Env)
	log.Info("starting app", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApp(ctx, log, cfg)
	if err != nil {
		log.Error("failed to initialize app", logger.Err(err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer application.Close()

	tokens, err := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.TokenTTL)
	if err != nil {
		log.Error("invalid jwt configuration", logger.Err(err))
		os.Exit(1)
	}

	// repositories
	txr := storage.NewTransactor(application.DB, cfg.Database.QueryTimeout)
	accountRepo := storage.NewAccountRepository(application.DB)
	cartRepo := storage.NewCartRepository(application.DB)
	orderRepo := storage.NewOrderRepository(application.DB)
	catalogRepo := storage.NewCatalogRepository(application.DB)
	catalog := catalogRepo
	if application.Redis != nil {
		catalog = storage.NewCachedCatalog(log, catalogRepo, application.Redis, cfg.Redis.PriceTTL)
	}

	// services
	locks := service.NewAccountLocks()
	authService := service.NewAuthService(log, accountRepo, tokens)
	cartService := service.NewCartService(log, txr, cartRepo, catalog, locks)
	// checkout freezes prices, so it reads the catalog directly
	orderService := service.NewOrderService(log, txr, orderRepo, cartRepo, catalogRepo, locks)

	if cfg.Admin.Email != "" && cfg.Admin.Password != "" {
		if err := authService.EnsureAdmin(ctx, cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			log.Error("failed to bootstrap admin", logger.Err(err))
			os.Exit(1)
		}
	}

	health := []handlers.HealthCheck{{Name: "postgres", Ping: application.DB.PingContext}}
	if application.Redis != nil {
		health = append(health, handlers.HealthCheck{
			Name: "redis",
			Ping: func(ctx context.Context) error { return application.Redis.Ping(ctx).Err() },
		})
	}

	router := app.NewRouter(log, cfg.HTTPServer.Timeout, tokens, app.Services{
		Auth:   authService,
		Carts:  cartService,
		Orders: orderService,
		Health: health,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout + time.Second,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server error")
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		log.Info("shutting down server")

		// graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", logger.Err(err))
		return
	}
	log.Info("server gracefully stopped")
}
