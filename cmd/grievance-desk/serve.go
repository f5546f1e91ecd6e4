package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/grievance-desk/internal/api/http"
	"github.com/spec-kit/grievance-desk/internal/api/http/handlers"
	"github.com/spec-kit/grievance-desk/internal/auth"
	"github.com/spec-kit/grievance-desk/internal/config"
	"github.com/spec-kit/grievance-desk/internal/events"
	"github.com/spec-kit/grievance-desk/internal/observability"
	"github.com/spec-kit/grievance-desk/internal/persistence"
	"github.com/spec-kit/grievance-desk/internal/realtime"
	"github.com/spec-kit/grievance-desk/internal/service"
	"github.com/spec-kit/grievance-desk/internal/worker"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger, err := observability.NewLogger(cfg)
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	migrate := cfg.Store.Backend == config.StoreBackendSQLite ||
		(cfg.Store.Backend == config.StoreBackendPostgres && cfg.Postgres.RunMigrations)
	b, err := openBackend(ctx, cfg, logger, migrate)
	if err != nil {
		return err
	}
	defer b.Close()

	var notifier realtime.Notifier = realtime.NoopNotifier{}
	if cfg.Realtime.Enabled {
		redis := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		notifier = realtime.NewRedisNotifier(redis.Client, cfg.Realtime.Channel, uuid.NewString(), logger)
		b.checks["redis"] = redis
	}

	dispatcher := events.NewInMemoryDispatcher()
	store := service.NewTicketStore(service.TicketStoreDependencies{
		TicketRepo: b.tickets,
		Dispatcher: dispatcher,
	})
	if err := store.Reload(ctx); err != nil {
		return err
	}
	logger.Info("ticket store loaded",
		zap.String("backend", string(cfg.Store.Backend)),
		zap.Int("tickets", len(store.List())))

	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, notifier, logger))
	realtimeDone := worker.StartRealtimeWorker(ctx, notifier, store, logger)

	authService := service.NewAuthService(cfg.Auth, cfg.App.Name, b.users)
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, httptransport.MiddlewareOptions{
		Timeout:      cfg.App.RequestTimeout(),
		AllowOrigins: cfg.App.CORSAllowOrigins,
	})
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, b.checks),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(store),
		Stats:          handlers.NewStatsHandler(store, metrics),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), b.users),

		LoginAttemptsPerMinute: cfg.Auth.LoginAttemptsPerMin,
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-listenErr:
		if err != nil {
			return err
		}
	}

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		logger.Warn("http shutdown", zap.Error(err))
	}
	cancel()
	<-realtimeDone
	return nil
}
