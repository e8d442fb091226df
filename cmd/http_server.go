package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/chatmate/api"
	"github.com/frahmantamala/chatmate/internal"
	"github.com/frahmantamala/chatmate/internal/assistant"
	"github.com/frahmantamala/chatmate/internal/auth"
	"github.com/frahmantamala/chatmate/internal/core/clock"
	"github.com/frahmantamala/chatmate/internal/core/events"
	"github.com/frahmantamala/chatmate/internal/core/repository"
	"github.com/frahmantamala/chatmate/internal/metrics"
	"github.com/frahmantamala/chatmate/internal/notifier"
	"github.com/frahmantamala/chatmate/internal/payment"
	"github.com/frahmantamala/chatmate/internal/permission"
	"github.com/frahmantamala/chatmate/internal/transport"
	"github.com/frahmantamala/chatmate/internal/transport/middleware"
	"github.com/frahmantamala/chatmate/internal/transport/rest"
	"github.com/frahmantamala/chatmate/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config     *internal.Config
	Store      repository.Store
	Router     *chi.Mux
	Bus        *events.EventBus
	Metrics    *metrics.Metrics
	Dispatcher *notifier.Dispatcher
	Redis      *redis.Client
	Logger     *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	if err := setupRoutes(deps); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up routes: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr, "storage", deps.Config.Storage.Driver)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("Server failed to start", "error", err)
			deps.close()
			os.Exit(1)
		}
	}

	deps.close()
	deps.Logger.Info("Server stopped")
}

func (d *Dependencies) close() {
	if d.Dispatcher != nil {
		d.Dispatcher.Shutdown()
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error("Redis close error", "error", err)
		}
	}
	if err := d.Store.Close(); err != nil {
		d.Logger.Error("Store close error", "error", err)
	}
}

func setupRoutes(deps *Dependencies) error {
	cfg := deps.Config
	clk := clock.System{}
	base := transport.NewBaseHandler(deps.Logger)

	tokenGen := auth.NewJWTTokenGenerator(
		cfg.Security.AccessTokenSecret,
		cfg.Security.RefreshTokenSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(tokenGen, clk, cfg.Security.LoginWindow, deps.Logger)
	assistantService := assistant.NewService(deps.Store, deps.Bus, deps.Logger)
	permissionService := permission.NewService(deps.Store, clk, deps.Bus, deps.Logger)
	paymentService := payment.NewService(deps.Store, clk, deps.Bus, deps.Logger)

	components := map[string]rest.Pinger{"storage": deps.Store}
	if deps.Redis != nil {
		components["redis"] = redisPinger{deps.Redis}
	}

	routes := rest.Routes{
		Auth:           auth.NewHandler(base, authService),
		Assistants:     assistant.NewHandler(base, assistantService),
		Permissions:    permission.NewHandler(base, permissionService),
		Payments:       payment.NewHandler(base, paymentService),
		Health:         rest.NewHealthHandler(components),
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}

	if cfg.Server.ValidateRequests {
		doc, err := api.Load()
		if err != nil {
			return fmt.Errorf("failed to load openapi document: %w", err)
		}
		validator, err := middleware.NewRequestValidator(doc, deps.Logger)
		if err != nil {
			return fmt.Errorf("failed to build request validator: %w", err)
		}
		routes.Validator = validator
	}

	if deps.Metrics != nil {
		routes.Instrument = deps.Metrics.InstrumentHandler
		routes.Metrics = deps.Metrics.Handler()
		routes.MetricsPath = cfg.Observability.Metrics.Path
	}

	rest.RegisterAllRoutes(deps.Router, routes, deps.Logger)
	return nil
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()

	store, err := openStore(config, lg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	deps := &Dependencies{
		Config: config,
		Store:  store,
		Router: chi.NewRouter(),
		Bus:    events.NewEventBus(lg),
		Logger: lg,
	}

	if config.Observability.Metrics.Enabled {
		deps.Metrics = metrics.New()
		deps.Metrics.Register(deps.Bus)
	}

	// With redis enabled, webhook delivery moves to `worker notifications`.
	if redisCfg := config.Notifications.Redis; redisCfg.Enabled {
		deps.Redis = newRedisClient(redisCfg)
		notifier.NewRedisPublisher(deps.Redis, redisCfg.Channel, lg).Register(deps.Bus)
	} else if len(config.Notifications.Webhooks.URLs) > 0 {
		deps.Dispatcher = newDispatcher(config.Notifications.Webhooks, deps.Metrics, lg)
		deps.Dispatcher.Register(deps.Bus)
	}

	return deps, nil
}

func newRedisClient(cfg internal.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func newDispatcher(cfg internal.WebhookConfig, m *metrics.Metrics, lg *slog.Logger) *notifier.Dispatcher {
	d := notifier.NewDispatcher(notifier.Config{
		URLs:           cfg.URLs,
		SigningSecret:  cfg.SigningSecret,
		Timeout:        cfg.Timeout,
		MaxWorkers:     cfg.MaxWorkers,
		JobQueueSize:   cfg.JobQueueSize,
		WorkerPoolSize: cfg.WorkerPoolSize,
		MaxAttempts:    cfg.MaxAttempts,
	}, lg)
	if m != nil {
		d.OnDelivery(m.RecordDelivery)
	}
	return d
}
