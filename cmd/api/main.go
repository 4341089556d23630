package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/weddingplanner-backend/api/middleware"
	"github.com/angelmondragon/weddingplanner-backend/api/routes"
	"github.com/angelmondragon/weddingplanner-backend/internal/actionlog"
	"github.com/angelmondragon/weddingplanner-backend/internal/actionqueue"
	"github.com/angelmondragon/weddingplanner-backend/internal/cart"
	"github.com/angelmondragon/weddingplanner-backend/internal/cartgateway"
	"github.com/angelmondragon/weddingplanner-backend/internal/replay"
	"github.com/angelmondragon/weddingplanner-backend/pkg/cartclient"
	"github.com/angelmondragon/weddingplanner-backend/pkg/config"
	"github.com/angelmondragon/weddingplanner-backend/pkg/db"
	"github.com/angelmondragon/weddingplanner-backend/pkg/logger"
	"github.com/angelmondragon/weddingplanner-backend/pkg/metrics"
	"github.com/angelmondragon/weddingplanner-backend/pkg/migrate"
	"github.com/angelmondragon/weddingplanner-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.NeedsRedis() || cfg.Redis.URL != "" || cfg.Redis.Address != "" {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		requireResource(ctx, logg, "redis", err)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	actionLog, err := actionlog.Open(cfg.ActionLog, redisClient, dbClient)
	requireResource(ctx, logg, "action log", err)

	queue, err := actionqueue.NewManager(actionLog, logg, metrics.NewQueueMetrics(reg))
	requireResource(ctx, logg, "action queue", err)

	var (
		backend     cartgateway.Backend
		cartService cart.Service
	)
	if cfg.Backend.IsRemote() {
		backend, err = cartclient.NewClient(cfg.Backend)
		requireResource(ctx, logg, "cart backend client", err)
	} else {
		cartService, err = cart.NewService(cart.NewRepository(dbClient.DB()), dbClient)
		requireResource(ctx, logg, "cart service", err)
		backend, err = cart.NewLocalBackend(cartService, cfg.JWT)
		requireResource(ctx, logg, "cart backend", err)
	}

	gateway, err := cartgateway.New(cartgateway.Params{
		Queue:      queue,
		Backend:    backend,
		Identity:   middleware.TokenFromContext,
		Redirector: cartgateway.LoginRedirect{LoginURL: cfg.Auth.LoginURL, ReturnPath: cfg.Auth.ReturnPath},
		Logger:     logg,
		Metrics:    metrics.NewGatewayMetrics(reg),
		Timeout:    cfg.Backend.Timeout,
	})
	requireResource(ctx, logg, "cart gateway", err)

	guard, err := replay.NewGuard(cfg.Replay, redisClient)
	requireResource(ctx, logg, "replay guard", err)

	coordinator, err := replay.NewCoordinator(replay.Params{
		Queue:        queue,
		Applier:      gateway,
		Guard:        guard,
		Logger:       logg,
		Metrics:      metrics.NewReplayMetrics(reg),
		RetainFailed: cfg.Replay.RetainFailed(),
		Timeout:      cfg.Replay.Timeout,
	})
	requireResource(ctx, logg, "replay coordinator", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"addr":         addr,
		"instance":     id,
		"action_log":   cfg.ActionLog.Driver,
		"replay_guard": cfg.Replay.Guard,
		"remote_cart":  cfg.Backend.IsRemote(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: routes.NewRouter(routes.Deps{
			Config:      cfg,
			Logger:      logg,
			DB:          dbClient,
			Redis:       redisClient,
			Gatherer:    reg,
			CartService: cartService,
			Gateway:     gateway,
			Coordinator: coordinator,
			Queue:       queue,
		}),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}
