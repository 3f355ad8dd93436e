package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"league-console/internal/config"
	"league-console/internal/database"
	"league-console/internal/event"
	"league-console/internal/handler"
	"league-console/internal/metrics"
	"league-console/internal/middleware"
	"league-console/internal/queue"
	"league-console/internal/repository"
	"league-console/internal/router"
	"league-console/internal/session"
	"league-console/internal/websocket"
)

const sessionCleanupInterval = 10 * time.Minute

type App struct {
	server       *http.Server
	cleanupFuncs []func()
}

func New(cfg *config.Config) (*App, error) {
	a := &App{}

	background, cancel := context.WithCancel(context.Background())
	a.cleanupFuncs = append(a.cleanupFuncs, cancel)

	persister, err := a.sessionPersister(background, cfg)
	if err != nil {
		a.cleanup()
		return nil, err
	}

	bus := event.NewBus()
	manager := session.NewManager(session.ManagerConfig{
		BackendURL:    cfg.BackendURL,
		HTTPClient:    &http.Client{Timeout: cfg.BackendTimeout},
		Persister:     persister,
		Bus:           bus,
		LogoutTimeout: cfg.LogoutTimeout,
	})

	hub := websocket.NewHub(bus)
	go hub.Run(background)

	if cfg.AMQPURL != "" {
		publisher, err := queue.Dial(cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			slog.Warn("session audit publishing disabled", "error", err)
		} else {
			go publisher.Run(background, bus)
			a.cleanupFuncs = append(a.cleanupFuncs, func() {
				if err := publisher.Close(); err != nil {
					slog.Warn("close audit publisher", "error", err)
				}
			})
			slog.Info("session audit publishing enabled", "queue", cfg.AMQPQueue)
		}
	}

	handlers := router.Handlers{
		Auth:    handler.NewAuthHandler(),
		Console: handler.NewConsoleHandler(),
		Public:  handler.NewPublicHandler(manager.Anonymous()),
		Stream:  handler.NewSessionStreamHandler(hub, cfg.CORSOrigins),
	}

	if cfg.MetricsEnabled {
		reg, m := metrics.NewRegistry()
		go m.Run(background, bus)
		handlers.Metrics = m
		handlers.MetricsHandler = metrics.Handler(reg)
	}

	cookies := session.CookieOptions{Secure: cfg.CookieSecure, TTL: cfg.CookieTTL}
	appRouter := router.New(cfg, middleware.NewSessionMiddleware(manager, cookies), handlers)

	a.server = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return a, nil
}

// sessionPersister builds the durable session backend named by the config.
func (a *App) sessionPersister(ctx context.Context, cfg *config.Config) (session.Persister, error) {
	switch cfg.SessionBackend {
	case config.SessionBackendPostgres:
		codec, err := session.NewCodec(cfg.SessionSecret)
		if err != nil {
			return nil, err
		}

		slog.Info("connecting to PostgreSQL")
		db, err := database.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.cleanupFuncs = append(a.cleanupFuncs, db.Close)

		if err := db.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure database schema: %w", err)
		}

		repo := repository.NewSessionRepository(db.Pool, codec, cfg.SessionTTL)
		go repo.StartCleanupTicker(ctx, sessionCleanupInterval)
		return repo, nil

	case config.SessionBackendRedis:
		codec, err := session.NewCodec(cfg.SessionSecret)
		if err != nil {
			return nil, err
		}

		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		a.cleanupFuncs = append(a.cleanupFuncs, func() { _ = client.Close() })

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		slog.Info("redis session store ready", "addr", cfg.RedisAddr)
		return repository.NewRedisSessionRepository(client, codec, cfg.SessionTTL), nil

	default:
		slog.Warn("sessions are kept in memory and end on restart")
		return session.NewMemoryPersister(), nil
	}
}

func (a *App) cleanup() {
	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i]()
	}
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	shutdownErr := a.server.Shutdown(ctx)
	a.cleanup()

	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	slog.Info("server stopped")
	return nil
}
