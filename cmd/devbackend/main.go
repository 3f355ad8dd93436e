// Command devbackend serves the in-memory league backend under /api for
// local console development.
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

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"league-console/internal/devbackend"
	"league-console/internal/logger"
	"league-console/internal/middleware"
)

func main() {
	_ = godotenv.Load()
	slog.SetDefault(slog.New(logger.New(os.Stdout, "pretty", slog.LevelDebug)))

	accessTTL, err := time.ParseDuration(envOr("DEV_ACCESS_TTL", "15m"))
	if err != nil {
		slog.Error("invalid DEV_ACCESS_TTL", "error", err)
		os.Exit(1)
	}

	backend, err := devbackend.New(devbackend.Config{
		JWTSecret: os.Getenv("DEV_JWT_SECRET"),
		AccessTTL: accessTTL,
	})
	if err != nil {
		slog.Error("failed to seed dev backend", "error", err)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Mount("/api", backend.Handler())

	server := &http.Server{
		Addr:              ":" + envOr("DEV_BACKEND_PORT", "8080"),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("dev backend starting", "addr", server.Addr, "demo_password", devbackend.DefaultPassword)
		if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("dev backend failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("dev backend shutdown failed", "error", err)
	}
}

func envOr(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
