// The pakreq web front-end. Serves the HTML and JSON views plus the
// session-authenticated account pages.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aosc-dev/pakreq/api"
	migrations "github.com/aosc-dev/pakreq/db"
	"github.com/aosc-dev/pakreq/internal/config"
	"github.com/aosc-dev/pakreq/internal/db"
	"github.com/aosc-dev/pakreq/internal/repository/sqlite"
	"github.com/aosc-dev/pakreq/internal/service"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	api.SetLogger(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()

	conn, err := db.New(ctx, cfg.DatabasePath)
	if err != nil {
		logger.Error("failed to open db", "err", err)
		os.Exit(1)
	}

	if err := db.Migrate(ctx, conn, migrations.Migrations); err != nil {
		logger.Error("failed to migrate db", "err", err)
		os.Exit(1)
	}

	repo := sqlite.New(conn, logger)
	svc := service.New(repo, service.NewPasswordHasher(cfg.PasswordPepper), logger)

	handler, err := api.SetupRoutes(cfg, svc)
	if err != nil {
		logger.Error("failed to set up routes", "err", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: cfg.APITimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shut down", "err", err)
	}

	if err := conn.Close(); err != nil {
		logger.Error("error closing db", "err", err)
	}

	logger.Info("server exited")
}
