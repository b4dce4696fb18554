// The pakreq maintenance daemon. Periodically reconciles open requests
// against the package index.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	migrations "github.com/aosc-dev/pakreq/db"
	"github.com/aosc-dev/pakreq/internal/config"
	"github.com/aosc-dev/pakreq/internal/daemon"
	"github.com/aosc-dev/pakreq/internal/db"
	"github.com/aosc-dev/pakreq/internal/repository/sqlite"
	"github.com/aosc-dev/pakreq/internal/service"
	"github.com/aosc-dev/pakreq/pkg/packages"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn, err := db.New(ctx, cfg.DatabasePath)
	if err != nil {
		logger.Error("failed to open db", "err", err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := db.Migrate(ctx, conn, migrations.Migrations); err != nil {
		logger.Error("failed to migrate db", "err", err)
		os.Exit(1)
	}

	index, err := packages.NewClient(cfg.PackageIndexURL, nil, logger)
	if err != nil {
		logger.Error("failed to create package index client", "err", err)
		os.Exit(1)
	}

	repo := sqlite.New(conn, logger)
	svc := service.New(repo, service.NewPasswordHasher(cfg.PasswordPepper), logger)
	d := daemon.New(svc, index, logger)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down daemon")
		cancel()
	}()

	if err := d.Run(ctx, cfg.DaemonInterval); err != nil {
		logger.Error("daemon failed", "err", err)
		os.Exit(1)
	}

	logger.Info("daemon exited")
}
