// db_init creates the schema and optionally seeds an admin account.
//
// Usage:
//
//	go run ./scripts/db_init -config pakreq.yaml [-admin name -password pw]
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	migrations "github.com/aosc-dev/pakreq/db"
	"github.com/aosc-dev/pakreq/internal/config"
	"github.com/aosc-dev/pakreq/internal/db"
	"github.com/aosc-dev/pakreq/internal/repository/sqlite"
	"github.com/aosc-dev/pakreq/internal/service"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to config YAML file")
		admin      = flag.String("admin", "", "Seed an admin user with this username")
		password   = flag.String("password", "", "Password for the seeded admin user")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

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
	defer conn.Close()

	if err := db.Migrate(ctx, conn, migrations.Migrations); err != nil {
		logger.Error("failed to migrate db", "err", err)
		os.Exit(1)
	}
	logger.Info("schema ready", "path", cfg.DatabasePath)

	if *admin == "" {
		return
	}

	repo := sqlite.New(conn, logger)
	svc := service.New(repo, service.NewPasswordHasher(cfg.PasswordPepper), logger)

	user, err := svc.CreateUser(ctx, *admin, *password, true)
	if err != nil {
		logger.Error("failed to seed admin user", "username", *admin, "err", err)
		os.Exit(1)
	}

	logger.Info("admin user created", "id", user.ID, "username", user.Username)
}
