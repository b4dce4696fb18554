package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	migrations "github.com/aosc-dev/pakreq/db"
	dbpkg "github.com/aosc-dev/pakreq/internal/db"
	sqlite "github.com/aosc-dev/pakreq/internal/repository/sqlite"
)

func setupRepo(t *testing.T) *sqlite.SQLiteRepo {
	t.Helper()
	ctx := context.Background()

	d, err := dbpkg.New(ctx, filepath.Join(t.TempDir(), "pakreq_test.db"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	if err := dbpkg.Migrate(ctx, d, migrations.Migrations); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return sqlite.New(d, nil)
}
