package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	migrations "github.com/aosc-dev/pakreq/db"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	d, err := New(context.Background(), filepath.Join(t.TempDir(), "pakreq_test.db"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	return d
}

func TestNewAppliesPragmas(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	var mode string
	if err := d.QueryRow(ctx, `PRAGMA journal_mode`).Scan(&mode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Fatalf("journal_mode = %q, want wal", mode)
	}

	var fk int
	if err := d.QueryRow(ctx, `PRAGMA foreign_keys`).Scan(&fk); err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Fatalf("foreign_keys = %d, want 1", fk)
	}
}

func TestPragmasHoldOnEveryConnection(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	// Pin several pool connections at once; each must carry the DSN
	// pragmas, not just whichever connection New happened to touch.
	var conns []*sql.Conn
	for i := 0; i < 3; i++ {
		c, err := d.GetConn().Conn(ctx)
		if err != nil {
			t.Fatalf("acquire connection %d: %v", i, err)
		}
		defer c.Close()
		conns = append(conns, c)
	}

	for i, c := range conns {
		var fk int
		if err := c.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&fk); err != nil {
			t.Fatalf("conn %d foreign_keys: %v", i, err)
		}
		if fk != 1 {
			t.Fatalf("conn %d: foreign_keys = %d, want 1", i, fk)
		}

		var timeout int
		if err := c.QueryRowContext(ctx, `PRAGMA busy_timeout`).Scan(&timeout); err != nil {
			t.Fatalf("conn %d busy_timeout: %v", i, err)
		}
		if timeout != 5000 {
			t.Fatalf("conn %d: busy_timeout = %d, want 5000", i, timeout)
		}
	}
}

func TestWithTxCommitAndRollback(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	if _, err := d.Exec(ctx, `CREATE TABLE t (v INTEGER)`); err != nil {
		t.Fatalf("create table: %v", err)
	}

	if err := d.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO t (v) VALUES (1)`)
		return err
	}); err != nil {
		t.Fatalf("WithTx commit error: %v", err)
	}

	boom := errors.New("boom")
	err := d.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO t (v) VALUES (2)`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx should surface fn error, got %v", err)
	}

	var count int
	if err := d.QueryRow(ctx, `SELECT COUNT(1) FROM t`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("rollback did not undo the insert, count = %d", count)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	if err := Migrate(ctx, d, migrations.Migrations); err != nil {
		t.Fatalf("first Migrate error: %v", err)
	}
	// A second run sees everything applied and does nothing.
	if err := Migrate(ctx, d, migrations.Migrations); err != nil {
		t.Fatalf("second Migrate error: %v", err)
	}

	for _, table := range []string{"user", "request", "oauth"} {
		var name string
		err := d.QueryRow(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Fatalf("table %s missing after migration: %v", table, err)
		}
	}

	var applied int
	if err := d.QueryRow(ctx, `SELECT COUNT(1) FROM schema_migrations`).Scan(&applied); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if applied == 0 {
		t.Fatalf("no migrations recorded")
	}
}
