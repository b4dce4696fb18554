package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aosc-dev/pakreq/internal/apperror"
	"github.com/aosc-dev/pakreq/internal/models"
	"github.com/aosc-dev/pakreq/pkg/repository"
)

// CreateUser assigns id = max(existing)+1 inside the INSERT itself so
// that concurrent registrations cannot observe the same max.
func (r *SQLiteRepo) CreateUser(ctx context.Context, username string, admin bool, passwordHash string) (int64, error) {
	if username == "" {
		return 0, apperror.Validation("username must not be empty")
	}

	var id int64
	err := r.conn.QueryRow(ctx,
		`INSERT INTO user (id, username, admin, password_hash)
		 VALUES ((SELECT COALESCE(MAX(id), 0) + 1 FROM user), ?, ?, ?)
		 RETURNING id`,
		username, admin, passwordHash,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, apperror.Conflict(fmt.Sprintf("username %q already taken", username))
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}

	return id, nil
}

func (r *SQLiteRepo) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return r.scanUser(r.conn.QueryRow(ctx,
		`SELECT id, username, admin, password_hash FROM user WHERE id = ?`, id), id)
}

func (r *SQLiteRepo) GetUserByName(ctx context.Context, name string) (*models.User, error) {
	return r.scanUser(r.conn.QueryRow(ctx,
		`SELECT id, username, admin, password_hash FROM user WHERE username = ?`, name), name)
}

func (r *SQLiteRepo) scanUser(row *sql.Row, key any) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.Admin, &u.PasswordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", key)
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	return &u, nil
}

func (r *SQLiteRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := r.conn.QueryRows(ctx,
		`SELECT id, username, admin, password_hash FROM user`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Admin, &u.PasswordHash); err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		out = append(out, u)
	}

	return out, rows.Err()
}

// UpdateUser applies a merge-patch: read the row, overlay the non-nil
// fields, write it back, all inside one transaction so concurrent
// updates to the same row cannot lose a field.
func (r *SQLiteRepo) UpdateUser(ctx context.Context, id int64, patch repository.UserPatch) error {
	err := r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		var u models.User
		err := tx.QueryRowContext(ctx,
			`SELECT id, username, admin, password_hash FROM user WHERE id = ?`, id,
		).Scan(&u.ID, &u.Username, &u.Admin, &u.PasswordHash)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.NotFound("user", id)
			}
			return fmt.Errorf("read user for update: %w", err)
		}

		if patch.Username != nil {
			u.Username = *patch.Username
		}
		if patch.Admin != nil {
			u.Admin = *patch.Admin
		}
		if patch.PasswordHash != nil {
			u.PasswordHash = *patch.PasswordHash
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE user SET username = ?, admin = ?, password_hash = ? WHERE id = ?`,
			u.Username, u.Admin, u.PasswordHash, u.ID)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("username already taken")
		}
		return err
	}

	return nil
}

// DeleteUser removes the account and its oauth links together. Request
// rows are left alone; their user ids resolve to the Unknown
// placeholder from then on.
func (r *SQLiteRepo) DeleteUser(ctx context.Context, id int64) error {
	return r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM oauth WHERE uid = ?`, id); err != nil {
			return fmt.Errorf("delete user links: %w", err)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM user WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete user rows: %w", err)
		}
		if n == 0 {
			return apperror.NotFound("user", id)
		}
		return nil
	})
}
