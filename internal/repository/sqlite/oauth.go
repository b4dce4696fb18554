package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aosc-dev/pakreq/internal/models"
)

// UserByIdentity resolves an external identity to its linked user.
// Returns (nil, nil) when no link exists; absence is a normal outcome
// on every bot message, not an error.
func (r *SQLiteRepo) UserByIdentity(ctx context.Context, provider models.Provider, externalID string) (*models.User, error) {
	row := r.conn.QueryRow(ctx,
		`SELECT u.id, u.username, u.admin, u.password_hash
		 FROM user u JOIN oauth o ON o.uid = u.id
		 WHERE o.type = ? AND o.oid = ?`,
		provider, externalID)

	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.Admin, &u.PasswordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve identity: %w", err)
	}

	return &u, nil
}

// LinkIdentity attaches (provider, externalID) to userID. Any prior
// owner of the identity loses it, and any prior link of userID on the
// same provider is replaced; both removals and the insert commit
// together so the at-most-one invariants hold at every observable
// point.
func (r *SQLiteRepo) LinkIdentity(ctx context.Context, userID int64, provider models.Provider, externalID, token string) error {
	return r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM oauth WHERE type = ? AND oid = ?`, provider, externalID); err != nil {
			return fmt.Errorf("unlink prior owner: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM oauth WHERE uid = ? AND type = ?`, userID, provider); err != nil {
			return fmt.Errorf("unlink prior identity: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO oauth (uid, type, oid, token) VALUES (?, ?, ?, ?)`,
			userID, provider, externalID, token); err != nil {
			return fmt.Errorf("insert link: %w", err)
		}
		return nil
	})
}

// UnlinkIdentity removes the link and reports whether one existed.
func (r *SQLiteRepo) UnlinkIdentity(ctx context.Context, provider models.Provider, externalID string) (bool, error) {
	res, err := r.conn.Exec(ctx,
		`DELETE FROM oauth WHERE type = ? AND oid = ?`, provider, externalID)
	if err != nil {
		return false, fmt.Errorf("unlink identity: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unlink identity rows: %w", err)
	}

	return n > 0, nil
}

// LinkForUser returns the user's link on provider; (nil, nil) when
// absent.
func (r *SQLiteRepo) LinkForUser(ctx context.Context, userID int64, provider models.Provider) (*models.OAuthLink, error) {
	row := r.conn.QueryRow(ctx,
		`SELECT uid, type, oid, token FROM oauth WHERE uid = ? AND type = ?`,
		userID, provider)

	var l models.OAuthLink
	if err := row.Scan(&l.UserID, &l.Provider, &l.ExternalID, &l.Token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get link for user %d: %w", userID, err)
	}

	return &l, nil
}
