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

const requestColumns = `id, status, type, name, description, requester_id, packager_id, pub_date, note`

// CreateRequest reserves the next id atomically with the insert. Ids
// form a contiguous range from 1 and are never reused: deleting rows
// never happens, and max+1 inside a single INSERT cannot race.
func (r *SQLiteRepo) CreateRequest(ctx context.Context, req *models.Request) (int64, error) {
	if req == nil {
		return 0, apperror.Validation("request is nil")
	}
	if req.Name == "" {
		return 0, apperror.Validation("package name must not be empty")
	}
	if req.Description == "" {
		req.Description = models.DefaultDescription
	}
	if req.Created == 0 {
		req.Created = now()
	}

	var id int64
	err := r.conn.QueryRow(ctx,
		`INSERT INTO request (id, status, type, name, description, requester_id, packager_id, pub_date, note)
		 VALUES ((SELECT COALESCE(MAX(id), 0) + 1 FROM request), ?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		req.Status, req.Type, req.Name, req.Description,
		req.RequesterID, req.PackagerID, req.Created, req.Note,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert request: %w", err)
	}

	req.ID = id
	return id, nil
}

func (r *SQLiteRepo) GetRequest(ctx context.Context, id int64) (*models.Request, error) {
	row := r.conn.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM request WHERE id = ?`, id)

	var req models.Request
	if err := scanRequest(row.Scan, &req); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("request", id)
		}
		return nil, fmt.Errorf("get request %d: %w", id, err)
	}

	return &req, nil
}

func (r *SQLiteRepo) ListRequests(ctx context.Context) ([]models.Request, error) {
	return r.listRequests(ctx,
		`SELECT `+requestColumns+` FROM request ORDER BY id`)
}

func (r *SQLiteRepo) ListOpenRequests(ctx context.Context) ([]models.Request, error) {
	return r.listRequests(ctx,
		`SELECT `+requestColumns+` FROM request WHERE status = ? ORDER BY id`,
		models.StatusOpen)
}

func (r *SQLiteRepo) ListRequestsByRequester(ctx context.Context, userID int64) ([]models.Request, error) {
	return r.listRequests(ctx,
		`SELECT `+requestColumns+` FROM request WHERE requester_id = ? ORDER BY id`,
		userID)
}

// SearchRequests substring-matches name or description, id ascending,
// capped at repository.SearchLimit.
func (r *SQLiteRepo) SearchRequests(ctx context.Context, keyword string) ([]models.Request, error) {
	pattern := "%" + keyword + "%"
	return r.listRequests(ctx,
		`SELECT `+requestColumns+` FROM request
		 WHERE name LIKE ? OR description LIKE ?
		 ORDER BY id LIMIT ?`,
		pattern, pattern, repository.SearchLimit)
}

// SearchRequestsByName matches the name column only. Its cap is
// independent of SearchRequestsByDescription's so a flood of name
// matches never starves the description results.
func (r *SQLiteRepo) SearchRequestsByName(ctx context.Context, keyword string) ([]models.Request, error) {
	return r.listRequests(ctx,
		`SELECT `+requestColumns+` FROM request
		 WHERE name LIKE ? ORDER BY id LIMIT ?`,
		"%"+keyword+"%", repository.SearchLimit)
}

// SearchRequestsByDescription matches the description column only.
func (r *SQLiteRepo) SearchRequestsByDescription(ctx context.Context, keyword string) ([]models.Request, error) {
	return r.listRequests(ctx,
		`SELECT `+requestColumns+` FROM request
		 WHERE description LIKE ? ORDER BY id LIMIT ?`,
		"%"+keyword+"%", repository.SearchLimit)
}

func (r *SQLiteRepo) listRequests(ctx context.Context, query string, args ...any) ([]models.Request, error) {
	rows, err := r.conn.QueryRows(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}
	defer rows.Close()

	var out []models.Request
	for rows.Next() {
		var req models.Request
		if err := scanRequest(rows.Scan, &req); err != nil {
			return nil, fmt.Errorf("scan request row: %w", err)
		}
		out = append(out, req)
	}

	return out, rows.Err()
}

func scanRequest(scan func(...any) error, req *models.Request) error {
	return scan(
		&req.ID, &req.Status, &req.Type, &req.Name, &req.Description,
		&req.RequesterID, &req.PackagerID, &req.Created, &req.Note,
	)
}

// UpdateRequest applies a merge-patch in one transaction, same contract
// as UpdateUser.
func (r *SQLiteRepo) UpdateRequest(ctx context.Context, id int64, patch repository.RequestPatch) error {
	return r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+requestColumns+` FROM request WHERE id = ?`, id)

		var req models.Request
		if err := scanRequest(row.Scan, &req); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.NotFound("request", id)
			}
			return fmt.Errorf("read request for update: %w", err)
		}

		if patch.Status != nil {
			req.Status = *patch.Status
		}
		if patch.Type != nil {
			req.Type = *patch.Type
		}
		if patch.Name != nil {
			req.Name = *patch.Name
		}
		if patch.Description != nil {
			req.Description = *patch.Description
		}
		if patch.RequesterID != nil {
			req.RequesterID = *patch.RequesterID
		}
		if patch.PackagerID != nil {
			req.PackagerID = *patch.PackagerID
		}
		if patch.Note != nil {
			req.Note = *patch.Note
		}

		_, err := tx.ExecContext(ctx,
			`UPDATE request SET status = ?, type = ?, name = ?, description = ?,
			 requester_id = ?, packager_id = ?, pub_date = ?, note = ?
			 WHERE id = ?`,
			req.Status, req.Type, req.Name, req.Description,
			req.RequesterID, req.PackagerID, req.Created, req.Note, req.ID)
		return err
	})
}
