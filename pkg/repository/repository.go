// Package repository declares the storage contracts for pakreq. These
// are the public interfaces consumers depend on; the SQLite
// implementation lives under internal/.
package repository

import (
	"context"

	"github.com/aosc-dev/pakreq/internal/models"
)

// SearchLimit caps the number of rows SearchRequests returns.
const SearchLimit = 10

// UserPatch carries merge-patch fields for UpdateUser. Nil fields keep
// their stored value.
type UserPatch struct {
	Username     *string
	Admin        *bool
	PasswordHash *string
}

// RequestPatch carries merge-patch fields for UpdateRequest.
type RequestPatch struct {
	Status      *models.RequestStatus
	Type        *models.RequestType
	Name        *string
	Description *string
	RequesterID *int64
	PackagerID  *int64
	Note        *string
}

type UserRepo interface {
	// CreateUser assigns the next id atomically and inserts; fails with
	// apperror.ErrConflict when the username is taken.
	CreateUser(ctx context.Context, username string, admin bool, passwordHash string) (int64, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByName(ctx context.Context, name string) (*models.User, error)
	// ListUsers returns all users; callers must not depend on order.
	ListUsers(ctx context.Context) ([]models.User, error)
	// UpdateUser applies a merge-patch inside a single transaction;
	// fails with apperror.ErrNotFound when the id is absent.
	UpdateUser(ctx context.Context, id int64, patch UserPatch) error
	// DeleteUser removes the user and its identity links in one
	// transaction; fails with apperror.ErrNotFound when the id is
	// absent. Requests keep their requester/packager ids.
	DeleteUser(ctx context.Context, id int64) error
}

type RequestRepo interface {
	// CreateRequest reserves id = max(existing)+1 atomically with the
	// insert and returns it.
	CreateRequest(ctx context.Context, r *models.Request) (int64, error)
	GetRequest(ctx context.Context, id int64) (*models.Request, error)
	ListRequests(ctx context.Context) ([]models.Request, error)
	ListOpenRequests(ctx context.Context) ([]models.Request, error)
	ListRequestsByRequester(ctx context.Context, userID int64) ([]models.Request, error)
	UpdateRequest(ctx context.Context, id int64, patch RequestPatch) error
	// SearchRequests substring-matches name or description, ordered by
	// id ascending, capped at SearchLimit.
	SearchRequests(ctx context.Context, keyword string) ([]models.Request, error)
	// SearchRequestsByName and SearchRequestsByDescription match a
	// single column each, with the same order and an independent
	// SearchLimit cap per column.
	SearchRequestsByName(ctx context.Context, keyword string) ([]models.Request, error)
	SearchRequestsByDescription(ctx context.Context, keyword string) ([]models.Request, error)
}

type OAuthRepo interface {
	// UserByIdentity resolves (provider, external id) to the linked
	// user; (nil, nil) when no link exists.
	UserByIdentity(ctx context.Context, provider models.Provider, externalID string) (*models.User, error)
	// LinkIdentity attaches the identity to userID, removing any prior
	// owner of the identity and any prior link of userID on the same
	// provider, all in one transaction.
	LinkIdentity(ctx context.Context, userID int64, provider models.Provider, externalID, token string) error
	// UnlinkIdentity removes the link; reports whether one existed.
	UnlinkIdentity(ctx context.Context, provider models.Provider, externalID string) (bool, error)
	// LinkForUser returns the user's link on provider; (nil, nil) when
	// absent.
	LinkForUser(ctx context.Context, userID int64, provider models.Provider) (*models.OAuthLink, error)
}

// Store aggregates the full storage contract.
type Store interface {
	UserRepo
	RequestRepo
	OAuthRepo
}
