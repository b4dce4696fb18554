// Package service implements the business rules on top of the storage
// contracts: duplicate guarding, status transitions, identity
// resolution and password handling. It is the only writer path to the
// store; the bot, the web layer and the daemon never touch storage
// directly.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aosc-dev/pakreq/internal/apperror"
	"github.com/aosc-dev/pakreq/internal/models"
	"github.com/aosc-dev/pakreq/pkg/repository"
)

type Service struct {
	store  repository.Store
	hasher *PasswordHasher
	logger *slog.Logger
}

func New(store repository.Store, hasher *PasswordHasher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, hasher: hasher, logger: logger}
}

// RequestDetail is a request joined with its resolved user records.
type RequestDetail struct {
	models.Request
	Requester models.User `json:"requester"`
	Packager  models.User `json:"packager"`
}

// Detail joins a request with its requester and packager. A user id
// that does not resolve (the 0 sentinel included) yields the Unknown
// placeholder instead of an error: detail lookups must never fail just
// because a request is unclaimed.
func (s *Service) Detail(ctx context.Context, id int64) (*RequestDetail, error) {
	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	return &RequestDetail{
		Request:   *req,
		Requester: s.userOrUnknown(ctx, req.RequesterID),
		Packager:  s.userOrUnknown(ctx, req.PackagerID),
	}, nil
}

func (s *Service) userOrUnknown(ctx context.Context, id int64) models.User {
	if id == 0 {
		return models.UnknownUser
	}

	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			s.logger.Warn("resolve user for detail", "id", id, "err", err)
		}
		return models.UnknownUser
	}

	return *u
}

func (s *Service) Request(ctx context.Context, id int64) (*models.Request, error) {
	return s.store.GetRequest(ctx, id)
}

func (s *Service) Requests(ctx context.Context) ([]models.Request, error) {
	return s.store.ListRequests(ctx)
}

func (s *Service) OpenRequests(ctx context.Context) ([]models.Request, error) {
	return s.store.ListOpenRequests(ctx)
}

func (s *Service) RequestsByUser(ctx context.Context, userID int64) ([]models.Request, error) {
	return s.store.ListRequestsByRequester(ctx, userID)
}

// Search returns name matches and description matches as two
// independently capped lists. A request whose name and description
// both match appears in both.
func (s *Service) Search(ctx context.Context, keyword string) (names, descriptions []models.Request, err error) {
	if keyword == "" {
		return nil, nil, apperror.Validation("search keyword must not be empty")
	}

	names, err = s.store.SearchRequestsByName(ctx, keyword)
	if err != nil {
		return nil, nil, err
	}
	descriptions, err = s.store.SearchRequestsByDescription(ctx, keyword)
	if err != nil {
		return nil, nil, err
	}

	return names, descriptions, nil
}

func (s *Service) User(ctx context.Context, id int64) (*models.User, error) {
	return s.store.GetUser(ctx, id)
}

func (s *Service) UserByName(ctx context.Context, name string) (*models.User, error) {
	return s.store.GetUserByName(ctx, name)
}

// CreateUser registers a plain local account. Username uniqueness is
// enforced here in addition to the column constraint so the caller
// gets a typed Conflict rather than a driver error.
func (s *Service) CreateUser(ctx context.Context, username, password string, admin bool) (*models.User, error) {
	if username == "" {
		return nil, apperror.Validation("username must not be empty")
	}
	if existing, err := s.store.GetUserByName(ctx, username); err == nil && existing != nil {
		return nil, apperror.Conflict(fmt.Sprintf("username %q already taken", username))
	} else if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	id, err := s.store.CreateUser(ctx, username, admin, "")
	if err != nil {
		return nil, err
	}

	if password != "" {
		if err := s.SetPassword(ctx, id, password); err != nil {
			return nil, err
		}
	}

	return s.store.GetUser(ctx, id)
}
