package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aosc-dev/pakreq/internal/apperror"
	"github.com/aosc-dev/pakreq/internal/models"
	"github.com/aosc-dev/pakreq/pkg/repository"
)

// ResolveIdentity maps an external identity to the local user holding
// it, or (nil, nil) when nobody does. Every command handler that needs
// authorization goes through here.
func (s *Service) ResolveIdentity(ctx context.Context, provider models.Provider, externalID string) (*models.User, error) {
	return s.store.UserByIdentity(ctx, provider, externalID)
}

// Register creates a fresh account and links the external identity to
// it. The identity must not already be linked and the username must be
// free. An empty password leaves the account passwordless; callers
// should warn the user.
func (s *Service) Register(ctx context.Context, username, password string, provider models.Provider, externalID string) (*models.User, error) {
	if username == "" {
		return nil, apperror.Validation("username must not be empty")
	}

	existing, err := s.store.UserByIdentity(ctx, provider, externalID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.Conflict(fmt.Sprintf("identity already registered as %q", existing.Username))
	}

	if taken, err := s.store.GetUserByName(ctx, username); err == nil && taken != nil {
		return nil, apperror.Conflict(fmt.Sprintf("username %q already taken", username))
	} else if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	id, err := s.store.CreateUser(ctx, username, false, "")
	if err != nil {
		return nil, err
	}

	// Password and link follow the insert; if either fails the half-made
	// account must not be left squatting the username.
	if password != "" {
		if err := s.SetPassword(ctx, id, password); err != nil {
			s.discardAccount(ctx, id)
			return nil, err
		}
	}

	if err := s.store.LinkIdentity(ctx, id, provider, externalID, ""); err != nil {
		s.discardAccount(ctx, id)
		return nil, err
	}

	s.logger.Info("user registered", "id", id, "username", username, "provider", provider.String())
	return s.store.GetUser(ctx, id)
}

func (s *Service) discardAccount(ctx context.Context, id int64) {
	if err := s.store.DeleteUser(ctx, id); err != nil {
		s.logger.Error("discard half-registered account", "id", id, "err", err)
	}
}

// LinkAccount verifies username/password and re-homes the external
// identity onto the matched account, stealing it from any prior owner.
// The stored hash is rotated in place when it was produced with weaker
// parameters than the current defaults.
func (s *Service) LinkAccount(ctx context.Context, username, password string, provider models.Provider, externalID string) (*models.User, error) {
	user, err := s.authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	if err := s.store.LinkIdentity(ctx, user.ID, provider, externalID, ""); err != nil {
		return nil, err
	}

	s.logger.Info("identity linked", "user", user.ID, "provider", provider.String())
	return user, nil
}

// Unlink removes the identity's link; reports whether one existed.
func (s *Service) Unlink(ctx context.Context, provider models.Provider, externalID string) (bool, error) {
	return s.store.UnlinkIdentity(ctx, provider, externalID)
}

// SetPassword replaces the user's password hash.
func (s *Service) SetPassword(ctx context.Context, userID int64, password string) error {
	if password == "" {
		return apperror.Validation("password must not be empty")
	}

	hash, err := s.hasher.Hash(userID, password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return s.store.UpdateUser(ctx, userID, repository.UserPatch{PasswordHash: &hash})
}

// AuthenticateWeb is the web login path; same verify-and-rotate rule
// as LinkAccount.
func (s *Service) AuthenticateWeb(ctx context.Context, username, password string) (*models.User, error) {
	return s.authenticate(ctx, username, password)
}

func (s *Service) authenticate(ctx context.Context, username, password string) (*models.User, error) {
	const badCredentials = "incorrect username or password"

	user, err := s.store.GetUserByName(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(badCredentials)
		}
		return nil, err
	}
	if user.PasswordHash == "" {
		return nil, apperror.Unauthorized(badCredentials)
	}

	ok, rehash, err := s.hasher.Verify(user.ID, password, user.PasswordHash)
	if err != nil {
		s.logger.Warn("verify password hash", "user", user.ID, "err", err)
		return nil, apperror.Unauthorized(badCredentials)
	}
	if !ok {
		return nil, apperror.Unauthorized(badCredentials)
	}

	if rehash {
		// The cleartext is at hand and correct; rotate the weak hash now.
		if err := s.SetPassword(ctx, user.ID, password); err != nil {
			s.logger.Warn("rotate password hash", "user", user.ID, "err", err)
		}
	}

	return user, nil
}
