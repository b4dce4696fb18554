package service

import (
	"context"
	"fmt"

	"github.com/aosc-dev/pakreq/internal/apperror"
	"github.com/aosc-dev/pakreq/internal/models"
	"github.com/aosc-dev/pakreq/pkg/repository"
)

// NewRequest files a request. When an open request with the same
// (name, type) already exists the existing id is returned with
// duplicate=true and nothing is written; a previously done or rejected
// request does not block re-filing.
func (s *Service) NewRequest(ctx context.Context, typ models.RequestType, name, description string, requesterID int64) (id int64, duplicate bool, err error) {
	if name == "" {
		return 0, false, apperror.Validation("package name must not be empty")
	}

	open, err := s.store.ListOpenRequests(ctx)
	if err != nil {
		return 0, false, err
	}
	for _, r := range open {
		if r.Name == name && r.Type == typ {
			return r.ID, true, nil
		}
	}

	id, err = s.store.CreateRequest(ctx, &models.Request{
		Type:        typ,
		Status:      models.StatusOpen,
		Name:        name,
		Description: description,
		RequesterID: requesterID,
	})
	if err != nil {
		return 0, false, err
	}

	s.logger.Info("request filed", "id", id, "type", typ.String(), "name", name, "requester", requesterID)
	return id, false, nil
}

// Claim assigns userID as the packager. The request must still be open
// and not claimed by somebody else.
func (s *Service) Claim(ctx context.Context, id, userID int64) error {
	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	if req.Status != models.StatusOpen {
		return apperror.AlreadyClosed(id)
	}
	if req.PackagerID != 0 && req.PackagerID != userID {
		return apperror.Conflict(fmt.Sprintf("request %d is already claimed", id))
	}

	return s.store.UpdateRequest(ctx, id, repository.RequestPatch{PackagerID: &userID})
}

// ClaimAny claims an arbitrary unclaimed open request and returns its
// id. NotFound when nothing is unclaimed.
func (s *Service) ClaimAny(ctx context.Context, userID int64) (int64, error) {
	open, err := s.store.ListOpenRequests(ctx)
	if err != nil {
		return 0, err
	}

	for _, r := range open {
		if r.PackagerID == 0 {
			if err := s.store.UpdateRequest(ctx, r.ID, repository.RequestPatch{PackagerID: &userID}); err != nil {
				return 0, err
			}
			return r.ID, nil
		}
	}

	return 0, apperror.NotFound("unclaimed open request", "any")
}

// Unclaim clears the packager. Only the current claimant may do this.
func (s *Service) Unclaim(ctx context.Context, id, userID int64) error {
	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	if req.PackagerID != userID {
		return apperror.NotOwner(fmt.Sprintf("request %d is not claimed by user %d", id, userID))
	}

	var none int64
	return s.store.UpdateRequest(ctx, id, repository.RequestPatch{PackagerID: &none})
}

// Close marks an open request Done or Rejected on behalf of userID,
// who becomes the packager of record. A request that is no longer open
// must be reopened first.
func (s *Service) Close(ctx context.Context, id, userID int64, outcome models.RequestStatus, note string) error {
	if outcome != models.StatusDone && outcome != models.StatusRejected {
		return apperror.Validation("close outcome must be done or rejected")
	}

	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	if req.Status != models.StatusOpen {
		return apperror.AlreadyClosed(id)
	}

	patch := repository.RequestPatch{Status: &outcome, PackagerID: &userID}
	if note != "" {
		patch.Note = &note
	}

	if err := s.store.UpdateRequest(ctx, id, patch); err != nil {
		return err
	}

	s.logger.Info("request closed", "id", id, "outcome", outcome.String(), "by", userID)
	return nil
}

// AutoClose is the daemon's transition path: Open to Done/Rejected
// with a synthetic note, leaving the packager untouched.
func (s *Service) AutoClose(ctx context.Context, id int64, outcome models.RequestStatus, note string) error {
	if outcome != models.StatusDone && outcome != models.StatusRejected {
		return apperror.Validation("close outcome must be done or rejected")
	}

	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	if req.Status != models.StatusOpen {
		return apperror.AlreadyClosed(id)
	}

	return s.store.UpdateRequest(ctx, id, repository.RequestPatch{Status: &outcome, Note: &note})
}

// Reopen returns a done or rejected request to Open. The packager is
// retained; whoever closed it stays on record unless they unclaim.
func (s *Service) Reopen(ctx context.Context, id int64) error {
	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	if req.Status == models.StatusOpen {
		return apperror.InvalidTransition(fmt.Sprintf("request %d is already open", id))
	}

	open := models.StatusOpen
	return s.store.UpdateRequest(ctx, id, repository.RequestPatch{Status: &open})
}

// SetNote lets the current packager annotate the request.
func (s *Service) SetNote(ctx context.Context, id, userID int64, text string) error {
	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	if req.PackagerID != userID {
		return apperror.NotOwner(fmt.Sprintf("only the packager may edit the note of request %d", id))
	}

	return s.store.UpdateRequest(ctx, id, repository.RequestPatch{Note: &text})
}

// EditDescription lets the original requester amend the description.
func (s *Service) EditDescription(ctx context.Context, id, userID int64, text string) error {
	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	if req.RequesterID != userID {
		return apperror.NotOwner(fmt.Sprintf("only the requester may edit the description of request %d", id))
	}
	if text == "" {
		text = models.DefaultDescription
	}

	return s.store.UpdateRequest(ctx, id, repository.RequestPatch{Description: &text})
}
