package service

import (
	"context"
	"errors"
	"testing"

	"github.com/aosc-dev/pakreq/internal/apperror"
	"github.com/aosc-dev/pakreq/internal/models"
)

func TestNewRequestDuplicateGuard(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	alice, _ := svc.CreateUser(ctx, "alice", "", false)
	bob, _ := svc.CreateUser(ctx, "bob", "", false)

	id, dup, err := svc.NewRequest(ctx, models.Pakreq, "libfoo", "", alice.ID)
	if err != nil {
		t.Fatalf("NewRequest error: %v", err)
	}
	if dup {
		t.Fatalf("first filing flagged as duplicate")
	}

	// Same (name, type) while open: duplicate, existing id returned.
	dupID, dup, err := svc.NewRequest(ctx, models.Pakreq, "libfoo", "", bob.ID)
	if err != nil {
		t.Fatalf("NewRequest error: %v", err)
	}
	if !dup || dupID != id {
		t.Fatalf("expected duplicate of %d, got id=%d dup=%v", id, dupID, dup)
	}

	// Same name, different type: not a duplicate.
	_, dup, err = svc.NewRequest(ctx, models.Updreq, "libfoo", "2.0", bob.ID)
	if err != nil {
		t.Fatalf("NewRequest error: %v", err)
	}
	if dup {
		t.Fatalf("different type flagged as duplicate")
	}

	// A closed request does not block re-filing.
	if err := svc.Close(ctx, id, bob.ID, models.StatusRejected, "no"); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	newID, dup, err := svc.NewRequest(ctx, models.Pakreq, "libfoo", "", alice.ID)
	if err != nil {
		t.Fatalf("NewRequest error: %v", err)
	}
	if dup || newID == id {
		t.Fatalf("re-filing after rejection should create a fresh request, got id=%d dup=%v", newID, dup)
	}
}

func TestClaimLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	alice, _ := svc.CreateUser(ctx, "alice", "", false)
	bob, _ := svc.CreateUser(ctx, "bob", "", false)
	id, _, err := svc.NewRequest(ctx, models.Pakreq, "libfoo", "", alice.ID)
	if err != nil {
		t.Fatalf("NewRequest error: %v", err)
	}

	if err := svc.Claim(ctx, id, bob.ID); err != nil {
		t.Fatalf("Claim error: %v", err)
	}
	// Re-claiming one's own claim is a no-op, not a conflict.
	if err := svc.Claim(ctx, id, bob.ID); err != nil {
		t.Fatalf("idempotent Claim error: %v", err)
	}
	// Someone else cannot take it over.
	if err := svc.Claim(ctx, id, alice.ID); !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("expected Conflict for claimed request, got %v", err)
	}

	// Only the claimant may unclaim.
	if err := svc.Unclaim(ctx, id, alice.ID); !errors.Is(err, apperror.ErrNotOwner) {
		t.Fatalf("expected NotOwner, got %v", err)
	}
	if err := svc.Unclaim(ctx, id, bob.ID); err != nil {
		t.Fatalf("Unclaim error: %v", err)
	}

	req, err := svc.Request(ctx, id)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if req.PackagerID != 0 {
		t.Fatalf("packager not cleared: %#v", req)
	}
}

func TestClaimAny(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	alice, _ := svc.CreateUser(ctx, "alice", "", false)
	bob, _ := svc.CreateUser(ctx, "bob", "", false)

	if _, err := svc.ClaimAny(ctx, bob.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected NotFound with no open requests, got %v", err)
	}

	first, _, _ := svc.NewRequest(ctx, models.Pakreq, "libfoo", "", alice.ID)
	second, _, _ := svc.NewRequest(ctx, models.Pakreq, "libbar", "", alice.ID)

	if err := svc.Claim(ctx, first, alice.ID); err != nil {
		t.Fatalf("Claim error: %v", err)
	}

	// Only the unclaimed one is eligible.
	got, err := svc.ClaimAny(ctx, bob.ID)
	if err != nil {
		t.Fatalf("ClaimAny error: %v", err)
	}
	if got != second {
		t.Fatalf("expected to claim %d, got %d", second, got)
	}

	if _, err := svc.ClaimAny(ctx, bob.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected NotFound with everything claimed, got %v", err)
	}
}

func TestCloseAndReopen(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	alice, _ := svc.CreateUser(ctx, "alice", "", false)
	bob, _ := svc.CreateUser(ctx, "bob", "", false)
	id, _, _ := svc.NewRequest(ctx, models.Pakreq, "libfoo", "", alice.ID)

	if err := svc.Close(ctx, id, bob.ID, models.StatusOpen, ""); !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("expected Validation for open outcome, got %v", err)
	}

	if err := svc.Close(ctx, id, bob.ID, models.StatusDone, "shipped"); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	req, _ := svc.Request(ctx, id)
	if req.Status != models.StatusDone || req.Note != "shipped" {
		t.Fatalf("close did not apply: %#v", req)
	}
	// The closer becomes the packager of record.
	if req.PackagerID != bob.ID {
		t.Fatalf("expected packager %d, got %d", bob.ID, req.PackagerID)
	}

	if err := svc.Close(ctx, id, bob.ID, models.StatusDone, ""); !errors.Is(err, apperror.ErrInvalidTransition) {
		t.Fatalf("expected AlreadyClosed, got %v", err)
	}
	if err := svc.Reopen(ctx, id); err != nil {
		t.Fatalf("Reopen error: %v", err)
	}
	if err := svc.Reopen(ctx, id); !errors.Is(err, apperror.ErrInvalidTransition) {
		t.Fatalf("expected InvalidTransition for open request, got %v", err)
	}

	// Reopened requests can be closed again.
	if err := svc.Close(ctx, id, alice.ID, models.StatusRejected, ""); err != nil {
		t.Fatalf("Close after Reopen error: %v", err)
	}
}

func TestAutoCloseKeepsPackager(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	alice, _ := svc.CreateUser(ctx, "alice", "", false)
	bob, _ := svc.CreateUser(ctx, "bob", "", false)
	id, _, _ := svc.NewRequest(ctx, models.Pakreq, "libfoo", "", alice.ID)

	if err := svc.Claim(ctx, id, bob.ID); err != nil {
		t.Fatalf("Claim error: %v", err)
	}
	if err := svc.AutoClose(ctx, id, models.StatusDone, "(BOT) packaged"); err != nil {
		t.Fatalf("AutoClose error: %v", err)
	}

	req, _ := svc.Request(ctx, id)
	if req.Status != models.StatusDone || req.Note != "(BOT) packaged" {
		t.Fatalf("auto-close did not apply: %#v", req)
	}
	if req.PackagerID != bob.ID {
		t.Fatalf("auto-close must not reassign the packager: %#v", req)
	}

	if err := svc.AutoClose(ctx, id, models.StatusDone, ""); !errors.Is(err, apperror.ErrInvalidTransition) {
		t.Fatalf("expected AlreadyClosed, got %v", err)
	}
}

func TestNoteAndDescriptionAuthorization(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	alice, _ := svc.CreateUser(ctx, "alice", "", false)
	bob, _ := svc.CreateUser(ctx, "bob", "", false)
	id, _, _ := svc.NewRequest(ctx, models.Pakreq, "libfoo", "original", alice.ID)

	// Note editing is gated on the claim.
	if err := svc.SetNote(ctx, id, bob.ID, "wip"); !errors.Is(err, apperror.ErrNotOwner) {
		t.Fatalf("expected NotOwner before claiming, got %v", err)
	}
	if err := svc.Claim(ctx, id, bob.ID); err != nil {
		t.Fatalf("Claim error: %v", err)
	}
	if err := svc.SetNote(ctx, id, bob.ID, "wip"); err != nil {
		t.Fatalf("SetNote error: %v", err)
	}

	// Description editing is the requester's alone.
	if err := svc.EditDescription(ctx, id, bob.ID, "hijacked"); !errors.Is(err, apperror.ErrNotOwner) {
		t.Fatalf("expected NotOwner for non-requester, got %v", err)
	}
	if err := svc.EditDescription(ctx, id, alice.ID, "better text"); err != nil {
		t.Fatalf("EditDescription error: %v", err)
	}

	req, _ := svc.Request(ctx, id)
	if req.Note != "wip" || req.Description != "better text" {
		t.Fatalf("edits did not apply: %#v", req)
	}

	// Clearing the description falls back to the placeholder.
	if err := svc.EditDescription(ctx, id, alice.ID, ""); err != nil {
		t.Fatalf("EditDescription error: %v", err)
	}
	req, _ = svc.Request(ctx, id)
	if req.Description != models.DefaultDescription {
		t.Fatalf("expected default description, got %q", req.Description)
	}
}
