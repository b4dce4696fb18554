package sqlite_test

import (
	"context"
	"testing"

	"github.com/aosc-dev/pakreq/internal/models"
)

func TestLinkAndResolveIdentity(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	uid, err := repo.CreateUser(ctx, "alice", false, "")
	if err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}

	// Unknown identity resolves to nothing, not an error.
	u, err := repo.UserByIdentity(ctx, models.ProviderTelegram, "tg-1")
	if err != nil {
		t.Fatalf("UserByIdentity error: %v", err)
	}
	if u != nil {
		t.Fatalf("expected no user for unknown identity, got %#v", u)
	}

	if err := repo.LinkIdentity(ctx, uid, models.ProviderTelegram, "tg-1", ""); err != nil {
		t.Fatalf("LinkIdentity error: %v", err)
	}

	u, err = repo.UserByIdentity(ctx, models.ProviderTelegram, "tg-1")
	if err != nil {
		t.Fatalf("UserByIdentity error: %v", err)
	}
	if u == nil || u.ID != uid {
		t.Fatalf("identity resolved to wrong user: %#v", u)
	}

	// Same external id on a different provider is a distinct identity.
	u, err = repo.UserByIdentity(ctx, models.ProviderGitHub, "tg-1")
	if err != nil {
		t.Fatalf("UserByIdentity error: %v", err)
	}
	if u != nil {
		t.Fatalf("identity leaked across providers: %#v", u)
	}
}

func TestLinkIdentitySteal(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	alice, _ := repo.CreateUser(ctx, "alice", false, "")
	bob, _ := repo.CreateUser(ctx, "bob", false, "")

	if err := repo.LinkIdentity(ctx, bob, models.ProviderTelegram, "tg-7", ""); err != nil {
		t.Fatalf("link to bob: %v", err)
	}
	// Re-linking the same identity to alice takes it away from bob.
	if err := repo.LinkIdentity(ctx, alice, models.ProviderTelegram, "tg-7", ""); err != nil {
		t.Fatalf("relink to alice: %v", err)
	}

	u, err := repo.UserByIdentity(ctx, models.ProviderTelegram, "tg-7")
	if err != nil {
		t.Fatalf("UserByIdentity error: %v", err)
	}
	if u == nil || u.ID != alice {
		t.Fatalf("identity should now belong to alice: %#v", u)
	}

	bobLink, err := repo.LinkForUser(ctx, bob, models.ProviderTelegram)
	if err != nil {
		t.Fatalf("LinkForUser error: %v", err)
	}
	if bobLink != nil {
		t.Fatalf("bob should have no telegram link left: %#v", bobLink)
	}
}

func TestLinkIdentityReplacesOwnLink(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	alice, _ := repo.CreateUser(ctx, "alice", false, "")

	if err := repo.LinkIdentity(ctx, alice, models.ProviderTelegram, "tg-old", ""); err != nil {
		t.Fatalf("first link: %v", err)
	}
	if err := repo.LinkIdentity(ctx, alice, models.ProviderTelegram, "tg-new", "tok"); err != nil {
		t.Fatalf("second link: %v", err)
	}

	// At most one link per (user, provider).
	link, err := repo.LinkForUser(ctx, alice, models.ProviderTelegram)
	if err != nil {
		t.Fatalf("LinkForUser error: %v", err)
	}
	if link == nil || link.ExternalID != "tg-new" || link.Token != "tok" {
		t.Fatalf("expected replacement link, got %#v", link)
	}

	u, err := repo.UserByIdentity(ctx, models.ProviderTelegram, "tg-old")
	if err != nil {
		t.Fatalf("UserByIdentity error: %v", err)
	}
	if u != nil {
		t.Fatalf("old identity should be gone: %#v", u)
	}
}

func TestUnlinkIdentity(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	alice, _ := repo.CreateUser(ctx, "alice", false, "")
	if err := repo.LinkIdentity(ctx, alice, models.ProviderGitHub, "gh-1", ""); err != nil {
		t.Fatalf("LinkIdentity error: %v", err)
	}

	existed, err := repo.UnlinkIdentity(ctx, models.ProviderGitHub, "gh-1")
	if err != nil {
		t.Fatalf("UnlinkIdentity error: %v", err)
	}
	if !existed {
		t.Fatalf("expected unlink to report an existing link")
	}

	existed, err = repo.UnlinkIdentity(ctx, models.ProviderGitHub, "gh-1")
	if err != nil {
		t.Fatalf("UnlinkIdentity error: %v", err)
	}
	if existed {
		t.Fatalf("expected second unlink to report nothing removed")
	}
}
