package service

import (
	"context"
	"testing"

	"google.golang.org/grpc/codes"

	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/domain"
)

func TestStats(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	st, err := f.admin.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st != (Stats{}) {
		t.Fatalf("empty stats = %+v", st)
	}

	owner := f.member(t, "owner@example.com", domain.RoleOwner)
	f.member(t, "renter@example.com", domain.RoleUser)
	var first *domain.Listing
	for i := 0; i < 4; i++ {
		l := f.newListing(t, owner, 50, 0)
		if first == nil {
			first = l
		}
	}
	if err := f.db.Model(&domain.Listing{}).Where("id = ?", first.ID).Update("is_booked", true).Error; err != nil {
		t.Fatal(err)
	}

	st, err = f.admin.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := Stats{TotalListings: 4, BookedListings: 1, TotalUsers: 2, BookedPercentage: 25}
	if st != want {
		t.Fatalf("stats = %+v, want %+v", st, want)
	}
}

func TestSetRole(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	u := f.member(t, "u@example.com", domain.RoleUser)

	_, err := f.admin.SetRole(ctx, u.UserID, domain.Role("root"))
	wantCode(t, err, codes.InvalidArgument)
	_, err = f.admin.SetRole(ctx, "missing", domain.RoleOwner)
	wantCode(t, err, codes.NotFound)

	// a stale cached role must not outlive the change
	if _, _, err := f.identity.Role(ctx, u.UserID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.admin.SetRole(ctx, u.UserID, domain.RoleOwner); err != nil {
		t.Fatal(err)
	}
	role, ok, err := f.identity.Role(ctx, u.UserID)
	if err != nil || !ok || role != domain.RoleOwner {
		t.Fatalf("role = %q %v %v", role, ok, err)
	}
}

func TestDeleteUserRemovesAccountAndSessions(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	admin := f.member(t, "admin@example.com", domain.RoleAdmin)
	victim := f.member(t, "victim@example.com", domain.RoleUser)

	if err := f.admin.DeleteUser(ctx, admin, victim.UserID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.accounts.ProfileByID(ctx, victim.UserID); err == nil {
		t.Fatal("profile survived delete")
	}
	if _, err := f.accounts.CredentialByID(ctx, victim.UserID); err == nil {
		t.Fatal("credential survived delete")
	}
	if sess, err := f.sessions.Get(ctx, victim.SessionID); err != nil || sess != nil {
		t.Fatalf("session = %+v, %v", sess, err)
	}

	wantCode(t, f.admin.DeleteUser(ctx, admin, victim.UserID), codes.NotFound)
	wantCode(t, f.admin.DeleteUser(ctx, admin, admin.UserID), codes.InvalidArgument)
}

func TestListUsersFilters(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.member(t, "alice@example.com", domain.RoleUser)
	f.member(t, "bob@example.com", domain.RoleOwner)
	f.member(t, "carol@example.com", domain.RoleOwner)

	page, err := f.admin.ListUsers(ctx, 0, 10, "", domain.RoleOwner)
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 2 || len(page.Items) != 2 {
		t.Fatalf("owners = %+v", page)
	}
	page, err = f.admin.ListUsers(ctx, 0, 10, "ALI", "")
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 || page.Items[0].Email != "alice@example.com" {
		t.Fatalf("search = %+v", page)
	}
	_, err = f.admin.ListUsers(ctx, 0, 10, "", domain.Role("root"))
	wantCode(t, err, codes.InvalidArgument)
}

func TestBootstrapAdmin(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	u := f.member(t, "ops@example.com", domain.RoleUser)

	if err := f.admin.BootstrapAdmin(ctx, "nobody@example.com"); err != nil {
		t.Fatalf("unknown bootstrap address: %v", err)
	}
	if err := f.admin.BootstrapAdmin(ctx, "OPS@example.com"); err != nil {
		t.Fatal(err)
	}
	prof, _ := f.accounts.ProfileByID(ctx, u.UserID)
	if prof.Role != domain.RoleAdmin {
		t.Fatalf("role = %s", prof.Role)
	}
}
