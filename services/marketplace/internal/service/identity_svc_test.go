package service

import (
	"context"
	"testing"

	"google.golang.org/grpc/codes"

	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/domain"
)

func TestRegisterAlwaysCreatesPlainUser(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	u, err := f.identity.Register(ctx, RegisterInput{Email: " Alice@Example.com ", Password: "secret1", DisplayName: "Alice"})
	if err != nil {
		t.Fatal(err)
	}
	if u.Role != domain.RoleUser || u.Email != "alice@example.com" {
		t.Fatalf("profile = %+v", u)
	}
	cred, _ := f.accounts.CredentialByID(ctx, u.ID)
	if cred.RoleClaim != domain.RoleUser {
		t.Fatalf("role claim = %s", cred.RoleClaim)
	}
	if keys := f.pub.Keys(); len(keys) != 1 || keys[0] != domain.RKUserCreated {
		t.Fatalf("published %v", keys)
	}

	_, err = f.identity.Register(ctx, RegisterInput{Email: "alice@example.com", Password: "secret1"})
	wantCode(t, err, codes.AlreadyExists)
	_, err = f.identity.Register(ctx, RegisterInput{Email: "not-an-email", Password: "secret1"})
	wantCode(t, err, codes.InvalidArgument)
	_, err = f.identity.Register(ctx, RegisterInput{Email: "bob@example.com", Password: "123"})
	wantCode(t, err, codes.InvalidArgument)
}

func TestLoginLogoutAndRoleCache(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	u, err := f.identity.Register(ctx, RegisterInput{Email: "alice@example.com", Password: "secret1"})
	if err != nil {
		t.Fatal(err)
	}

	_, err = f.identity.Login(ctx, "alice@example.com", "wrong-pass")
	wantCode(t, err, codes.Unauthenticated)
	_, err = f.identity.Login(ctx, "nobody@example.com", "secret1")
	wantCode(t, err, codes.Unauthenticated)

	toks, err := f.identity.Login(ctx, "alice@example.com", "secret1")
	if err != nil {
		t.Fatal(err)
	}
	p, err := f.identity.CurrentSession(ctx, toks.AccessToken)
	if err != nil || p == nil || p.UserID != u.ID {
		t.Fatalf("session = %+v, %v", p, err)
	}

	role, ok, err := f.identity.Role(ctx, u.ID)
	if err != nil || !ok || role != domain.RoleUser {
		t.Fatalf("role = %q %v %v", role, ok, err)
	}
	if !f.mr.Exists("role:" + u.ID) {
		t.Fatal("role was not cached")
	}

	if err := f.identity.Logout(ctx, p); err != nil {
		t.Fatal(err)
	}
	if f.mr.Exists("role:" + u.ID) {
		t.Fatal("cached role survived logout")
	}
	if p, _ := f.identity.CurrentSession(ctx, toks.AccessToken); p != nil {
		t.Fatal("access token still resolves after logout")
	}
	_, err = f.identity.Refresh(ctx, toks.RefreshToken)
	wantCode(t, err, codes.Unauthenticated)
}

func TestRoleOfMissingProfileIsNoRole(t *testing.T) {
	f := newFixture(t, nil)
	role, ok, err := f.identity.Role(context.Background(), "ghost")
	if err != nil || ok || role != "" {
		t.Fatalf("role = %q %v %v, want none without error", role, ok, err)
	}
}

func TestCurrentSessionIgnoresGarbageTokens(t *testing.T) {
	f := newFixture(t, nil)
	for _, tok := range []string{"", "not-a-jwt"} {
		p, err := f.identity.CurrentSession(context.Background(), tok)
		if err != nil || p != nil {
			t.Fatalf("CurrentSession(%q) = %v, %v", tok, p, err)
		}
	}
}

func TestUpdateAccountRequiresReauthAndKeepsRole(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	u, _ := f.identity.Register(ctx, RegisterInput{Email: "alice@example.com", Password: "secret1"})
	if _, err := f.admin.SetRole(ctx, u.ID, domain.RoleOwner); err != nil {
		t.Fatal(err)
	}
	toks, _ := f.identity.Login(ctx, "alice@example.com", "secret1")
	p, _ := f.identity.CurrentSession(ctx, toks.AccessToken)

	_, err := f.identity.UpdateAccount(ctx, p, UpdateAccountInput{CurrentPassword: "nope", DisplayName: "Al"})
	wantCode(t, err, codes.Unauthenticated)

	got, err := f.identity.UpdateAccount(ctx, p, UpdateAccountInput{CurrentPassword: "secret1", DisplayName: "Al", NewPassword: "secret2"})
	if err != nil {
		t.Fatal(err)
	}
	if got.DisplayName != "Al" || got.Role != domain.RoleOwner {
		t.Fatalf("profile = %+v", got)
	}
	if still, err := f.identity.CurrentSession(ctx, toks.AccessToken); err != nil || still != nil {
		t.Fatalf("session survived password change: %+v, %v", still, err)
	}
	if _, err := f.identity.Login(ctx, "alice@example.com", "secret2"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	if _, err := f.identity.Register(ctx, RegisterInput{Email: "alice@example.com", Password: "secret1"}); err != nil {
		t.Fatal(err)
	}
	if err := f.identity.RequestPasswordReset(ctx, "unknown@example.com"); err != nil {
		t.Fatalf("unknown address should succeed silently: %v", err)
	}
	resetToken := func() string {
		t.Helper()
		if err := f.identity.RequestPasswordReset(ctx, "alice@example.com"); err != nil {
			t.Fatal(err)
		}
		last := f.pub.Events[len(f.pub.Events)-1]
		evt, ok := last.Body.(domain.PasswordResetRequested)
		if last.Key != domain.RKPasswordResetRequested || !ok || evt.Token == "" {
			t.Fatalf("reset event = %+v", last)
		}
		return evt.Token
	}
	older := resetToken()
	tok := resetToken()

	wantCode(t, f.identity.ResetPassword(ctx, "bogus", "newsecret"), codes.Unauthenticated)
	wantCode(t, f.identity.ResetPassword(ctx, older, "newsecret"), codes.Unauthenticated)
	if err := f.identity.ResetPassword(ctx, tok, "newsecret"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.identity.Login(ctx, "alice@example.com", "newsecret"); err != nil {
		t.Fatalf("login with reset password: %v", err)
	}

	// a used link cannot set the password again
	wantCode(t, f.identity.ResetPassword(ctx, tok, "another1"), codes.Unauthenticated)
	if _, err := f.identity.Login(ctx, "alice@example.com", "newsecret"); err != nil {
		t.Fatalf("password changed by a replayed link: %v", err)
	}
}
