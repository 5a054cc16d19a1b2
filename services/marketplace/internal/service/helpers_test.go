package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"gorm.io/gorm"

	"github.com/nawar-b-tek/booking-app/pkg/apperr"
	"github.com/nawar-b-tek/booking-app/pkg/auth"
	"github.com/nawar-b-tek/booking-app/pkg/feed"
	"github.com/nawar-b-tek/booking-app/pkg/upload"
	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/domain"
	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/repository"
	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/testenv"
)

type fixture struct {
	db            *gorm.DB
	mr            *miniredis.Miniredis
	feed          *feed.Memory
	pub           *testenv.Publisher
	accounts      *repository.AccountRepo
	sessions      *repository.SessionRepo
	listings      *repository.ListingRepo
	reservations  *repository.ReservationRepo
	notifications *repository.NotificationRepo

	identity *IdentitySvc
	listing  *ListingSvc
	booking  *ReservationSvc
	inbox    *NotificationSvc
	admin    *AdminSvc
	trigger  *AccountTrigger
}

func newFixture(t *testing.T, sink upload.Sink) *fixture {
	t.Helper()
	gdb := testenv.DB(t)
	rdb, mr := testenv.Redis(t)
	f := &fixture{
		db:            gdb,
		mr:            mr,
		feed:          feed.NewMemory(),
		pub:           &testenv.Publisher{},
		accounts:      repository.NewAccountRepo(gdb),
		sessions:      repository.NewSessionRepo(rdb),
		listings:      repository.NewListingRepo(gdb),
		reservations:  repository.NewReservationRepo(gdb),
		notifications: repository.NewNotificationRepo(gdb),
	}
	f.identity = NewIdentitySvc(f.accounts, f.sessions, auth.NewIssuer("test-secret"), f.pub, f.feed, IdentityConfig{})
	f.listing = NewListingSvc(f.listings, sink, f.feed, "TND")
	f.booking = NewReservationSvc(f.listings, f.reservations, f.pub, f.feed, "TND")
	f.inbox = NewNotificationSvc(f.notifications, f.feed)
	f.admin = NewAdminSvc(f.accounts, f.listings, f.sessions, f.feed)
	f.trigger = NewAccountTrigger(f.accounts, f.sessions, f.feed)
	return f
}

// member creates an account with role and an open session, skipping password hashing.
func (f *fixture) member(t *testing.T, email string, role domain.Role) *domain.Principal {
	t.Helper()
	ctx := context.Background()
	cred := &domain.Credential{Email: email, PasswordHash: "-", RoleClaim: role}
	prof := &domain.UserProfile{Email: email, Role: role}
	if err := f.accounts.Create(ctx, cred, prof); err != nil {
		t.Fatalf("create %s: %v", email, err)
	}
	sess := &domain.Session{ID: uuid.NewString(), UserID: cred.ID, Email: email, IssuedAt: time.Now()}
	if err := f.sessions.Save(ctx, sess, time.Hour); err != nil {
		t.Fatal(err)
	}
	return &domain.Principal{UserID: cred.ID, Email: email, SessionID: sess.ID}
}

func (f *fixture) newListing(t *testing.T, owner *domain.Principal, perDay, perMonth float64) *domain.Listing {
	t.Helper()
	l := &domain.Listing{
		Title:         "Sea view flat",
		PricePerDay:   perDay,
		PricePerMonth: perMonth,
		Currency:      "TND",
		OwnerEmail:    owner.Email,
		PosterID:      owner.UserID,
		Bedrooms:      2,
	}
	l.SetPhotoURLs(nil)
	if err := f.listings.Create(context.Background(), l); err != nil {
		t.Fatal(err)
	}
	return l
}

func (f *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(model).Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	return n
}

func wantCode(t *testing.T, err error, code codes.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v, got nil", code)
	}
	if got := apperr.CodeOf(err); got != code {
		t.Fatalf("code = %v (%v), want %v", got, err, code)
	}
}
