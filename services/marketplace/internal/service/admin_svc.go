package service

import (
	"context"
	"errors"
	"log"
	"math"

	"github.com/nawar-b-tek/booking-app/pkg/apperr"
	"github.com/nawar-b-tek/booking-app/pkg/feed"
	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/domain"
	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/repository"
)

type AdminSvc struct {
	accounts *repository.AccountRepo
	listings *repository.ListingRepo
	sessions *repository.SessionRepo
	feed     feed.Feed
}

func NewAdminSvc(accounts *repository.AccountRepo, listings *repository.ListingRepo, sessions *repository.SessionRepo, f feed.Feed) *AdminSvc {
	return &AdminSvc{accounts: accounts, listings: listings, sessions: sessions, feed: f}
}

type Stats struct {
	TotalListings    int64 `json:"totalAds"`
	BookedListings   int64 `json:"bookedAds"`
	TotalUsers       int64 `json:"totalUsers"`
	BookedPercentage int   `json:"bookedPercentage"`
}

func (s *AdminSvc) Stats(ctx context.Context) (Stats, error) {
	total, booked, err := s.listings.Counts(ctx)
	if err != nil {
		return Stats{}, apperr.Provider(err, "count listings")
	}
	users, err := s.accounts.CountProfiles(ctx)
	if err != nil {
		return Stats{}, apperr.Provider(err, "count users")
	}
	st := Stats{TotalListings: total, BookedListings: booked, TotalUsers: users}
	if total > 0 {
		st.BookedPercentage = int(math.Round(float64(booked) / float64(total) * 100))
	}
	return st, nil
}

// WatchStats recomputes the dashboard after every listing or user change.
func (s *AdminSvc) WatchStats(ctx context.Context) (<-chan Stats, error) {
	ch, err := feed.Watch(ctx, s.feed, s.Stats, TopicListings, TopicUsers)
	if err != nil {
		return nil, apperr.Provider(err, "watch stats")
	}
	return ch, nil
}

type UserPage struct {
	Items []domain.UserProfile `json:"items"`
	Total int64                `json:"total"`
}

func (s *AdminSvc) ListUsers(ctx context.Context, page, size int, query string, role domain.Role) (*UserPage, error) {
	if role != "" && !role.Valid() {
		return nil, apperr.Validation("unknown role %q", role)
	}
	items, total, err := s.accounts.List(ctx, page, size, query, role)
	if err != nil {
		return nil, apperr.Provider(err, "list users")
	}
	return &UserPage{Items: items, Total: total}, nil
}

// SetRole is the only path that grants owner or admin.
func (s *AdminSvc) SetRole(ctx context.Context, userID string, role domain.Role) (*domain.UserProfile, error) {
	ctx, span := tracer.Start(ctx, "admin.SetRole")
	defer span.End()

	if !role.Valid() {
		return nil, apperr.Validation("unknown role %q", role)
	}
	prof, err := s.accounts.SetRole(ctx, userID, role)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, apperr.Provider(err, "set role")
	}
	if err := s.sessions.ForgetRole(ctx, userID); err != nil {
		log.Printf("[admin] forget role %s: %v", userID, err)
	}
	signal(ctx, s.feed, topicSession(userID), TopicUsers)
	return prof, nil
}

// DeleteUser removes the profile and credential and ends the user's sessions.
func (s *AdminSvc) DeleteUser(ctx context.Context, actor *domain.Principal, userID string) error {
	ctx, span := tracer.Start(ctx, "admin.DeleteUser")
	defer span.End()

	if actor != nil && actor.UserID == userID {
		return apperr.Validation("admins cannot delete their own account")
	}
	if _, err := s.accounts.ProfileByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("user not found")
		}
		return apperr.Provider(err, "load user")
	}
	if err := s.accounts.Delete(ctx, userID); err != nil {
		return apperr.Provider(err, "delete user")
	}
	if err := s.sessions.DeleteAllForUser(ctx, userID); err != nil {
		return apperr.Provider(err, "end sessions")
	}
	signal(ctx, s.feed, topicSession(userID), TopicUsers)
	return nil
}

// BootstrapAdmin promotes an existing account named in operator configuration.
func (s *AdminSvc) BootstrapAdmin(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return nil
	}
	prof, err := s.accounts.ProfileByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		log.Printf("[admin] bootstrap admin %s has no account yet", email)
		return nil
	}
	if err != nil {
		return err
	}
	if prof.Role == domain.RoleAdmin {
		return nil
	}
	_, err = s.SetRole(ctx, prof.ID, domain.RoleAdmin)
	return err
}
