package service

import (
	"context"
	"errors"

	"github.com/nawar-b-tek/booking-app/pkg/apperr"
	"github.com/nawar-b-tek/booking-app/pkg/feed"
	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/domain"
	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/repository"
)

type NotificationSvc struct {
	repo *repository.NotificationRepo
	feed feed.Feed
}

func NewNotificationSvc(repo *repository.NotificationRepo, f feed.Feed) *NotificationSvc {
	return &NotificationSvc{repo: repo, feed: f}
}

// Unread lists unread notifications for email, newest first. An empty email has none.
func (s *NotificationSvc) Unread(ctx context.Context, email string) ([]domain.Notification, error) {
	email = normalizeEmail(email)
	if email == "" {
		return []domain.Notification{}, nil
	}
	out, err := s.repo.Unread(ctx, email)
	if err != nil {
		return nil, apperr.Provider(err, "load notifications")
	}
	return out, nil
}

func (s *NotificationSvc) UnreadCount(ctx context.Context, email string) (int64, error) {
	email = normalizeEmail(email)
	if email == "" {
		return 0, nil
	}
	n, err := s.repo.CountUnread(ctx, email)
	if err != nil {
		return 0, apperr.Provider(err, "count notifications")
	}
	return n, nil
}

// WatchUnread pushes the unread list now and after every inbox change. Cancelling ctx
// ends the sequence; calling again restarts it.
func (s *NotificationSvc) WatchUnread(ctx context.Context, email string) (<-chan []domain.Notification, error) {
	email = normalizeEmail(email)
	ch, err := feed.Watch(ctx, s.feed, func(ctx context.Context) ([]domain.Notification, error) {
		return s.Unread(ctx, email)
	}, topicInbox(email))
	if err != nil {
		return nil, apperr.Provider(err, "watch notifications")
	}
	return ch, nil
}

func (s *NotificationSvc) WatchUnreadCount(ctx context.Context, email string) (<-chan int64, error) {
	email = normalizeEmail(email)
	ch, err := feed.Watch(ctx, s.feed, func(ctx context.Context) (int64, error) {
		return s.UnreadCount(ctx, email)
	}, topicInbox(email))
	if err != nil {
		return nil, apperr.Provider(err, "watch notification count")
	}
	return ch, nil
}

// MarkAllRead flips every unread notification for email as one batch. Repeating it is a no-op.
func (s *NotificationSvc) MarkAllRead(ctx context.Context, email string) (int64, error) {
	email = normalizeEmail(email)
	if email == "" {
		return 0, nil
	}
	n, err := s.repo.MarkAllRead(ctx, email)
	if err != nil {
		return 0, apperr.Provider(err, "mark notifications read")
	}
	if n > 0 {
		signal(ctx, s.feed, topicInbox(email))
	}
	return n, nil
}

// MarkRead flips one notification addressed to the caller.
func (s *NotificationSvc) MarkRead(ctx context.Context, p *domain.Principal, id string) error {
	if p == nil {
		return apperr.Unauthenticated("not signed in")
	}
	email := normalizeEmail(p.Email)
	err := s.repo.MarkRead(ctx, id, email)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("notification not found")
	}
	if err != nil {
		return apperr.Provider(err, "mark notification read")
	}
	signal(ctx, s.feed, topicInbox(email))
	return nil
}
