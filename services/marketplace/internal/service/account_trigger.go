package service

import (
	"context"
	"log"

	"github.com/nawar-b-tek/booking-app/pkg/apperr"
	"github.com/nawar-b-tek/booking-app/pkg/feed"
	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/domain"
	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/repository"
)

// AccountTrigger provisions the profile of every newly created account and pins its role to user.
type AccountTrigger struct {
	accounts *repository.AccountRepo
	sessions *repository.SessionRepo
	feed     feed.Feed
}

func NewAccountTrigger(accounts *repository.AccountRepo, sessions *repository.SessionRepo, f feed.Feed) *AccountTrigger {
	return &AccountTrigger{accounts: accounts, sessions: sessions, feed: f}
}

// OnUserCreated is idempotent per eventID.
func (t *AccountTrigger) OnUserCreated(ctx context.Context, eventID string, evt domain.UserCreated) error {
	ctx, span := tracer.Start(ctx, "trigger.OnUserCreated")
	defer span.End()

	if eventID == "" || evt.UserID == "" {
		return apperr.Validation("user.created requires an event id and a user id")
	}
	evt.Email = normalizeEmail(evt.Email)
	applied, err := t.accounts.ApplyAccountCreated(ctx, eventID, evt)
	if err != nil {
		return apperr.Provider(err, "provision profile")
	}
	if !applied {
		log.Printf("[trigger] event %s already processed", eventID)
		return nil
	}
	if t.sessions != nil {
		if err := t.sessions.ForgetRole(ctx, evt.UserID); err != nil {
			log.Printf("[trigger] forget role %s: %v", evt.UserID, err)
		}
	}
	signal(ctx, t.feed, topicSession(evt.UserID), TopicUsers)
	return nil
}
