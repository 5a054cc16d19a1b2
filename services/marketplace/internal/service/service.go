package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"

	"github.com/nawar-b-tek/booking-app/pkg/apperr"
)

// EventPublisher is satisfied by *mq.Publisher.
type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

var (
	tracer   = otel.Tracer("marketplace/service")
	validate = validator.New()
)

// Live feed topics.
const (
	TopicListings = "listings"
	TopicUsers    = "users"
)

func topicSession(userID string) string     { return "session:" + userID }
func topicInbox(email string) string        { return "inbox:" + email }
func topicReservations(email string) string { return "reservations:" + email }

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// validationErr turns validator output into a single client-facing message.
func validationErr(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return apperr.Validation("%s", err.Error())
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "email":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid email", fe.Field()))
		case "min", "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		case "max", "lte":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return apperr.Validation("%s", strings.Join(msgs, "; "))
}

// publish sends an event after a committed write; the write stands if it fails.
func publish(ctx context.Context, pub EventPublisher, key string, v any) {
	if pub == nil {
		return
	}
	if err := pub.PublishJSON(ctx, key, v); err != nil {
		log.Printf("[marketplace] publish %s failed: %v", key, err)
	}
}

type signaler interface {
	Publish(ctx context.Context, topic string) error
}

func signal(ctx context.Context, f signaler, topics ...string) {
	if f == nil {
		return
	}
	for _, t := range topics {
		if err := f.Publish(ctx, t); err != nil {
			log.Printf("[marketplace] feed %s: %v", t, err)
		}
	}
}
