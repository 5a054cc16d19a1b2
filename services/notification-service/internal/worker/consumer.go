package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nawar-b-tek/booking-app/pkg/mq"
	"github.com/nawar-b-tek/booking-app/services/notification-service/internal/events"
	"github.com/nawar-b-tek/booking-app/services/notification-service/internal/notifier"
)

// errPoison marks deliveries that can never succeed and go to the dead-letter queue.
var errPoison = errors.New("poison message")

type Config struct {
	// AppBaseURL prefixes links placed in messages, e.g. the password reset page.
	AppBaseURL string
}

type DeliverySource interface {
	Deliveries(ctx context.Context) (<-chan amqp.Delivery, error)
}

type Consumer struct {
	cfg      Config
	source   DeliverySource
	notifier notifier.Notifier
}

func NewConsumer(cfg Config, src DeliverySource, n notifier.Notifier) *Consumer {
	cfg.AppBaseURL = strings.TrimRight(cfg.AppBaseURL, "/")
	return &Consumer{cfg: cfg, source: src, notifier: n}
}

func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.source.Deliveries(ctx)
	if err != nil {
		return fmt.Errorf("consume failed: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			err := c.handleDelivery(ctx, d.RoutingKey, d.Body)
			switch {
			case errors.Is(err, errPoison):
				log.Printf("[notify] drop key=%s err=%v -> dlq", d.RoutingKey, err)
				_ = d.Nack(false, false)
			case err != nil:
				log.Printf("[notify] handle error key=%s err=%v -> requeue", d.RoutingKey, err)
				_ = d.Nack(false, true)
			default:
				_ = d.Ack(false)
			}
		}
	}
}

func decode[T any](body []byte) (T, error) {
	_, v, err := mq.DecodeEnvelope[T](body)
	if err != nil {
		return v, fmt.Errorf("%w: %v", errPoison, err)
	}
	return v, nil
}

func (c *Consumer) handleDelivery(ctx context.Context, key string, body []byte) error {
	switch key {
	case events.RKUserCreated:
		ev, err := decode[events.UserCreated](body)
		if err != nil {
			return err
		}
		name := ev.DisplayName
		if name == "" {
			name = ev.Email
		}
		return c.notifier.Notify(ctx, ev.Email, "Welcome",
			fmt.Sprintf("Hi %s, your account is ready. You can browse listings and request stays right away.", name))

	case events.RKPasswordResetRequested:
		ev, err := decode[events.PasswordResetRequested](body)
		if err != nil {
			return err
		}
		link := fmt.Sprintf("%s/reset-password?token=%s", c.cfg.AppBaseURL, url.QueryEscape(ev.Token))
		return c.notifier.Notify(ctx, ev.Email, "Reset your password",
			fmt.Sprintf("Use this link to choose a new password: %s", link))

	case events.RKReservationRequested:
		ev, err := decode[events.Reservation](body)
		if err != nil {
			return err
		}
		return c.notifier.Notify(ctx, ev.OwnerEmail, "New reservation request",
			fmt.Sprintf("%s asked to book %q for %s (%.2f %s).",
				ev.RenterEmail, ev.ListingTitle, notifier.StayRange(ev.StartDate, ev.EndDate), ev.TotalPrice, strings.ToUpper(ev.Currency)))

	case events.RKReservationApproved, events.RKReservationDenied:
		ev, err := decode[events.Reservation](body)
		if err != nil {
			return err
		}
		subject := "Reservation approved"
		if key == events.RKReservationDenied {
			subject = "Reservation denied"
		}
		return c.notifier.Notify(ctx, ev.RenterEmail, subject,
			fmt.Sprintf("Your request for %q (%s) was %s.", ev.ListingTitle, notifier.StayRange(ev.StartDate, ev.EndDate), ev.Status))

	default:
		log.Printf("[notify] skip unknown key=%s", key)
	}
	return nil
}

// Open declares the worker queue on exchange and binds it to every key in events.Bindings.
func Open(rabbitURL, exchange, queue string, prefetch int) (*mq.Consumer, error) {
	return mq.NewConsumer(rabbitURL, exchange, queue, events.Bindings, mq.ConsumerOptions{
		Prefetch:   prefetch,
		DeadLetter: queue + ".dlx",
	})
}
