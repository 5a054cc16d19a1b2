package consumer

import (
	"context"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
	"google.golang.org/grpc/codes"

	"github.com/nawar-b-tek/booking-app/pkg/apperr"
	"github.com/nawar-b-tek/booking-app/pkg/mq"
	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/domain"
)

type AccountHandler interface {
	OnUserCreated(ctx context.Context, eventID string, evt domain.UserCreated) error
}

type DeliverySource interface {
	Deliveries(ctx context.Context) (<-chan amqp.Delivery, error)
}

// Acknowledger is the ack side of a delivery; amqp.Delivery satisfies it.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

type AccountConsumer struct {
	handler AccountHandler
	source  DeliverySource
}

func NewAccountConsumer(h AccountHandler, src DeliverySource) *AccountConsumer {
	return &AccountConsumer{handler: h, source: src}
}

// Run consumes until ctx is done or the delivery channel closes.
func (c *AccountConsumer) Run(ctx context.Context) error {
	msgs, err := c.source.Deliveries(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			c.Handle(ctx, d.RoutingKey, d.Body, &d)
		}
	}
}

// Handle processes one message. Malformed payloads are dead-lettered, store failures requeued.
func (c *AccountConsumer) Handle(ctx context.Context, key string, body []byte, ack Acknowledger) {
	if key != domain.RKUserCreated {
		_ = ack.Ack(false)
		return
	}
	env, evt, err := mq.DecodeEnvelope[domain.UserCreated](body)
	if err != nil {
		log.Printf("[account-consumer] unmarshal error: %v", err)
		_ = ack.Nack(false, false)
		return
	}
	if err := c.handler.OnUserCreated(ctx, env.ID, evt); err != nil {
		if apperr.Is(err, codes.InvalidArgument) {
			log.Printf("[account-consumer] invalid event %s: %v", env.ID, err)
			_ = ack.Nack(false, false)
			return
		}
		log.Printf("[account-consumer] provision error: %v", err)
		_ = ack.Nack(false, true)
		return
	}
	_ = ack.Ack(false)
}
