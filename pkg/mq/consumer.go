package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

type ConsumerOptions struct {
	Prefetch int
	// DeadLetter, when set, routes rejected messages to a topic exchange of that name
	// bound to a "<queue>.dlq" queue.
	DeadLetter string
}

type Consumer struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func NewConsumer(url, exchange, queue string, keys []string, opts ConsumerOptions) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	fail := func(format string, err error) (*Consumer, error) {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf(format, err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fail("declare exchange: %w", err)
	}
	args := amqp.Table{}
	if opts.DeadLetter != "" {
		if err := ch.ExchangeDeclare(opts.DeadLetter, "topic", true, false, false, false, nil); err != nil {
			return fail("declare dlx: %w", err)
		}
		dlq, err := ch.QueueDeclare(queue+".dlq", true, false, false, false, nil)
		if err != nil {
			return fail("declare dlq: %w", err)
		}
		if err := ch.QueueBind(dlq.Name, "#", opts.DeadLetter, false, nil); err != nil {
			return fail("bind dlq: %w", err)
		}
		args["x-dead-letter-exchange"] = opts.DeadLetter
	}
	q, err := ch.QueueDeclare(queue, true, false, false, false, args)
	if err != nil {
		return fail("declare queue: %w", err)
	}
	for _, rk := range keys {
		if err := ch.QueueBind(q.Name, rk, exchange, false, nil); err != nil {
			return fail("bind "+rk+": %w", err)
		}
	}
	if opts.Prefetch > 0 {
		if err := ch.Qos(opts.Prefetch, 0, false); err != nil {
			return fail("set qos: %w", err)
		}
	}
	return &Consumer{conn: conn, ch: ch, queue: q.Name}, nil
}

func (c *Consumer) Deliveries(ctx context.Context) (<-chan amqp.Delivery, error) {
	return c.ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
}

func (c *Consumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
