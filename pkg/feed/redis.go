package feed

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// Redis fans change signals out across API instances over redis pub/sub.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

func NewRedis(rdb *redis.Client, prefix string) *Redis {
	return &Redis{rdb: rdb, prefix: prefix}
}

func (r *Redis) channel(topic string) string { return r.prefix + topic }

func (r *Redis) Publish(ctx context.Context, topic string) error {
	return r.rdb.Publish(ctx, r.channel(topic), "changed").Err()
}

func (r *Redis) Subscribe(ctx context.Context, topics ...string) (<-chan struct{}, error) {
	chans := make([]string, len(topics))
	for i, t := range topics {
		chans[i] = r.channel(t)
	}
	ps := r.rdb.Subscribe(ctx, chans...)
	// every channel must be confirmed before returning or a publish right after return can be missed
	pending := false
	for confirmed := 0; confirmed < len(chans); {
		m, err := ps.Receive(ctx)
		if err != nil {
			_ = ps.Close()
			return nil, fmt.Errorf("subscribe %v: %w", topics, err)
		}
		switch m := m.(type) {
		case *redis.Subscription:
			if m.Kind == "subscribe" {
				confirmed++
			}
		case *redis.Message:
			pending = true
		}
	}
	out := make(chan struct{}, 1)
	if pending {
		notify(out)
	}
	msgs := ps.Channel()
	go func() {
		defer close(out)
		defer ps.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				notify(out)
			}
		}
	}()
	return out, nil
}
