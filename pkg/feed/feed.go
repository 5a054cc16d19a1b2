// Package feed signals "something under this topic changed" to live subscribers.
// Signals carry no payload; watchers re-read the authoritative store on each one.
package feed

import (
	"context"
	"log"
)

type Feed interface {
	Publish(ctx context.Context, topic string) error
	// Subscribe returns a channel that receives at least one value after every
	// Publish on any of the topics. It is closed when ctx is done.
	Subscribe(ctx context.Context, topics ...string) (<-chan struct{}, error)
}

// Watch emits load's result once, then again after every change signal on topics.
// The returned channel is closed when ctx is done. A failed reload is logged and the
// previous value stands.
func Watch[T any](ctx context.Context, f Feed, load func(context.Context) (T, error), topics ...string) (<-chan T, error) {
	signals, err := f.Subscribe(ctx, topics...)
	if err != nil {
		return nil, err
	}
	first, err := load(ctx)
	if err != nil {
		return nil, err
	}
	out := make(chan T, 1)
	out <- first
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-signals:
				if !ok {
					return
				}
				v, err := load(ctx)
				if err != nil {
					if ctx.Err() == nil {
						log.Printf("[feed] reload %v: %v", topics, err)
					}
					continue
				}
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// notify does a non-blocking send; a pending signal already covers this one.
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
