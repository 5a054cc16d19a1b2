package feed

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func waitSignal(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("no signal received")
	}
}

func TestMemoryPublishReachesSubscriber(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := m.Subscribe(ctx, "a", "b")
	if err != nil {
		t.Fatal(err)
	}
	_ = m.Publish(ctx, "b")
	waitSignal(t, ch)

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			// a queued signal may still be drained before close
			<-ch
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestRedisPublishReachesSubscriber(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	f := NewRedis(rdb, "test:")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := f.Subscribe(ctx, "listings")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Publish(ctx, "listings"); err != nil {
		t.Fatal(err)
	}
	waitSignal(t, ch)
}

func TestRedisSubscribeConfirmsEveryTopic(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	f := NewRedis(rdb, "test:")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := f.Subscribe(ctx, "listings", "users", "inbox:a@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if got := mr.PubSubNumSub("test:inbox:a@example.com")["test:inbox:a@example.com"]; got != 1 {
		t.Fatalf("subscribers on last topic = %d, want 1", got)
	}
	if err := f.Publish(ctx, "inbox:a@example.com"); err != nil {
		t.Fatal(err)
	}
	waitSignal(t, ch)
}

func TestWatchReloadsOnSignal(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var n atomic.Int32
	load := func(context.Context) (int32, error) { return n.Add(1), nil }

	out, err := Watch(ctx, m, load, "t")
	if err != nil {
		t.Fatal(err)
	}
	if v := <-out; v != 1 {
		t.Fatalf("first = %d, want 1", v)
	}
	_ = m.Publish(ctx, "t")
	select {
	case v := <-out:
		if v != 2 {
			t.Fatalf("second = %d, want 2", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no reload after publish")
	}

	cancel()
	for range out {
	}
}
