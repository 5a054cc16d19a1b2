package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/nawar-b-tek/booking-app/pkg/config"
	"github.com/nawar-b-tek/booking-app/pkg/db"
	"github.com/nawar-b-tek/booking-app/pkg/feed"
	"github.com/nawar-b-tek/booking-app/pkg/mq"
	"github.com/nawar-b-tek/booking-app/pkg/obs"
	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/consumer"
	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/domain"
	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/repository"
	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/service"
)

func must[T any](v T, err error) T {
	if err != nil {
		log.Fatal(err)
	}
	return v
}

func main() {
	cfg := must(config.Load())

	shutdownTracer, err := obs.InitTracer("account-trigger", cfg.OTLPEndpoint, cfg.Env)
	if err != nil {
		log.Printf("[trigger] tracing disabled: %v", err)
		shutdownTracer = func(context.Context) error { return nil }
	}

	gdb := must(db.Open(cfg.PGMarketDSN))
	must(0, repository.Migrate(gdb))

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	defer rdb.Close()

	trigger := service.NewAccountTrigger(
		repository.NewAccountRepo(gdb),
		repository.NewSessionRepo(rdb),
		feed.NewRedis(rdb, "marketplace:feed:"),
	)

	cons := must(mq.NewConsumer(cfg.RabbitURL, cfg.MarketExchange, cfg.AccountTriggerQueue,
		[]string{domain.RKUserCreated},
		mq.ConsumerOptions{Prefetch: 8, DeadLetter: cfg.MarketExchange + ".dlx"},
	))
	defer cons.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.NewAccountConsumer(trigger, cons).Run(ctx); err != nil {
			log.Printf("[trigger] run error: %v", err)
		}
	}()
	log.Printf("[trigger] consuming %s on %s", domain.RKUserCreated, cfg.AccountTriggerQueue)

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-ch:
	case <-done:
	}
	cancel()
	sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer scancel()
	_ = shutdownTracer(sctx)
	log.Println("[trigger] stopped")
}
