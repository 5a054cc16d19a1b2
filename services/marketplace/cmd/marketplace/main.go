package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/nawar-b-tek/booking-app/pkg/auth"
	"github.com/nawar-b-tek/booking-app/pkg/config"
	"github.com/nawar-b-tek/booking-app/pkg/db"
	"github.com/nawar-b-tek/booking-app/pkg/feed"
	"github.com/nawar-b-tek/booking-app/pkg/mq"
	"github.com/nawar-b-tek/booking-app/pkg/obs"
	"github.com/nawar-b-tek/booking-app/pkg/upload"
	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/handlers"
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

	shutdownTracer, err := obs.InitTracer("marketplace", cfg.OTLPEndpoint, cfg.Env)
	if err != nil {
		log.Printf("[marketplace] tracing disabled: %v", err)
		shutdownTracer = func(context.Context) error { return nil }
	}

	// DB
	gdb := must(db.Open(cfg.PGMarketDSN))
	must(0, repository.Migrate(gdb))

	// Redis
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	defer rdb.Close()
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("[marketplace] redis ping: %v", err)
	}
	live := feed.NewRedis(rdb, "marketplace:feed:")

	pub := must(mq.NewPublisher(cfg.RabbitURL, cfg.MarketExchange))
	defer pub.Close()

	var sink upload.Sink
	if cfg.CloudinaryCloudName != "" {
		sink = must(upload.NewCloudinary(upload.CloudinaryConfig{
			BaseURL:   cfg.UploadBaseURL,
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryFolder,
		}, nil))
	} else {
		log.Println("[marketplace] CLOUDINARY_CLOUD_NAME not set; listings with photos will be refused")
	}

	accounts := repository.NewAccountRepo(gdb)
	sessions := repository.NewSessionRepo(rdb)
	listings := repository.NewListingRepo(gdb)
	reservations := repository.NewReservationRepo(gdb)
	notifications := repository.NewNotificationRepo(gdb)

	identity := service.NewIdentitySvc(accounts, sessions, auth.NewIssuer(cfg.JWTSecret), pub, live, service.IdentityConfig{
		AccessTTL:  cfg.AccessTTL(),
		RefreshTTL: cfg.RefreshTTL(),
		ResetTTL:   cfg.ResetTTL(),
	})
	adminSvc := service.NewAdminSvc(accounts, listings, sessions, live)
	if err := adminSvc.BootstrapAdmin(context.Background(), cfg.BootstrapAdminEmail); err != nil {
		log.Printf("[marketplace] bootstrap admin: %v", err)
	}

	r := handlers.NewRouter(gin.Default(), handlers.Services{
		Identity:      identity,
		Listings:      service.NewListingSvc(listings, sink, live, cfg.DefaultCurrency),
		Reservations:  service.NewReservationSvc(listings, reservations, pub, live, cfg.DefaultCurrency),
		Notifications: service.NewNotificationSvc(notifications, live),
		Admin:         adminSvc,
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Println("[marketplace] http listening on", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[marketplace] shutdown: %v", err)
	}
	_ = shutdownTracer(ctx)
	log.Println("[marketplace] stopped")
}
