package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Kaiser2484/bida-booking/pkg/config"
	"github.com/Kaiser2484/bida-booking/pkg/db"
	"github.com/Kaiser2484/bida-booking/pkg/events"
	"github.com/Kaiser2484/bida-booking/pkg/lock"
	"github.com/Kaiser2484/bida-booking/pkg/mq"
	"github.com/Kaiser2484/bida-booking/pkg/obs"
	"github.com/Kaiser2484/bida-booking/pkg/redisx"
	cons "github.com/Kaiser2484/bida-booking/services/booking-service/internal/consumer"
	"github.com/Kaiser2484/bida-booking/services/booking-service/internal/repository"
	"github.com/Kaiser2484/bida-booking/services/booking-service/internal/service"
	httpx "github.com/Kaiser2484/bida-booking/services/booking-service/internal/transport/http"
)

type Cfg struct {
	PGBookingDSN string `envconfig:"PG_BOOKING_DSN" required:"true"`
	HTTPAddr     string `envconfig:"BOOKING_HTTP_ADDR" default:":3003"`

	RabbitURL string `envconfig:"RABBIT_URL" required:"true"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// TTL bounds unavailability if a holder crashes mid-critical-section;
	// keep it well above the expected lock hold time.
	LockTTLSeconds int `envconfig:"SLOT_LOCK_TTL_SECONDS" default:"30"`
}

func must[T any](v T, err error) T {
	if err != nil {
		log.Fatal(err)
	}
	return v
}

func main() {
	var cfg Cfg
	must(0, config.Load(&cfg))

	shutdownTracer := obs.InitTracer("booking-service")
	defer func() { _ = shutdownTracer(context.Background()) }()

	gdb := must(db.Open(cfg.PGBookingDSN))
	repo := repository.NewBookingRepo(gdb)
	must(0, repo.Migrate())

	rdb := must(redisx.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB))
	locks := lock.NewStore(rdb, time.Duration(cfg.LockTTLSeconds)*time.Second)

	pub := must(mq.NewPublisher(cfg.RabbitURL))
	defer pub.Close()

	svc := service.NewBookingSvc(repo, locks, pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	payCons := must(mq.NewConsumer(cfg.RabbitURL, events.QueueBooking, "booking-service", 8))
	defer payCons.Close()
	pc := cons.NewPaymentConsumer(repo, pub, payCons)
	go func() {
		if err := pc.Run(ctx); err != nil {
			log.Printf("[booking] consumer stopped: %v", err)
		}
	}()
	log.Println("[booking] consumer started (booking_events)")

	r := gin.Default()
	httpx.Register(r, httpx.NewBookingHandler(svc))

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		log.Println("[booking] HTTP listening on", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	_ = srv.Shutdown(shutdownCtx)
	log.Println("[booking] stopped")
}
