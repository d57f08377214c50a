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
	"github.com/Kaiser2484/bida-booking/pkg/events"
	"github.com/Kaiser2484/bida-booking/pkg/mq"
	"github.com/Kaiser2484/bida-booking/pkg/obs"
	"github.com/Kaiser2484/bida-booking/pkg/redisx"
	"github.com/Kaiser2484/bida-booking/services/notification-service/internal/notifier"
	"github.com/Kaiser2484/bida-booking/services/notification-service/internal/store"
	httpx "github.com/Kaiser2484/bida-booking/services/notification-service/internal/transport/http"
	"github.com/Kaiser2484/bida-booking/services/notification-service/internal/worker"
)

type Cfg struct {
	HTTPAddr string `envconfig:"NOTIFY_HTTP_ADDR" default:":3005"`

	RabbitURL string `envconfig:"RABBIT_URL" required:"true"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
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

	shutdownTracer := obs.InitTracer("notification-service")
	defer func() { _ = shutdownTracer(context.Background()) }()

	rdb := must(redisx.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB))
	feed := store.NewFeed(rdb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	noteCons := must(mq.NewConsumer(cfg.RabbitURL, events.QueueNotification, "notification-service", 8))
	defer noteCons.Close()
	w := worker.NewWorker(feed, notifier.ConsoleNotifier{}, noteCons)
	go func() {
		if err := w.Run(ctx); err != nil {
			log.Printf("[notify] worker stopped: %v", err)
		}
	}()
	log.Println("[notify] worker started (notification_queue)")

	r := gin.Default()
	httpx.Register(r, httpx.NewFeedHandler(feed))

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		log.Println("[notify] HTTP listening on", cfg.HTTPAddr)
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
	log.Println("[notify] stopped")
}
