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
	"github.com/Kaiser2484/bida-booking/pkg/mq"
	"github.com/Kaiser2484/bida-booking/pkg/obs"
	"github.com/Kaiser2484/bida-booking/pkg/redisx"
	"github.com/Kaiser2484/bida-booking/services/table-service/internal/cache"
	"github.com/Kaiser2484/bida-booking/services/table-service/internal/projector"
	"github.com/Kaiser2484/bida-booking/services/table-service/internal/repository"
	httpx "github.com/Kaiser2484/bida-booking/services/table-service/internal/transport/http"
)

type Cfg struct {
	PGTableDSN string `envconfig:"PG_TABLE_DSN" required:"true"`
	HTTPAddr   string `envconfig:"TABLE_HTTP_ADDR" default:":3002"`

	RabbitURL string `envconfig:"RABBIT_URL" required:"true"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Short TTL keeps listings fresh even when an invalidation is missed.
	CacheTTLSeconds int `envconfig:"TABLE_CACHE_TTL_SECONDS" default:"30"`
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

	shutdownTracer := obs.InitTracer("table-service")
	defer func() { _ = shutdownTracer(context.Background()) }()

	gdb := must(db.Open(cfg.PGTableDSN))
	repo := repository.NewTableRepo(gdb)
	must(0, repo.Migrate())

	rdb := must(redisx.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB))
	listings := cache.NewListingCache(rdb, time.Duration(cfg.CacheTTLSeconds)*time.Second)
	bcast := projector.NewRedisBroadcaster(rdb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	statusCons := must(mq.NewConsumer(cfg.RabbitURL, events.QueueTableStatus, "table-service", 8))
	defer statusCons.Close()
	proj := projector.NewProjector(repo, listings, bcast, statusCons)
	go func() {
		if err := proj.Run(ctx); err != nil {
			log.Printf("[table] projector stopped: %v", err)
		}
	}()
	log.Println("[table] projector started (table_status_update)")

	r := gin.Default()
	httpx.Register(r, httpx.NewTableHandler(repo, listings, bcast))

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		log.Println("[table] HTTP listening on", cfg.HTTPAddr)
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
	log.Println("[table] stopped")
}
