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
	cons "github.com/Kaiser2484/bida-booking/services/payment-service/internal/consumer"
	"github.com/Kaiser2484/bida-booking/services/payment-service/internal/repository"
	"github.com/Kaiser2484/bida-booking/services/payment-service/internal/service"
	httpx "github.com/Kaiser2484/bida-booking/services/payment-service/internal/transport/http"
)

type Cfg struct {
	PGPaymentDSN string `envconfig:"PG_PAYMENT_DSN" required:"true"`
	HTTPAddr     string `envconfig:"PAYMENT_HTTP_ADDR" default:":3004"`

	RabbitURL string `envconfig:"RABBIT_URL" required:"true"`
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

	shutdownTracer := obs.InitTracer("payment-service")
	defer func() { _ = shutdownTracer(context.Background()) }()

	gdb := must(db.Open(cfg.PGPaymentDSN))
	repo := repository.NewPaymentRepo(gdb)
	must(0, repo.Migrate())

	pub := must(mq.NewPublisher(cfg.RabbitURL))
	defer pub.Close()

	svc := service.NewPaymentSvc(repo, pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	createCons := must(mq.NewConsumer(cfg.RabbitURL, events.QueuePayment, "payment-service", 8))
	defer createCons.Close()
	cc := cons.NewCreateConsumer(svc, createCons)
	go func() {
		if err := cc.Run(ctx); err != nil {
			log.Printf("[payment] consumer stopped: %v", err)
		}
	}()
	log.Println("[payment] consumer started (payment_queue)")

	r := gin.Default()
	httpx.Register(r, httpx.NewPaymentHandler(svc))

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		log.Println("[payment] HTTP listening on", cfg.HTTPAddr)
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
	log.Println("[payment] stopped")
}
