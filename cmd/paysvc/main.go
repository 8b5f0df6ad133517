package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	log "github.com/sirupsen/logrus"

	config "github.com/avvvet/draught-services/configs"
	"github.com/avvvet/draught-services/internal/comm"
	gameconfig "github.com/avvvet/draught-services/internal/gamesvc/config"
	"github.com/avvvet/draught-services/internal/gamesvc/db"
	"github.com/avvvet/draught-services/internal/gamesvc/service"
	"github.com/avvvet/draught-services/internal/gamesvc/store"
	natscli "github.com/avvvet/draught-services/internal/nats"
	"github.com/avvvet/draught-services/internal/payment"
	"github.com/avvvet/draught-services/internal/paysvc"
)

const SERVICE_NAME = "pay"

var instanceId string

func init() {
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

func main() {
	cfg, err := gameconfig.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.PaystackSecret == "" {
		log.Fatal("PAYSTACK_SECRET_KEY is required")
	}

	// pg connection
	dbpool, err := db.Connect(cfg.DBUrl)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.ClosePool()
	log.Printf("pg connection established successfully")

	// Connect to NATS
	n, err := natscli.Connect(SERVICE_NAME + "_service_" + instanceId)
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(1)
	}
	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	provider := payment.NewPaystack(cfg.PaystackSecret, cfg.PaystackBaseURL)
	balances := service.NewBalanceService(store.NewPgStore(dbpool), provider)

	b := paysvc.NewBroker(n.Conn, balances)
	sub, err := b.QueueSubscribe(comm.PaymentServiceTopic, SERVICE_NAME)
	if err != nil {
		log.Errorf("Error: unable to subscribe to queue %v", err)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))
	paysvc.NewWebhook(cfg.PaystackSecret, balances).SetRoutes(r)

	server := &http.Server{
		Addr:         ":" + cfg.PayPort,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	sub.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
