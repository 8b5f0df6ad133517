package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	log "github.com/sirupsen/logrus"

	config "github.com/avvvet/draught-services/configs"
	"github.com/avvvet/draught-services/internal/gamesvc/broker"
	gameconfig "github.com/avvvet/draught-services/internal/gamesvc/config"
	"github.com/avvvet/draught-services/internal/gamesvc/db"
	"github.com/avvvet/draught-services/internal/gamesvc/service"
	"github.com/avvvet/draught-services/internal/gamesvc/store"
	natscli "github.com/avvvet/draught-services/internal/nats"
)

const SERVICE_NAME = "ctl"

// games expired per sweep
const sweepBatch = 100

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

	gameService := service.NewGameService(store.NewPgStore(dbpool), broker.NewPublisher(n.Conn), service.GameConfig{
		MinBet:         cfg.MinBet,
		CommissionRate: cfg.CommissionRate,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	log.Infof("%s service expiring waiting games older than %s every %s", SERVICE_NAME, cfg.StaleGameAfter, cfg.SweepInterval)
	for {
		select {
		case <-ctx.Done():
			log.Infof("%s service gracefully stopped", SERVICE_NAME)
			return
		case <-ticker.C:
			sweep(ctx, gameService, cfg.StaleGameAfter)
		}
	}
}

// sweep cancels stale waiting games until a batch comes back short.
func sweep(ctx context.Context, games *service.GameService, olderThan time.Duration) {
	for {
		n, err := games.ExpireStaleGames(ctx, olderThan, sweepBatch)
		if err != nil {
			log.Errorf("ExpireStaleGames error: %v", err)
			return
		}
		if n > 0 {
			log.Infof("cancelled %d stale games", n)
		}
		if n < sweepBatch {
			return
		}
	}
}
