package main

import (
	"context"
	"database/sql"
	"log"
	"os/signal"
	"syscall"

	userservice "github.com/goliatone/user-service"
	"github.com/goliatone/user-service/broker"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

func main() {
	_ = godotenv.Load()

	cfg := userservice.NewConfigFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if cfg.ActivityQueueURL == "" {
		log.Fatal("ACTIVITY_QUEUE_URL is required")
	}

	logger := userservice.DefaultLogger("WORKER")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DatabaseDSN)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	repo := userservice.NewRepositoryManager(db, logger)
	repo.MustValidate()

	guard := userservice.NewIdempotencyGuard(
		repo.ProcessedEvents(),
		logger,
		userservice.WithGuardCacheTTL(cfg.IdempotencyCacheTTL),
	)

	handler := userservice.NewActivityEventHandler(repo.Users(), guard, logger)

	reaper := userservice.NewReaper(
		repo.ProcessedEvents(),
		logger,
		userservice.WithReaperRetention(cfg.IdempotencyRetention),
	)
	if err := reaper.Start(); err != nil {
		log.Fatalf("could not start reaper: %v", err)
	}
	defer reaper.Stop()

	awsCfg, err := broker.LoadAWSConfig(ctx, cfg.AWSRegion)
	if err != nil {
		log.Fatalf("could not load AWS config: %v", err)
	}

	consumer := broker.NewConsumer(broker.NewSQSClient(awsCfg), cfg.ActivityQueueURL, logger)

	logger.Info("worker consuming %s", cfg.ActivityQueueURL)
	if err := consumer.Run(ctx, handler.Handle); err != nil && ctx.Err() == nil {
		log.Fatalf("consumer stopped: %v", err)
	}
}
