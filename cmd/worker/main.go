package main

import (
	"context"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/IntellivanoCode/mwoloenergysystems/internal/config"
	"github.com/IntellivanoCode/mwoloenergysystems/internal/jobs"
	"github.com/IntellivanoCode/mwoloenergysystems/internal/mailer"
	"github.com/IntellivanoCode/mwoloenergysystems/internal/pdf"
	"github.com/IntellivanoCode/mwoloenergysystems/internal/postgres"
	"github.com/IntellivanoCode/mwoloenergysystems/internal/telemetry"
)

func main() {
	cfg := config.Load()
	shutdownTelemetry := telemetry.Setup("worker")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	pool, err := postgres.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr}

	client := asynq.NewClient(redisOpt)
	defer client.Close()

	handlers := &jobs.Handlers{
		Billing:    postgres.NewBillingStore(pool),
		CRM:        postgres.NewCRMStore(pool),
		Operations: postgres.NewOperationsStore(pool),
		HR:         postgres.NewHRStore(pool),
		Mailer:     mailer.New(cfg.MailProvider, cfg.MailFrom),
		Renderer:   pdf.NewRenderer(),
		Documents:  pdf.NewDiskStore(cfg.DocumentDir),
		Client:     client,
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			"default": 1,
		},
	})

	scheduler, err := jobs.NewScheduler(redisOpt, cfg.DunningDailyCron, cfg.DunningBackupCron)
	if err != nil {
		log.Fatalf("scheduler setup: %v", err)
	}
	go func() {
		if err := scheduler.Run(); err != nil {
			log.Fatalf("scheduler error: %v", err)
		}
	}()

	log.Printf("worker processing tasks from %s", cfg.RedisAddr)
	if err := server.Run(jobs.NewMux(handlers)); err != nil {
		log.Fatalf("worker error: %v", err)
	}
}
