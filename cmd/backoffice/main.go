package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/IntellivanoCode/mwoloenergysystems/internal/config"
	"github.com/IntellivanoCode/mwoloenergysystems/internal/directory"
	"github.com/IntellivanoCode/mwoloenergysystems/internal/httpapi"
	"github.com/IntellivanoCode/mwoloenergysystems/internal/postgres"
	"github.com/IntellivanoCode/mwoloenergysystems/internal/realtime"
	"github.com/IntellivanoCode/mwoloenergysystems/internal/telemetry"
)

func main() {
	cfg := config.Load()
	shutdownTelemetry := telemetry.Setup("backoffice")
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

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer asynqClient.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	identityStore := postgres.NewIdentityStore(pool)
	directoryStore := postgres.NewDirectoryStore(pool)
	settings, err := directory.LoadSettings(context.Background(), directoryStore)
	if err != nil {
		log.Fatalf("load settings: %v", err)
	}

	handler := &httpapi.Handler{
		Directory:    directoryStore,
		Settings:     settings,
		Identity:     identityStore,
		CRM:          postgres.NewCRMStore(pool),
		Billing:      postgres.NewBillingStore(pool),
		Operations:   postgres.NewOperationsStore(pool),
		HR:           postgres.NewHRStore(pool),
		Tickets:      postgres.NewQueueStore(pool),
		Appointments: postgres.NewAppointmentStore(pool),

		Jobs:   asynqClient,
		Events: realtime.NewPublisher(redisClient),

		SessionTTL:     cfg.SessionTTL,
		SendCheckDelay: cfg.SendCheckDelay,
	}

	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		IPPerMinute:     cfg.RateLimitPerMinute,
		IPBurst:         cfg.RateLimitBurst,
		AgencyPerMinute: cfg.AgencyRateLimitPerMinute,
		AgencyBurst:     cfg.AgencyRateLimitBurst,
	})
	chain := httpapi.AuthMiddleware(identityStore, handler.Routes())
	chain = limiter.Middleware(httpapi.LoggingMiddleware(chain))
	otelHandler := otelhttp.NewHandler(chain, "backoffice")

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("backoffice %s listening on %s", settings.Get("company_name", "Mwolo Energy"), server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
