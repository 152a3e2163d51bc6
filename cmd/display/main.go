package main

import (
	"context"
	"expvar"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/igm/sockjs-go/sockjs"
	"github.com/redis/go-redis/v9"

	"github.com/IntellivanoCode/mwoloenergysystems/internal/config"
	"github.com/IntellivanoCode/mwoloenergysystems/internal/realtime"
	"github.com/IntellivanoCode/mwoloenergysystems/internal/telemetry"
)

func main() {
	cfg := config.Load()
	shutdownTelemetry := telemetry.Setup("display")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	hub := realtime.NewHub()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go realtime.Subscribe(ctx, redisClient, hub)

	mux := http.NewServeMux()
	mux.Handle("/metrics", expvar.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	sockjsHandler := sockjs.NewHandler("/display", sockjs.DefaultOptions, func(session sockjs.Session) {
		client := &realtime.Client{ID: uuid.NewString(), Send: make(chan []byte, 16)}
		hub.Register(client)
		defer hub.Unregister(client)

		go func() {
			for msg := range client.Send {
				_ = session.Send(string(msg))
			}
		}()

		for {
			msg, err := session.Recv()
			if err != nil {
				return
			}
			parsed, ok := realtime.ParseSubscribe([]byte(msg))
			if !ok {
				continue
			}
			if parsed.Action == "unsubscribe" {
				hub.UpdateSubscription(client, realtime.Subscription{})
				continue
			}
			hub.UpdateSubscription(client, realtime.Subscription{
				AgencyID:  parsed.AgencyID,
				ServiceID: parsed.ServiceID,
			})
		}
	})
	mux.Handle("/display/", sockjsHandler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("display listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
