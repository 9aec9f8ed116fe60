package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/go-chi/chi/v5"

	"go-rail-employee-registry/internal/azbus"
	"go-rail-employee-registry/internal/config"
)

func errorAPI(registry *azbus.DeadLetterRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(registry.List())
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := cfg.Logger()

	if !cfg.ServiceBus.Enabled() {
		logger.Fatal("SERVICEBUS_CONNECTION_STRING is not set")
	}
	if cfg.ServiceBus.Subscription == "" {
		logger.Fatal("SERVICEBUS_SUBSCRIPTION is not set")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := azservicebus.NewClientFromConnectionString(cfg.ServiceBus.ConnectionString, nil)
	if err != nil {
		logger.Fatalf("Failed to create Service Bus client: %v", err)
	}
	defer client.Close(context.Background())

	registry := azbus.NewDeadLetterRegistry()

	go func() {
		if err := azbus.RunDeadLetterConsumer(ctx, client, cfg.ServiceBus.Topic, cfg.ServiceBus.Subscription, registry, logger); err != nil {
			logger.Fatalf("Dead-letter consumer stopped: %v", err)
		}
	}()

	r := chi.NewRouter()
	r.Get("/deadletter/errors", errorAPI(registry))
	srv := &http.Server{Addr: cfg.DeadLetterAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logger.Infof("HTTP server listening on %s", cfg.DeadLetterAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("Received interrupt signal. Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
