package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-rail-employee-registry/internal/azbus"
	"go-rail-employee-registry/internal/bootstrap"
	"go-rail-employee-registry/internal/config"
	"go-rail-employee-registry/internal/httpapi"
	"go-rail-employee-registry/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := cfg.Logger()

	if err := cfg.Auth.Validate(); err != nil {
		logger.Fatalf("Refusing to start without credentials: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to start registry: %v", err)
	}

	var receiver *azbus.SessionReceiver
	// Remote changes only matter when there is a local cache to drop.
	if app.Bus != nil && app.Loader != nil && cfg.ServiceBus.Subscription != "" {
		receiver = azbus.NewSessionReceiver(ctx, app.Bus, cfg.ServiceBus.Topic, cfg.ServiceBus.Subscription, cfg.InstanceID, app.Loader, logger, &azbus.SessionReceiverOptions{
			SessionPool: cfg.ServiceBus.SessionPool,
			BatchSize:   cfg.ServiceBus.BatchSize,
			ProcessPool: cfg.ServiceBus.ProcessPool,
			RetryDelay:  cfg.ServiceBus.RetryDelay,
		})
		go receiver.RunDispatcher()
	}

	api := httpapi.New(app.Service, session.NewStore(cfg.SessionTTL), cfg.Auth, logger)
	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("HTTP server listening on %s", cfg.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("Received interrupt signal. Initiating graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("HTTP server shutdown")
	}

	cancel()
	if receiver != nil {
		<-receiver.Done()
	}

	if err := app.Close(shutdownCtx); err != nil {
		logger.WithError(err).Error("Closing resources")
	}
	logger.Info("All services shut down completely.")
}
