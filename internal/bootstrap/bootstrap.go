// Package bootstrap wires configuration into a running registry: the store,
// the cached loader, the orchestrator and its change notifiers.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/sirupsen/logrus"

	"go-rail-employee-registry/internal/azbus"
	"go-rail-employee-registry/internal/config"
	"go-rail-employee-registry/internal/httpclient"
	"go-rail-employee-registry/internal/loader"
	"go-rail-employee-registry/internal/registry"
	"go-rail-employee-registry/internal/store"
	"go-rail-employee-registry/internal/store/memstore"
	"go-rail-employee-registry/internal/store/mysqlstore"
	"go-rail-employee-registry/internal/store/sqlitestore"
)

type App struct {
	Config  *config.Configuration
	Logger  *logrus.Logger
	Store   store.Store
	Loader  *loader.Loader
	Service *registry.Service
	Bus     *azservicebus.Client

	publisher *azbus.Publisher
}

// OpenStore opens the backend named by STORE_DRIVER.
func OpenStore(ctx context.Context, cfg *config.Configuration) (store.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		return sqlitestore.Open(cfg.Store.SQLitePath, cfg.Store.Collection)
	case config.DriverMySQL:
		return mysqlstore.Open(ctx, cfg.MySQL.StoreConfig(cfg.Store.Collection))
	case config.DriverMemory:
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// New builds the application. A store that cannot be opened does not fail
// startup; the service then reports the data source as unavailable.
func New(ctx context.Context, cfg *config.Configuration) (*App, error) {
	logger := cfg.Logger()
	app := &App{Config: cfg, Logger: logger}

	var notifiers registry.Multi
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, httpclient.NewWebhook(cfg.WebhookURL, cfg.WebhookTimeout))
	}
	if cfg.ServiceBus.Enabled() {
		client, err := azservicebus.NewClientFromConnectionString(cfg.ServiceBus.ConnectionString, nil)
		if err != nil {
			return nil, fmt.Errorf("create service bus client: %w", err)
		}
		pub, err := azbus.NewPublisher(client, cfg.ServiceBus.Topic)
		if err != nil {
			_ = client.Close(ctx)
			return nil, err
		}
		app.Bus = client
		app.publisher = pub
		notifiers = append(notifiers, pub)
	}

	opts := []registry.Option{
		registry.WithLogger(logger),
		registry.WithOrigin(cfg.InstanceID),
	}
	if len(notifiers) > 0 {
		opts = append(opts, registry.WithNotifier(notifiers))
	}

	st, err := OpenStore(ctx, cfg)
	if err != nil {
		logger.WithError(err).WithField("driver", cfg.Store.Driver).Error("[bootstrap] store unavailable")
		app.Service = registry.Unavailable(err, opts...)
		return app, nil
	}

	app.Store = st
	app.Loader = loader.New(st, cfg.CacheTTL, logger)
	app.Service = registry.New(st, app.Loader, opts...)
	logger.WithFields(logrus.Fields{
		"driver":     cfg.Store.Driver,
		"collection": cfg.Store.Collection,
		"instance":   cfg.InstanceID,
	}).Info("[bootstrap] registry ready")
	return app, nil
}

// Close releases the store and the service bus connection.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close(ctx))
	}
	if a.Bus != nil {
		errs = append(errs, a.Bus.Close(ctx))
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
