package bootstrap

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-rail-employee-registry/internal/apperr"
	"go-rail-employee-registry/internal/config"
	"go-rail-employee-registry/internal/registry"
)

func testConfig(driver string) *config.Configuration {
	return &config.Configuration{
		Store:      config.StoreOptions{Driver: driver, Collection: "employee_documents"},
		CacheTTL:   time.Minute,
		InstanceID: "node-a",
		LogLevel:   "silent",
	}
}

func TestNewWithMemoryStore(t *testing.T) {
	ctx := context.Background()
	app, err := New(ctx, testConfig(config.DriverMemory))
	require.NoError(t, err)
	defer app.Close(ctx)

	require.NoError(t, app.Service.Available())
	id, err := app.Service.Add(ctx, registry.AddInput{Name: "A", HRMSID: "X1"})
	require.NoError(t, err)

	recs, err := app.Service.Records(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, id, recs[0].ID)
}

func TestNewWithSQLiteStore(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(config.DriverSQLite)
	cfg.Store.SQLitePath = filepath.Join(t.TempDir(), "employees.db")

	app, err := New(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, app.Service.Available())
	require.NoError(t, app.Close(ctx))
}

func TestNewFallsBackToUnavailable(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(config.DriverMySQL)
	cfg.MySQL = config.MySQLOptions{Host: "127.0.0.1:1", Database: "rail"}

	app, err := New(ctx, cfg)
	require.NoError(t, err)
	defer app.Close(ctx)

	assert.Nil(t, app.Store)
	assert.ErrorIs(t, app.Service.Available(), apperr.ErrDataSourceUnavailable)
	_, err = app.Service.Records(ctx)
	assert.ErrorIs(t, err, apperr.ErrDataSourceUnavailable)
}

func TestLoggerLevelFromConfig(t *testing.T) {
	assert.Equal(t, logrus.PanicLevel, testConfig(config.DriverMemory).LogrusLogLevel())
}
