// Package config reads process configuration from the environment, after
// loading any .env files present in the working directory.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"go-rail-employee-registry/internal/auth"
	"go-rail-employee-registry/internal/store"
	"go-rail-employee-registry/internal/store/mysqlstore"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

var DefaultEnvFiles = []string{".env", ".env.local"}

// LoadEnv loads the env files that exist and reports how many did.
func LoadEnv(envFiles []string) (int, error) {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if st, err := os.Stat(file); err == nil && !st.IsDir() {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

type StoreOptions struct {
	Driver     string `env:"STORE_DRIVER" envDefault:"sqlite"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"./data/employees.db"`
	Collection string `env:"EMPLOYEE_COLLECTION" envDefault:"employee_documents"`
}

func (s *StoreOptions) Validate() error {
	switch s.Driver {
	case DriverSQLite, DriverMySQL, DriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be one of sqlite, mysql, memory, got %q", s.Driver)
	}
	if !store.ValidCollection(s.Collection) {
		return fmt.Errorf("EMPLOYEE_COLLECTION %q is not a valid table name", s.Collection)
	}
	if s.Driver == DriverSQLite && s.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH is required when STORE_DRIVER is sqlite")
	}
	return nil
}

type MySQLOptions struct {
	Host            string        `env:"MYSQL_HOST" envDefault:"localhost"`
	User            string        `env:"MYSQL_USER"`
	Password        string        `env:"MYSQL_PASSWORD"`
	Database        string        `env:"MYSQL_DB"`
	MaxOpenConns    int           `env:"MYSQL_MAX_OPEN_CONNS" envDefault:"50"`
	MaxIdleConns    int           `env:"MYSQL_MAX_IDLE_CONNS" envDefault:"25"`
	ConnMaxLifetime time.Duration `env:"MYSQL_CONN_MAX_LIFETIME" envDefault:"1h"`
}

func (m *MySQLOptions) Validate() error {
	if m.Host == "" {
		return fmt.Errorf("MYSQL_HOST is required")
	}
	if m.Database == "" {
		return fmt.Errorf("MYSQL_DB is required")
	}
	return nil
}

func (m *MySQLOptions) StoreConfig(table string) mysqlstore.Config {
	return mysqlstore.Config{
		Host:            m.Host,
		User:            m.User,
		Password:        m.Password,
		Database:        m.Database,
		Table:           table,
		MaxOpenConns:    m.MaxOpenConns,
		MaxIdleConns:    m.MaxIdleConns,
		ConnMaxLifetime: m.ConnMaxLifetime,
	}
}

type ServiceBusOptions struct {
	ConnectionString string `env:"SERVICEBUS_CONNECTION_STRING"`
	Topic            string `env:"SERVICEBUS_TOPIC" envDefault:"employee-changes"`
	Subscription     string `env:"SERVICEBUS_SUBSCRIPTION"`
	SessionPool      int    `env:"SERVICEBUS_SESSION_POOL" envDefault:"20"`
	BatchSize        int    `env:"SERVICEBUS_BATCH_SIZE" envDefault:"5"`
	ProcessPool      int    `env:"SERVICEBUS_PROCESS_POOL" envDefault:"1"`
	RetryDelay       int    `env:"SERVICEBUS_RETRY_DELAY" envDefault:"5"`
}

func (s *ServiceBusOptions) Enabled() bool {
	return s.ConnectionString != ""
}

func (s *ServiceBusOptions) Validate() error {
	if !s.Enabled() {
		return nil
	}
	if s.Topic == "" {
		return fmt.Errorf("SERVICEBUS_TOPIC is required when SERVICEBUS_CONNECTION_STRING is set")
	}
	if s.SessionPool < 0 || s.BatchSize < 0 || s.ProcessPool < 0 || s.RetryDelay < 0 {
		return fmt.Errorf("service bus pool settings must be non-negative")
	}
	return nil
}

type Configuration struct {
	Store      StoreOptions
	MySQL      MySQLOptions
	ServiceBus ServiceBusOptions
	Auth       auth.Credentials

	WebhookURL        string        `env:"CHANGE_WEBHOOK_URL"`
	WebhookTimeout    time.Duration `env:"CHANGE_WEBHOOK_TIMEOUT" envDefault:"10s"`
	CacheTTL          time.Duration `env:"CACHE_TTL" envDefault:"300s"`
	ServerAddr        string        `env:"SERVER_ADDR" envDefault:":8080"`
	DeadLetterAddr    string        `env:"DLQ_SERVER_ADDR" envDefault:":8081"`
	SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"12h"`
	LogLevel          string        `env:"LOG_LEVEL" envDefault:"info"`
	InstanceID        string        `env:"INSTANCE_ID"`
	ImportConcurrency int           `env:"IMPORT_CONCURRENCY" envDefault:"4"`

	logger *logrus.Logger
}

// Load reads the given env files, if present, then the environment.
func Load(envFiles ...string) (*Configuration, error) {
	if len(envFiles) == 0 {
		envFiles = DefaultEnvFiles
	}
	if _, err := LoadEnv(envFiles); err != nil {
		return nil, err
	}

	c := &Configuration{}
	if err := env.Parse(c); err != nil {
		return nil, err
	}
	if c.InstanceID == "" {
		host, _ := os.Hostname()
		c.InstanceID = host + "-" + uuid.NewString()[:8]
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	c.logger = logrus.New()
	c.logger.SetOutput(os.Stderr)
	c.logger.SetLevel(c.LogrusLogLevel())
	c.logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return c, nil
}

func (c *Configuration) Validate() error {
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store configuration error: %w", err)
	}
	if c.Store.Driver == DriverMySQL {
		if err := c.MySQL.Validate(); err != nil {
			return fmt.Errorf("mysql configuration error: %w", err)
		}
	}
	if err := c.ServiceBus.Validate(); err != nil {
		return fmt.Errorf("service bus configuration error: %w", err)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive, got %s", c.CacheTTL)
	}
	if c.ImportConcurrency <= 0 {
		return fmt.Errorf("IMPORT_CONCURRENCY must be positive, got %d", c.ImportConcurrency)
	}
	return nil
}

func (c *Configuration) Logger() *logrus.Logger {
	if c.logger == nil {
		return logrus.StandardLogger()
	}
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch strings.ToLower(c.LogLevel) {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}
