// Package mysqlstore keeps the employee collection in a MySQL table with a
// JSON column per document.
package mysqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	myConfig "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"go-rail-employee-registry/internal/dto"
	"go-rail-employee-registry/internal/store"
)

type Config struct {
	Host     string
	User     string
	Password string
	Database string
	Table    string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN formats the connection string. Host defaults to port 3306.
func (c Config) DSN() string {
	addr := c.Host
	if !strings.Contains(addr, ":") {
		addr += ":3306"
	}
	cfg := myConfig.Config{
		User:   c.User,
		Passwd: c.Password,
		Net:    "tcp",
		Addr:   addr,
		DBName: c.Database,
		Params: map[string]string{
			"charset":              "utf8mb4",
			"allowNativePasswords": "true",
		},
		ParseTime: true,
		Loc:       time.Local,
	}
	return cfg.FormatDSN()
}

type Store struct {
	db    *gorm.DB
	table string
}

var _ store.Store = (*Store)(nil)

// Open connects, applies the pool settings and creates the collection table
// if it does not exist yet.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if !store.ValidCollection(cfg.Table) {
		return nil, fmt.Errorf("mysqlstore: invalid collection name %q", cfg.Table)
	}
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "connect mysql")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "mysql pool")
	}
	sqlDB.SetMaxOpenConns(orDefault(cfg.MaxOpenConns, 50))
	sqlDB.SetMaxIdleConns(orDefault(cfg.MaxIdleConns, 25))
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	s, err := New(db, cfg.Table)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection. The table is not created.
func New(db *gorm.DB, table string) (*Store, error) {
	if !store.ValidCollection(table) {
		return nil, fmt.Errorf("mysqlstore: invalid collection name %q", table)
	}
	return &Store{db: db, table: table}, nil
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	err := s.db.WithContext(ctx).Exec(`
		CREATE TABLE IF NOT EXISTS ` + s.table + ` (
			id         VARCHAR(36) NOT NULL PRIMARY KEY,
			fields     JSON        NOT NULL,
			created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
		) CHARACTER SET utf8mb4`).Error
	return errors.Wrap(err, "create collection table")
}

func (s *Store) List(ctx context.Context) ([]store.Document, error) {
	var rows []dto.DocumentRow
	err := s.db.WithContext(ctx).Raw(`SELECT id, fields, created_at FROM ` + s.table + ` ORDER BY created_at, id`).Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "list documents")
	}

	out := make([]store.Document, 0, len(rows))
	for _, r := range rows {
		fields, err := decode(r.Fields)
		if err != nil {
			return nil, errors.Wrapf(err, "decode document %s", r.ID)
		}
		out = append(out, store.Document{ID: r.ID, CreatedAt: r.CreatedAt.UTC(), Fields: fields})
	}
	return out, nil
}

func (s *Store) Create(ctx context.Context, fields map[string]any) (string, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return "", errors.Wrap(err, "encode document")
	}
	id, err := uuid.NewV7()
	if err != nil {
		return "", errors.Wrap(err, "generate document id")
	}
	err = s.db.WithContext(ctx).Exec(`INSERT INTO `+s.table+` (id, fields) VALUES (?, ?)`, id.String(), string(raw)).Error
	if err != nil {
		return "", errors.Wrap(err, "insert document")
	}
	return id.String(), nil
}

func (s *Store) Update(ctx context.Context, id string, patch dto.Patch) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []dto.DocumentRow
		err := tx.Raw(`SELECT id, fields, created_at FROM `+s.table+` WHERE id = ? FOR UPDATE`, id).Scan(&rows).Error
		if err != nil {
			return errors.Wrap(err, "load document")
		}
		if len(rows) == 0 {
			return errors.Wrapf(store.ErrNotFound, "update %s", id)
		}

		fields, err := decode(rows[0].Fields)
		if err != nil {
			return errors.Wrapf(err, "decode document %s", id)
		}
		merged, err := json.Marshal(patch.Apply(fields))
		if err != nil {
			return errors.Wrap(err, "encode document")
		}
		err = tx.Exec(`UPDATE `+s.table+` SET fields = ? WHERE id = ?`, string(merged), id).Error
		return errors.Wrap(err, "update document")
	})
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Exec(`DELETE FROM `+s.table+` WHERE id = ?`, id)
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete document")
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(store.ErrNotFound, "delete %s", id)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func decode(raw []byte) (map[string]any, error) {
	fields := map[string]any{}
	if len(raw) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
