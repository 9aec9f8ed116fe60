// Package sqlitestore keeps the employee collection in a single SQLite table,
// one row per document with the fields stored as a JSON object.
//
// Pragmas applied on open:
//
//	foreign_keys = ON
//	journal_mode = WAL
//	busy_timeout = 10000
//	synchronous  = NORMAL
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"go-rail-employee-registry/internal/dto"
	"go-rail-employee-registry/internal/store"
)

const (
	driverName = "sqlite"
	memoryPath = ":memory:"
	timeLayout = "2006-01-02T15:04:05.000Z"
)

type Store struct {
	db    *sql.DB
	table string
}

var _ store.Store = (*Store)(nil)

// Open opens (or creates) the database at path and ensures the collection
// table exists. Use ":memory:" for a throwaway database.
func Open(path, table string) (*Store, error) {
	if !store.ValidCollection(table) {
		return nil, fmt.Errorf("sqlitestore: invalid collection name %q", table)
	}
	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, "create database directory")
		}
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	if path == memoryPath {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "apply %q", p)
		}
	}

	if _, err := db.Exec(schema(table)); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "apply schema")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping sqlite")
	}

	return &Store{db: db, table: table}, nil
}

func schema(table string) string {
	return `CREATE TABLE IF NOT EXISTS ` + table + ` (
	id         TEXT PRIMARY KEY,
	fields     TEXT NOT NULL,
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
)`
}

func (s *Store) List(ctx context.Context) ([]store.Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, fields, created_at FROM `+s.table+` ORDER BY created_at, id`)
	if err != nil {
		return nil, errors.Wrap(err, "list documents")
	}
	defer rows.Close()

	out := []store.Document{}
	for rows.Next() {
		var id, raw, created string
		if err := rows.Scan(&id, &raw, &created); err != nil {
			return nil, errors.Wrap(err, "scan document")
		}
		fields, err := decode(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "decode document %s", id)
		}
		createdAt, err := time.Parse(timeLayout, created)
		if err != nil {
			return nil, errors.Wrapf(err, "parse created_at of %s", id)
		}
		out = append(out, store.Document{ID: id, CreatedAt: createdAt, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate documents")
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
	if _, err := s.db.ExecContext(ctx, `INSERT INTO `+s.table+` (id, fields) VALUES (?, ?)`, id.String(), string(raw)); err != nil {
		return "", errors.Wrap(err, "insert document")
	}
	return id.String(), nil
}

func (s *Store) Update(ctx context.Context, id string, patch dto.Patch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin update")
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT fields FROM `+s.table+` WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrapf(store.ErrNotFound, "update %s", id)
	}
	if err != nil {
		return errors.Wrap(err, "load document")
	}

	fields, err := decode(raw)
	if err != nil {
		return errors.Wrapf(err, "decode document %s", id)
	}
	merged, err := json.Marshal(patch.Apply(fields))
	if err != nil {
		return errors.Wrap(err, "encode document")
	}
	if _, err := tx.ExecContext(ctx, `UPDATE `+s.table+` SET fields = ? WHERE id = ?`, string(merged), id); err != nil {
		return errors.Wrap(err, "update document")
	}
	return tx.Commit()
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+s.table+` WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "delete document")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "delete document")
	}
	if n == 0 {
		return errors.Wrapf(store.ErrNotFound, "delete %s", id)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func decode(raw string) (map[string]any, error) {
	fields := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}
