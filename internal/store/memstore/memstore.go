// Package memstore keeps the employee collection in process memory. It
// backs tests and the "memory" driver.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"go-rail-employee-registry/internal/dto"
	"go-rail-employee-registry/internal/store"
)

type Store struct {
	mu   sync.RWMutex
	docs map[string]store.Document
	now  func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		docs: make(map[string]store.Document),
		now:  time.Now,
	}
}

// Seed inserts a document under a caller-chosen id.
func (s *Store) Seed(id string, fields map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[id] = store.Document{ID: id, CreatedAt: s.now().UTC(), Fields: clone(fields)}
}

// Get returns a copy of one document.
func (s *Store) Get(id string) (store.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[id]
	if !ok {
		return store.Document{}, false
	}
	d.Fields = clone(d.Fields)
	return d, true
}

func (s *Store) List(ctx context.Context) ([]store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Document, 0, len(s.docs))
	for _, d := range s.docs {
		d.Fields = clone(d.Fields)
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) Create(ctx context.Context, fields map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return "", errors.Wrap(err, "generate document id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[id.String()] = store.Document{ID: id.String(), CreatedAt: s.now().UTC(), Fields: clone(fields)}
	return id.String(), nil
}

func (s *Store) Update(ctx context.Context, id string, patch dto.Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return errors.Wrapf(store.ErrNotFound, "update %s", id)
	}
	d.Fields = patch.Apply(d.Fields)
	s.docs[id] = d
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return errors.Wrapf(store.ErrNotFound, "delete %s", id)
	}
	delete(s.docs, id)
	return nil
}

func (s *Store) Close() error { return nil }

func clone(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
