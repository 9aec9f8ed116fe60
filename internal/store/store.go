// Package store defines the document collection the registry persists
// employee records in. Each backend keeps one document per record: an
// opaque id, a schema-less field map and a creation time it assigns itself.
package store

import (
	"context"
	"regexp"
	"time"

	"github.com/go-faster/errors"

	"go-rail-employee-registry/internal/dto"
)

var ErrNotFound = errors.New("document not found")

type Document struct {
	ID        string
	CreatedAt time.Time
	Fields    map[string]any
}

// Store is safe for concurrent use. Update applies the whole patch or
// nothing.
type Store interface {
	List(ctx context.Context) ([]Document, error)
	Create(ctx context.Context, fields map[string]any) (string, error)
	Update(ctx context.Context, id string, patch dto.Patch) error
	Delete(ctx context.Context, id string) error
	Close() error
}

var collectionName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// ValidCollection reports whether name can be used as a table name. SQL
// backends interpolate it into statements.
func ValidCollection(name string) bool {
	return collectionName.MatchString(name)
}
