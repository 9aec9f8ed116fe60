// Package loader reads the whole employee collection and keeps the result
// cached for a bounded time.
package loader

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"go-rail-employee-registry/internal/apperr"
	"go-rail-employee-registry/internal/dto"
	"go-rail-employee-registry/internal/metrics"
	"go-rail-employee-registry/internal/store"
)

const DefaultTTL = 300 * time.Second

// Source is the read side of a store.
type Source interface {
	List(ctx context.Context) ([]store.Document, error)
}

type Loader struct {
	src    Source
	ttl    time.Duration
	logger logrus.FieldLogger
	now    func() time.Time
	group  singleflight.Group

	mu        sync.RWMutex
	gen       uint64
	records   []dto.Record
	expiresAt time.Time
	cached    bool
}

func New(src Source, ttl time.Duration, logger logrus.FieldLogger) *Loader {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Loader{src: src, ttl: ttl, logger: logger, now: time.Now}
}

// Load returns every record of the collection. A fresh cached snapshot is
// served without I/O; concurrent misses share a single backend read, and a
// caller that gives up does not cancel it for the others.
func (l *Loader) Load(ctx context.Context) ([]dto.Record, error) {
	l.mu.RLock()
	if l.cached && l.now().Before(l.expiresAt) {
		recs := l.records
		l.mu.RUnlock()
		metrics.RecordCacheRequest(true)
		return recs, nil
	}
	gen := l.gen
	l.mu.RUnlock()
	metrics.RecordCacheRequest(false)

	// the shared read outlives any single caller
	ch := l.group.DoChan(strconv.FormatUint(gen, 10), func() (any, error) {
		return l.fetch(context.WithoutCancel(ctx), gen)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]dto.Record), nil
	}
}

func (l *Loader) fetch(ctx context.Context, gen uint64) ([]dto.Record, error) {
	docs, err := l.src.List(ctx)
	metrics.RecordStoreOp("list", err)
	if err != nil {
		l.logger.WithError(err).Error("[loader] list documents failed")
		return nil, apperr.Unavailable("load records", err)
	}

	recs := make([]dto.Record, 0, len(docs))
	for _, d := range docs {
		recs = append(recs, dto.NewRecord(d.ID, d.CreatedAt, d.Fields))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	// an invalidation happened while reading; the result may predate a write
	if l.gen == gen {
		l.records = recs
		l.expiresAt = l.now().Add(l.ttl)
		l.cached = true
	}
	l.logger.WithFields(logrus.Fields{"records": len(recs), "generation": gen}).Debug("[loader] snapshot loaded")
	return recs, nil
}

// Invalidate drops the cached snapshot. Loads already in flight finish but
// do not repopulate the cache.
func (l *Loader) Invalidate(reason string) {
	l.mu.Lock()
	l.gen++
	l.records = nil
	l.cached = false
	l.mu.Unlock()
	metrics.RecordCacheInvalidate(reason)
	l.logger.WithField("reason", reason).Debug("[loader] cache invalidated")
}

// Snapshot returns the cached records, if any, regardless of age.
func (l *Loader) Snapshot() ([]dto.Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.records, l.cached
}
