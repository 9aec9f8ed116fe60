package loader

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-rail-employee-registry/internal/apperr"
	"go-rail-employee-registry/internal/dto"
	"go-rail-employee-registry/internal/store"
	"go-rail-employee-registry/internal/store/memstore"
)

type countingSource struct {
	calls atomic.Int32
	docs  []store.Document
	err   error
	gate  chan struct{}
}

func (s *countingSource) List(ctx context.Context) ([]store.Document, error) {
	s.calls.Add(1)
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.docs, s.err
}

func quietLogger() logrus.FieldLogger {
	l, _ := test.NewNullLogger()
	return l
}

func TestLoadEmptyCollection(t *testing.T) {
	l := New(memstore.New(), time.Minute, quietLogger())
	recs, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestLoadHeterogeneousDocuments(t *testing.T) {
	src := memstore.New()
	src.Seed("d1", map[string]any{"Employee Name": "A", "HRMS ID": "X1"})
	src.Seed("d2", map[string]any{"Employee Name": "B", "PF Number": "99"})

	recs, err := New(src, time.Minute, quietLogger()).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)

	byID := map[string]dto.Record{}
	for _, r := range recs {
		byID[r.ID] = r
	}
	assert.Equal(t, "X1", byID["d1"].Fields[dto.FieldHRMSID])
	_, ok := byID["d2"].Get(dto.FieldHRMSID)
	assert.False(t, ok, "absent keys stay absent")
	assert.Equal(t, "99", byID["d2"].Extra["PF Number"])
	assert.Equal(t, "d2", byID["d2"].Map()[dto.DocIDKey])
}

func TestLoadCachesUntilTTL(t *testing.T) {
	src := &countingSource{}
	l := New(src, time.Minute, quietLogger())
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	_, err := l.Load(context.Background())
	require.NoError(t, err)
	_, err = l.Load(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, src.calls.Load())

	now = now.Add(2 * time.Minute)
	_, err = l.Load(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, src.calls.Load())
}

func TestInvalidateForcesReload(t *testing.T) {
	src := &countingSource{}
	l := New(src, time.Hour, quietLogger())

	_, err := l.Load(context.Background())
	require.NoError(t, err)
	l.Invalidate("write")
	_, cached := l.Snapshot()
	assert.False(t, cached)

	_, err = l.Load(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, src.calls.Load())
}

func TestLoadFailureIsUnavailable(t *testing.T) {
	src := &countingSource{err: errors.New("permission denied")}
	_, err := New(src, time.Minute, quietLogger()).Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrDataSourceUnavailable)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestStaleLoadDoesNotRepopulateCache(t *testing.T) {
	src := &countingSource{
		docs: []store.Document{{ID: "old", Fields: map[string]any{}}},
		gate: make(chan struct{}),
	}
	l := New(src, time.Hour, quietLogger())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = l.Load(context.Background())
	}()

	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)
	l.Invalidate("write")
	close(src.gate)
	<-done

	_, cached := l.Snapshot()
	assert.False(t, cached)
}

func TestConcurrentMissesShareOneRead(t *testing.T) {
	src := &countingSource{gate: make(chan struct{})}
	l := New(src, time.Hour, quietLogger())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = l.Load(context.Background())
		}()
	}
	require.Eventually(t, func() bool { return src.calls.Load() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	assert.LessOrEqual(t, src.calls.Load(), int32(8))
	recs, cached := l.Snapshot()
	assert.True(t, cached)
	assert.NotNil(t, recs)
}

func TestCanceledCallerDoesNotFailSharedRead(t *testing.T) {
	src := &countingSource{
		docs: []store.Document{{ID: "d1", Fields: map[string]any{"HRMS ID": "X1"}}},
		gate: make(chan struct{}),
	}
	l := New(src, time.Hour, quietLogger())

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := l.Load(ctxA)
		errA <- err
	}()
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)

	type result struct {
		recs []dto.Record
		err  error
	}
	resB := make(chan result, 1)
	go func() {
		recs, err := l.Load(context.Background())
		resB <- result{recs, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(src.gate)
	b := <-resB
	require.NoError(t, b.err)
	require.Len(t, b.recs, 1)
	assert.Equal(t, "d1", b.recs[0].ID)

	_, cached := l.Snapshot()
	assert.True(t, cached)
}
