package cachedstore

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	inmemstore "github.com/trezcool/darasa/storage/docstore/inmem"
)

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, val []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = val
	return nil
}

func (c *mapCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
		}
	}
	return nil
}

type countingStore struct {
	core.DocStore
	finds int
}

func (s *countingStore) Find(ctx context.Context, coll string, filter core.Filter, out interface{}) error {
	s.finds++
	return s.DocStore.Find(ctx, coll, filter, out)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type doc struct {
	ID    string `json:"id"`
	Batch string `json:"batch"`
}

func TestStore_Find(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{DocStore: inmemstore.New()}
	cache := &mapCache{data: make(map[string][]byte)}
	s := New(inner, cache, time.Minute, "test:", nopLogger{})

	require.NoError(t, s.Insert(ctx, "docs", "1", doc{ID: "1", Batch: "A"}))
	require.NoError(t, s.Insert(ctx, "other", "1", doc{ID: "1", Batch: "A"}))

	var docs []doc
	require.NoError(t, s.Find(ctx, "docs", core.Filter{"batch": "A"}, &docs))
	require.NoError(t, s.Find(ctx, "docs", core.Filter{"batch": "A"}, &docs))
	assert.Equal(t, 1, inner.finds, "second find is served from cache")
	assert.Equal(t, []doc{{ID: "1", Batch: "A"}}, docs)

	// a write on another collection keeps the entry
	require.NoError(t, s.Update(ctx, "other", "1", map[string]interface{}{"batch": "B"}))
	require.NoError(t, s.Find(ctx, "docs", core.Filter{"batch": "A"}, &docs))
	assert.Equal(t, 1, inner.finds)

	// a write on the collection drops it
	require.NoError(t, s.WriteBatch(ctx, []core.WriteOp{
		{Kind: core.OpInsert, Collection: "docs", ID: "2", Doc: doc{ID: "2", Batch: "A"}},
	}))
	docs = nil
	require.NoError(t, s.Find(ctx, "docs", core.Filter{"batch": "A"}, &docs))
	assert.Equal(t, 2, inner.finds)
	assert.Len(t, docs, 2)
}

func TestStore_Get(t *testing.T) {
	ctx := context.Background()
	cache := &mapCache{data: make(map[string][]byte)}
	s := New(inmemstore.New(), cache, time.Minute, "test:", nopLogger{})

	var d doc
	assert.Equal(t, core.ErrNoDocument, s.Get(ctx, "docs", "1", &d))
	assert.Empty(t, cache.data, "misses are not cached")

	require.NoError(t, s.Insert(ctx, "docs", "1", doc{ID: "1", Batch: "A"}))
	require.NoError(t, s.Get(ctx, "docs", "1", &d))
	assert.Len(t, cache.data, 1)

	n, err := s.Delete(ctx, "docs", "1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Empty(t, cache.data)
	assert.Equal(t, core.ErrNoDocument, s.Get(ctx, "docs", "1", &d))
}
