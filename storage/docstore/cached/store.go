// Package cachedstore decorates a core.DocStore with a read-through core.Cache.
// Reads are cached per collection; any write to a collection drops its entries.
package cachedstore

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/trezcool/darasa/core"
)

type Store struct {
	core.DocStore
	cache  core.Cache
	ttl    time.Duration
	prefix string
	logger core.Logger
}

var _ core.DocStore = (*Store)(nil)

func New(store core.DocStore, cache core.Cache, ttl time.Duration, prefix string, logger core.Logger) *Store {
	return &Store{DocStore: store, cache: cache, ttl: ttl, prefix: prefix, logger: logger}
}

func (s *Store) collPrefix(coll string) string {
	return s.prefix + coll + ":"
}

func (s *Store) key(coll, op string, arg interface{}) string {
	raw, _ := json.Marshal(arg) // filters are plain maps
	sum := sha1.Sum(raw)
	return s.collPrefix(coll) + op + ":" + hex.EncodeToString(sum[:])
}

// fetch loads key into out; on a miss it calls load and caches what it produced.
func (s *Store) fetch(ctx context.Context, key string, out interface{}, load func() error) error {
	if data, ok, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn(fmt.Sprintf("cache get %s: %v", key, err), err)
	} else if ok && json.Unmarshal(data, out) == nil {
		return nil
	}

	if err := load(); err != nil {
		return err
	}
	if data, err := json.Marshal(out); err == nil {
		if err = s.cache.Set(ctx, key, data, s.ttl); err != nil {
			s.logger.Warn(fmt.Sprintf("cache set %s: %v", key, err), err)
		}
	}
	return nil
}

func (s *Store) invalidate(ctx context.Context, colls ...string) {
	for _, coll := range colls {
		if err := s.cache.DeletePrefix(ctx, s.collPrefix(coll)); err != nil {
			s.logger.Warn(fmt.Sprintf("cache invalidate %s: %v", coll, err), err)
		}
	}
}

func (s *Store) Get(ctx context.Context, coll, id string, out interface{}) error {
	return s.fetch(ctx, s.key(coll, "get", id), out, func() error {
		return s.DocStore.Get(ctx, coll, id, out)
	})
}

func (s *Store) Find(ctx context.Context, coll string, filter core.Filter, out interface{}) error {
	return s.fetch(ctx, s.key(coll, "find", filter), out, func() error {
		return s.DocStore.Find(ctx, coll, filter, out)
	})
}

func (s *Store) Count(ctx context.Context, coll string, filter core.Filter) (int64, error) {
	key := s.key(coll, "count", filter)
	if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		if n, err := strconv.ParseInt(string(data), 10, 64); err == nil {
			return n, nil
		}
	}
	n, err := s.DocStore.Count(ctx, coll, filter)
	if err != nil {
		return 0, err
	}
	_ = s.cache.Set(ctx, key, []byte(strconv.FormatInt(n, 10)), s.ttl)
	return n, nil
}

func (s *Store) Insert(ctx context.Context, coll, id string, doc interface{}) error {
	defer s.invalidate(ctx, coll)
	return s.DocStore.Insert(ctx, coll, id, doc)
}

func (s *Store) Replace(ctx context.Context, coll, id string, doc interface{}) error {
	defer s.invalidate(ctx, coll)
	return s.DocStore.Replace(ctx, coll, id, doc)
}

func (s *Store) Update(ctx context.Context, coll, id string, fields map[string]interface{}) error {
	defer s.invalidate(ctx, coll)
	return s.DocStore.Update(ctx, coll, id, fields)
}

func (s *Store) Delete(ctx context.Context, coll string, ids ...string) (int64, error) {
	defer s.invalidate(ctx, coll)
	return s.DocStore.Delete(ctx, coll, ids...)
}

func (s *Store) WriteBatch(ctx context.Context, ops []core.WriteOp) error {
	defer s.invalidate(ctx, core.Collections(ops)...)
	return s.DocStore.WriteBatch(ctx, ops)
}
