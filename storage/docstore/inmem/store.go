// Package inmemstore is a core.DocStore keeping JSON documents in memory.
// It backs DEV runs and tests.
package inmemstore

import (
	"bytes"
	"context"
	"encoding/json"
	"reflect"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

type collection struct {
	order []string // insertion order
	docs  map[string][]byte
}

func newCollection() *collection {
	return &collection{docs: make(map[string][]byte)}
}

func (c *collection) remove(id string) bool {
	if _, ok := c.docs[id]; !ok {
		return false
	}
	delete(c.docs, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

type Store struct {
	mu    sync.RWMutex
	colls map[string]*collection
}

var _ core.DocStore = (*Store)(nil)

func New() *Store {
	return &Store{colls: make(map[string]*collection)}
}

// Reset drops every collection.
func (s *Store) Reset() {
	s.mu.Lock()
	s.colls = make(map[string]*collection)
	s.mu.Unlock()
}

func (s *Store) coll(name string) *collection {
	c, ok := s.colls[name]
	if !ok {
		c = newCollection()
		s.colls[name] = c
	}
	return c
}

func (s *Store) Insert(_ context.Context, coll, id string, doc interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(coll, id, doc)
}

func (s *Store) insert(coll, id string, doc interface{}) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "encoding document")
	}
	c := s.coll(coll)
	if _, ok := c.docs[id]; ok {
		return core.ErrDuplicateDocument
	}
	c.docs[id] = data
	c.order = append(c.order, id)
	return nil
}

func (s *Store) Get(_ context.Context, coll, id string, out interface{}) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.colls[coll]
	if !ok {
		return core.ErrNoDocument
	}
	data, ok := c.docs[id]
	if !ok {
		return core.ErrNoDocument
	}
	return errors.Wrap(json.Unmarshal(data, out), "decoding document")
}

func (s *Store) find(coll string, filter core.Filter) ([][]byte, error) {
	c, ok := s.colls[coll]
	if !ok {
		return nil, nil
	}
	norm, err := normalize(filter)
	if err != nil {
		return nil, err
	}

	found := make([][]byte, 0, len(c.order))
	for _, id := range c.order {
		data := c.docs[id]
		matched, err := matches(data, norm)
		if err != nil {
			return nil, err
		}
		if matched {
			found = append(found, data)
		}
	}
	return found, nil
}

func (s *Store) Find(_ context.Context, coll string, filter core.Filter, out interface{}) error {
	s.mu.RLock()
	found, err := s.find(coll, filter)
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, data := range found {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(data)
	}
	buf.WriteByte(']')
	return errors.Wrap(json.Unmarshal(buf.Bytes(), out), "decoding documents")
}

func (s *Store) Count(_ context.Context, coll string, filter core.Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found, err := s.find(coll, filter)
	return int64(len(found)), err
}

func (s *Store) Replace(_ context.Context, coll, id string, doc interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replace(coll, id, doc)
}

func (s *Store) replace(coll, id string, doc interface{}) error {
	c, ok := s.colls[coll]
	if !ok {
		return core.ErrNoDocument
	}
	if _, ok = c.docs[id]; !ok {
		return core.ErrNoDocument
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "encoding document")
	}
	c.docs[id] = data
	return nil
}

func (s *Store) Update(_ context.Context, coll, id string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update(coll, id, fields)
}

func (s *Store) update(coll, id string, fields map[string]interface{}) error {
	c, ok := s.colls[coll]
	if !ok {
		return core.ErrNoDocument
	}
	data, ok := c.docs[id]
	if !ok {
		return core.ErrNoDocument
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return errors.Wrap(err, "decoding document")
	}
	set, err := normalize(fields)
	if err != nil {
		return err
	}
	for k, v := range set {
		doc[k] = v
	}
	if data, err = json.Marshal(doc); err != nil {
		return errors.Wrap(err, "encoding document")
	}
	c.docs[id] = data
	return nil
}

func (s *Store) Delete(_ context.Context, coll string, ids ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delete(coll, ids...), nil
}

func (s *Store) delete(coll string, ids ...string) int64 {
	c, ok := s.colls[coll]
	if !ok {
		return 0
	}
	var n int64
	for _, id := range ids {
		if c.remove(id) {
			n++
		}
	}
	return n
}

// WriteBatch applies ops in order under a single lock; it stops at the first failing op.
func (s *Store) WriteBatch(_ context.Context, ops []core.WriteOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, op := range ops {
		var err error
		switch op.Kind {
		case core.OpInsert:
			err = s.insert(op.Collection, op.ID, op.Doc)
		case core.OpReplace:
			err = s.replace(op.Collection, op.ID, op.Doc)
		case core.OpUpdate:
			err = s.update(op.Collection, op.ID, op.Fields)
		case core.OpDelete:
			s.delete(op.Collection, op.ID)
		default:
			err = errors.Errorf("unknown write op %d", op.Kind)
		}
		if err != nil {
			return errors.Wrapf(err, "batch op #%d (%s %s/%s)", i, op.Kind, op.Collection, op.ID)
		}
	}
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close(context.Context) error { return nil }

// normalize passes m through JSON so that its values compare equal to decoded documents.
func normalize(m map[string]interface{}) (map[string]interface{}, error) {
	if len(m) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, "encoding filter")
	}
	var norm map[string]interface{}
	if err = json.Unmarshal(data, &norm); err != nil {
		return nil, errors.Wrap(err, "decoding filter")
	}
	return norm, nil
}

func matches(data []byte, filter map[string]interface{}) (bool, error) {
	if len(filter) == 0 {
		return true, nil
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return false, errors.Wrap(err, "decoding document")
	}
	for field, want := range filter {
		got := doc[field]
		if anyOf, ok := want.([]interface{}); ok {
			var in bool
			for _, w := range anyOf {
				if reflect.DeepEqual(got, w) {
					in = true
					break
				}
			}
			if !in {
				return false, nil
			}
		} else if !reflect.DeepEqual(got, want) {
			return false, nil
		}
	}
	return true, nil
}
