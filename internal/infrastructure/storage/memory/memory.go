// Package memory хранилище в памяти процесса. Клиент берет его только при
// явном IN_MEMORY, сервер песочницы без DATA_PATH, а еще тесты.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"fieldsync/internal/infrastructure/storage"
)

type entry struct {
	seq int64
	rec storage.Record
}

type Store struct {
	mu          sync.RWMutex
	seq         int64
	closed      bool
	collections map[string]*Collection
}

func New() *Store {
	return &Store{collections: make(map[string]*Collection)}
}

func (s *Store) Collection(_ context.Context, name string) (storage.Collection, error) {
	if err := storage.ValidateName(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, storage.ErrClosed
	}
	c, ok := s.collections[name]
	if !ok {
		c = &Collection{store: s, name: name, entries: make(map[string]entry)}
		s.collections[name] = c
	}
	return c, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *Store) nextSeq() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

func (s *Store) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Collection коллекция в памяти. Порядок вставки хранится в seq.
type Collection struct {
	store   *Store
	name    string
	mu      sync.RWMutex
	entries map[string]entry
}

func (c *Collection) Name() string { return c.name }

func (c *Collection) Get(_ context.Context, key string) (storage.Record, error) {
	if c.store.isClosed() {
		return storage.Record{}, storage.ErrClosed
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return storage.Record{}, fmt.Errorf("%s/%s: %w", c.name, key, storage.ErrNotFound)
	}
	return cloneRecord(e.rec), nil
}

func (c *Collection) GetAll(_ context.Context) ([]storage.Record, error) {
	if c.store.isClosed() {
		return nil, storage.ErrClosed
	}
	return c.sorted(func(storage.Record) bool { return true }), nil
}

func (c *Collection) GetAllByIndexRange(_ context.Context, from, to time.Time) ([]storage.Record, error) {
	if c.store.isClosed() {
		return nil, storage.ErrClosed
	}
	return c.sorted(func(r storage.Record) bool {
		return !r.Index.Before(from) && !r.Index.After(to)
	}), nil
}

func (c *Collection) Put(_ context.Context, rec storage.Record) (storage.Record, error) {
	if c.store.isClosed() {
		return storage.Record{}, storage.ErrClosed
	}
	rec = cloneRecord(rec)

	c.mu.Lock()
	defer c.mu.Unlock()
	if rec.Key == "" {
		seq := c.store.nextSeq()
		rec.Key = strconv.FormatInt(seq, 10)
		c.entries[rec.Key] = entry{seq: seq, rec: rec}
		return cloneRecord(rec), nil
	}
	if e, ok := c.entries[rec.Key]; ok {
		c.entries[rec.Key] = entry{seq: e.seq, rec: rec}
		return cloneRecord(rec), nil
	}
	c.entries[rec.Key] = entry{seq: c.store.nextSeq(), rec: rec}
	return cloneRecord(rec), nil
}

func (c *Collection) Delete(_ context.Context, key string) error {
	if c.store.isClosed() {
		return storage.ErrClosed
	}
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

func (c *Collection) Clear(_ context.Context) error {
	if c.store.isClosed() {
		return storage.ErrClosed
	}
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
	return nil
}

func (c *Collection) Count(_ context.Context) (int, error) {
	if c.store.isClosed() {
		return 0, storage.ErrClosed
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries), nil
}

func (c *Collection) sorted(keep func(storage.Record) bool) []storage.Record {
	c.mu.RLock()
	list := make([]entry, 0, len(c.entries))
	for _, e := range c.entries {
		if keep(e.rec) {
			list = append(list, e)
		}
	}
	c.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].seq < list[j].seq })
	out := make([]storage.Record, len(list))
	for i, e := range list {
		out[i] = cloneRecord(e.rec)
	}
	return out
}

func cloneRecord(r storage.Record) storage.Record {
	if r.Value != nil {
		v := make([]byte, len(r.Value))
		copy(v, r.Value)
		r.Value = v
	}
	return r
}
