// Package storagetest общий набор проверок контракта storage.Store.
package storagetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldsync/internal/infrastructure/storage"
)

// Factory создает пустое хранилище для одного подтеста.
type Factory func(t *testing.T) storage.Store

func Run(t *testing.T, newStore Factory) {
	t.Run("AutoKeysAreMonotonic", func(t *testing.T) { autoKeys(t, newStore(t)) })
	t.Run("GetAllKeepsInsertionOrder", func(t *testing.T) { insertionOrder(t, newStore(t)) })
	t.Run("OverwriteKeepsPosition", func(t *testing.T) { overwrite(t, newStore(t)) })
	t.Run("GetMissing", func(t *testing.T) { getMissing(t, newStore(t)) })
	t.Run("IndexRange", func(t *testing.T) { indexRange(t, newStore(t)) })
	t.Run("DeleteAndClear", func(t *testing.T) { deleteAndClear(t, newStore(t)) })
	t.Run("CollectionsAreIsolated", func(t *testing.T) { isolation(t, newStore(t)) })
	t.Run("ConcurrentPutAll", func(t *testing.T) { concurrentPutAll(t, newStore(t)) })
	t.Run("EmptyCollectionName", func(t *testing.T) { emptyName(t, newStore(t)) })
	t.Run("ClosedIsStorageError", func(t *testing.T) { closed(t, newStore(t)) })
}

func collection(t *testing.T, s storage.Store, name string) storage.Collection {
	t.Helper()
	c, err := s.Collection(context.Background(), name)
	require.NoError(t, err)
	return c
}

func keys(recs []storage.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Key
	}
	return out
}

func autoKeys(t *testing.T, s storage.Store) {
	ctx := context.Background()
	c := collection(t, s, "queue")

	a, err := c.Put(ctx, storage.Record{Value: []byte("a")})
	require.NoError(t, err)
	b, err := c.Put(ctx, storage.Record{Value: []byte("b")})
	require.NoError(t, err)

	require.NotEmpty(t, a.Key)
	require.NotEmpty(t, b.Key)
	assert.NotEqual(t, a.Key, b.Key)

	got, err := c.Get(ctx, b.Key)
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), got.Value)
}

func insertionOrder(t *testing.T, s storage.Store) {
	ctx := context.Background()
	c := collection(t, s, "ordered")

	for _, k := range []string{"c", "a", "b"} {
		_, err := c.Put(ctx, storage.Record{Key: k, Value: []byte(k)})
		require.NoError(t, err)
	}

	all, err := c.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, keys(all))
}

func overwrite(t *testing.T, s storage.Store) {
	ctx := context.Background()
	c := collection(t, s, "overwrite")

	for _, k := range []string{"1", "2", "3"} {
		_, err := c.Put(ctx, storage.Record{Key: k, Value: []byte("old")})
		require.NoError(t, err)
	}
	_, err := c.Put(ctx, storage.Record{Key: "1", Value: []byte("new")})
	require.NoError(t, err)

	all, err := c.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, keys(all))
	assert.Equal(t, []byte("new"), all[0].Value)

	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func getMissing(t *testing.T, s storage.Store) {
	c := collection(t, s, "missing")
	_, err := c.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func indexRange(t *testing.T, s storage.Store) {
	ctx := context.Background()
	c := collection(t, s, "ranged")
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, k := range []string{"a", "b", "c", "d"} {
		_, err := c.Put(ctx, storage.Record{Key: k, Index: base.Add(time.Duration(i) * time.Hour)})
		require.NoError(t, err)
	}

	got, err := c.GetAllByIndexRange(ctx, base.Add(time.Hour), base.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, keys(got))
	assert.True(t, got[0].Index.Equal(base.Add(time.Hour)))

	none, err := c.GetAllByIndexRange(ctx, base.Add(10*time.Hour), base.Add(11*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func deleteAndClear(t *testing.T, s storage.Store) {
	ctx := context.Background()
	c := collection(t, s, "deletes")

	for _, k := range []string{"a", "b", "c"} {
		_, err := c.Put(ctx, storage.Record{Key: k})
		require.NoError(t, err)
	}

	require.NoError(t, c.Delete(ctx, "b"))
	require.NoError(t, c.Delete(ctx, "absent"))

	all, err := c.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, keys(all))

	require.NoError(t, c.Clear(ctx))
	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func isolation(t *testing.T, s storage.Store) {
	ctx := context.Background()
	a := collection(t, s, "a")
	b := collection(t, s, "b")

	_, err := a.Put(ctx, storage.Record{Key: "k", Value: []byte("from a")})
	require.NoError(t, err)
	require.NoError(t, b.Clear(ctx))

	got, err := a.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("from a"), got.Value)

	_, err = b.Get(ctx, "k")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	again := collection(t, s, "a")
	n, err := again.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func concurrentPutAll(t *testing.T, s storage.Store) {
	ctx := context.Background()
	c := collection(t, s, "batch")

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			recs := make([]storage.Record, 0, 10)
			for i := 0; i < 10; i++ {
				recs = append(recs, storage.Record{Key: string(rune('a'+w)) + string(rune('0'+i))})
			}
			assert.NoError(t, storage.PutAll(ctx, c, recs))
		}(w)
	}
	wg.Wait()

	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 40, n)
}

func emptyName(t *testing.T, s storage.Store) {
	_, err := s.Collection(context.Background(), "")
	assert.ErrorIs(t, err, storage.ErrStorage)
}

func closed(t *testing.T, s storage.Store) {
	ctx := context.Background()
	c := collection(t, s, "queue")
	_, err := c.Put(ctx, storage.Record{Key: "k", Value: []byte("v")})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, storage.ErrStorage)
	_, err = c.GetAll(ctx)
	assert.ErrorIs(t, err, storage.ErrStorage)
	_, err = c.Put(ctx, storage.Record{Value: []byte("w")})
	assert.ErrorIs(t, err, storage.ErrStorage)
	assert.ErrorIs(t, c.Delete(ctx, "k"), storage.ErrStorage)
}
