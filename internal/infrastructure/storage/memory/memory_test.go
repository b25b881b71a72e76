package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldsync/internal/infrastructure/storage"
	"fieldsync/internal/infrastructure/storage/storagetest"
)

func TestStoreContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store { return New() })
}

func TestStore_ValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	c, err := New().Collection(ctx, "copies")
	require.NoError(t, err)

	value := []byte("abc")
	_, err = c.Put(ctx, storage.Record{Key: "k", Value: value})
	require.NoError(t, err)
	value[0] = 'x'

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got.Value)
}

func TestStore_Closed(t *testing.T) {
	ctx := context.Background()
	s := New()
	c, err := s.Collection(ctx, "c")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = c.Put(ctx, storage.Record{Key: "k"})
	assert.ErrorIs(t, err, storage.ErrClosed)

	_, err = s.Collection(ctx, "other")
	assert.ErrorIs(t, err, storage.ErrClosed)
}
