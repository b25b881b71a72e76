package postgres

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldsync/internal/domain/entity"
	"fieldsync/internal/utils/logger"
)

// newRepository нужна живая база: TEST_DATABASE_URI=postgres://...
func newRepository(t *testing.T) *EntityRepository {
	t.Helper()
	uri := os.Getenv("TEST_DATABASE_URI")
	if uri == "" {
		t.Skip("TEST_DATABASE_URI is not set")
	}

	ctx := context.Background()
	s, err := New(ctx, uri)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Ping(ctx))

	return NewEntityRepository(s.Pool(), logger.Discard())
}

func TestEntityRepository_CRUD(t *testing.T) {
	repo := newRepository(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	due := now.Add(time.Hour)

	e := &entity.Entity{
		Family:    entity.FamilyVisits,
		Data:      json.RawMessage(`{"customer":"Acme"}`),
		DueAt:     &due,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.Create(ctx, e))
	require.NotZero(t, e.ID)
	t.Cleanup(func() { _ = repo.Delete(context.Background(), entity.FamilyVisits, e.ID) })

	got, err := repo.Get(ctx, entity.FamilyVisits, e.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"customer":"Acme"}`, string(got.Data))

	dueList, err := repo.ListDue(ctx, entity.FamilyVisits, now, now.Add(2*time.Hour))
	require.NoError(t, err)
	ids := make([]int64, 0, len(dueList))
	for _, d := range dueList {
		ids = append(ids, d.ID)
	}
	assert.Contains(t, ids, e.ID)

	e.Data = json.RawMessage(`{"customer":"Globex"}`)
	require.NoError(t, repo.Update(ctx, e))

	require.NoError(t, repo.Delete(ctx, entity.FamilyVisits, e.ID))
	_, err = repo.Get(ctx, entity.FamilyVisits, e.ID)
	assert.ErrorIs(t, err, entity.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, entity.FamilyVisits, e.ID), entity.ErrNotFound)
}

func TestEntityRepository_Replay(t *testing.T) {
	repo := newRepository(t)
	ctx := context.Background()
	key := uuid.NewString()

	_, ok, err := repo.FindReplay(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.SaveReplay(ctx, entity.Replay{Key: key, Status: 201, Response: json.RawMessage(`{"id":5}`)}))
	// повторное сохранение не перезаписывает первый ответ
	require.NoError(t, repo.SaveReplay(ctx, entity.Replay{Key: key, Status: 200, Response: json.RawMessage(`{"id":6}`)}))

	rp, ok, err := repo.FindReplay(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 201, rp.Status)
	assert.JSONEq(t, `{"id":5}`, string(rp.Response))
}
