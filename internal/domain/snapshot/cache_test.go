package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"fieldsync/internal/infrastructure/storage/memory"
)

func newCache(t *testing.T, now time.Time) *Cache {
	t.Helper()
	c, err := NewCache(context.Background(), memory.New(), slog.Default())
	require.NoError(t, err)
	return c.WithClock(func() time.Time { return now })
}

func TestCache_Replace(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	c := newCache(t, now)

	meta, err := c.Replace(ctx, "meetings", []Record{rec("1", `{"n":1}`), rec("2", `{"n":2}`)})
	require.NoError(t, err)
	assert.Equal(t, "meetings", meta.CollectionKey)
	assert.Equal(t, now, meta.LastSyncAt)

	got, err := c.List(ctx, "meetings")
	require.NoError(t, err)
	assert.Equal(t, []Record{rec("1", `{"n":1}`), rec("2", `{"n":2}`)}, got)

	one, err := c.Get(ctx, "meetings", "2")
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":2}`, string(one.Data))
}

func TestCache_Replace_PrunesStaleRecords(t *testing.T) {
	ctx := context.Background()
	c := newCache(t, time.Now())

	_, err := c.Replace(ctx, "visits", []Record{rec("1", `1`), rec("2", `2`), rec("3", `3`)})
	require.NoError(t, err)
	_, err = c.Replace(ctx, "visits", []Record{rec("3", `33`), rec("4", `4`)})
	require.NoError(t, err)

	got, err := c.List(ctx, "visits")
	require.NoError(t, err)
	assert.Equal(t, []Record{rec("3", `33`), rec("4", `4`)}, got)

	_, err = c.Get(ctx, "visits", "1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCache_Replace_SkipsRecordsWithoutID(t *testing.T) {
	ctx := context.Background()
	c := newCache(t, time.Now())

	_, err := c.Replace(ctx, "prospects", []Record{rec("", `{}`), rec("7", `{}`)})
	require.NoError(t, err)

	got, err := c.List(ctx, "prospects")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "7", got[0].ID)
}

func TestCache_FamiliesAreIsolated(t *testing.T) {
	ctx := context.Background()
	c := newCache(t, time.Now())

	_, err := c.Replace(ctx, "visits", []Record{rec("1", `"visit"`)})
	require.NoError(t, err)
	_, err = c.Replace(ctx, "meetings", []Record{rec("1", `"meeting"`)})
	require.NoError(t, err)

	v, err := c.Get(ctx, "visits", "1")
	require.NoError(t, err)
	assert.Equal(t, `"visit"`, string(v.Data))
}

func TestCache_Metadata(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	c := newCache(t, now)

	_, ok, err := c.Metadata(ctx, "visits")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = c.Replace(ctx, "visits", nil)
	require.NoError(t, err)

	meta, ok, err := c.Metadata(ctx, "visits")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, meta.LastSyncAt.Equal(now))
}

func TestCache_ListSyncedBetween(t *testing.T) {
	ctx := context.Background()
	first := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	clock := first
	c := newCache(t, first).WithClock(func() time.Time { return clock })

	_, err := c.Replace(ctx, "visits", []Record{rec("1", `1`)})
	require.NoError(t, err)
	clock = first.Add(time.Hour)
	_, err = c.Replace(ctx, "visits", []Record{rec("1", `1`), rec("2", `2`)})
	require.NoError(t, err)

	got, err := c.ListSyncedBetween(ctx, "visits", first.Add(time.Minute), first.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = c.ListSyncedBetween(ctx, "visits", first, first)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCache_EmptyFamily(t *testing.T) {
	_, err := newCache(t, time.Now()).List(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnknownFamily)
}
