package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"fieldsync/internal/infrastructure/storage"
)

// Cache локальные снимки серверных семейств и их метаданные.
type Cache struct {
	store storage.Store
	meta  storage.Collection
	log   *slog.Logger
	now   func() time.Time

	mu          sync.Mutex
	collections map[string]storage.Collection
}

func NewCache(ctx context.Context, store storage.Store, log *slog.Logger) (*Cache, error) {
	meta, err := store.Collection(ctx, MetadataCollection)
	if err != nil {
		return nil, fmt.Errorf("open metadata collection: %w", err)
	}
	return &Cache{
		store:       store,
		meta:        meta,
		log:         log.With("component", "snapshot_cache"),
		now:         time.Now,
		collections: make(map[string]storage.Collection),
	}, nil
}

// WithClock подменяет источник времени.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

func (c *Cache) collection(ctx context.Context, family string) (storage.Collection, error) {
	if family == "" {
		return nil, fmt.Errorf("%w: empty key", ErrUnknownFamily)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if col, ok := c.collections[family]; ok {
		return col, nil
	}
	col, err := c.store.Collection(ctx, CollectionName(family))
	if err != nil {
		return nil, fmt.Errorf("open %s collection: %w", family, err)
	}
	c.collections[family] = col
	return col, nil
}

// Replace записывает объединенный снимок семейства, удаляет записи, которых
// больше нет на сервере, и обновляет метаданные. Записи пишутся по одной;
// удаление устаревших выполняется только после успешной записи всех.
func (c *Cache) Replace(ctx context.Context, family string, recs []Record) (Metadata, error) {
	col, err := c.collection(ctx, family)
	if err != nil {
		return Metadata{}, err
	}

	syncedAt := c.now()
	batch := make([]storage.Record, 0, len(recs))
	keep := make(map[string]bool, len(recs))
	for _, rec := range recs {
		if rec.ID == "" {
			continue
		}
		keep[rec.ID] = true
		batch = append(batch, storage.Record{Key: rec.ID, Index: syncedAt, Value: rec.Data})
	}

	if err := storage.PutAll(ctx, col, batch); err != nil {
		return Metadata{}, fmt.Errorf("write %s snapshot: %w", family, err)
	}

	existing, err := col.GetAll(ctx)
	if err != nil {
		return Metadata{}, fmt.Errorf("read %s snapshot: %w", family, err)
	}
	pruned := 0
	for _, rec := range existing {
		if keep[rec.Key] {
			continue
		}
		if err := col.Delete(ctx, rec.Key); err != nil {
			return Metadata{}, fmt.Errorf("prune %s snapshot: %w", family, err)
		}
		pruned++
	}

	meta := Metadata{CollectionKey: family, LastSyncAt: syncedAt}
	if prev, ok, err := c.Metadata(ctx, family); err == nil && ok {
		meta.VersionToken = prev.VersionToken
	}
	value, err := json.Marshal(meta)
	if err != nil {
		return Metadata{}, fmt.Errorf("encode metadata: %w", err)
	}
	if _, err := c.meta.Put(ctx, storage.Record{Key: family, Index: syncedAt, Value: value}); err != nil {
		return Metadata{}, fmt.Errorf("write %s metadata: %w", family, err)
	}

	c.log.Debug("snapshot replaced", "family", family, "records", len(batch), "pruned", pruned)
	return meta, nil
}

// List возвращает снимок семейства.
func (c *Cache) List(ctx context.Context, family string) ([]Record, error) {
	col, err := c.collection(ctx, family)
	if err != nil {
		return nil, err
	}
	recs, err := col.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list %s snapshot: %w", family, err)
	}
	return toRecords(recs), nil
}

// ListSyncedBetween возвращает записи, загруженные в интервале [from, to].
func (c *Cache) ListSyncedBetween(ctx context.Context, family string, from, to time.Time) ([]Record, error) {
	col, err := c.collection(ctx, family)
	if err != nil {
		return nil, err
	}
	recs, err := col.GetAllByIndexRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list %s snapshot by range: %w", family, err)
	}
	return toRecords(recs), nil
}

// Get возвращает одну запись снимка.
func (c *Cache) Get(ctx context.Context, family, id string) (Record, error) {
	col, err := c.collection(ctx, family)
	if err != nil {
		return Record{}, err
	}
	rec, err := col.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return Record{}, fmt.Errorf("%w: %s/%s", ErrNotFound, family, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("get %s/%s: %w", family, id, err)
	}
	return Record{ID: rec.Key, Data: rec.Value}, nil
}

// Metadata возвращает метаданные семейства; ok == false, если семейство еще не загружалось.
func (c *Cache) Metadata(ctx context.Context, family string) (Metadata, bool, error) {
	rec, err := c.meta.Get(ctx, family)
	if errors.Is(err, storage.ErrNotFound) {
		return Metadata{}, false, nil
	}
	if err != nil {
		return Metadata{}, false, fmt.Errorf("get %s metadata: %w", family, err)
	}

	var meta Metadata
	if err := json.Unmarshal(rec.Value, &meta); err != nil {
		return Metadata{}, false, fmt.Errorf("decode %s metadata: %w", family, err)
	}
	return meta, true, nil
}

func toRecords(recs []storage.Record) []Record {
	out := make([]Record, len(recs))
	for i, r := range recs {
		out[i] = Record{ID: r.Key, Data: r.Value}
	}
	return out
}
