// Package entitystore репозиторий сущностей песочницы поверх коллекций
// локального хранилища (память или SQLite).
package entitystore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"golang.org/x/exp/slog"

	"fieldsync/internal/domain/entity"
	"fieldsync/internal/infrastructure/storage"
)

const (
	entityPrefix       = "entities_"
	idempotencyEntries = "idempotency_keys"
)

type Repository struct {
	store storage.Store
	log   *slog.Logger
}

func New(store storage.Store, log *slog.Logger) *Repository {
	return &Repository{
		store: store,
		log:   log.With("component", "entity_repository"),
	}
}

func (r *Repository) collection(ctx context.Context, family entity.Family) (storage.Collection, error) {
	return r.store.Collection(ctx, entityPrefix+string(family))
}

func (r *Repository) List(ctx context.Context, family entity.Family) ([]entity.Entity, error) {
	c, err := r.collection(ctx, family)
	if err != nil {
		return nil, err
	}
	recs, err := c.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	return decodeAll(recs)
}

func (r *Repository) ListDue(ctx context.Context, family entity.Family, from, to time.Time) ([]entity.Entity, error) {
	c, err := r.collection(ctx, family)
	if err != nil {
		return nil, err
	}
	recs, err := c.GetAllByIndexRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list due entities: %w", err)
	}
	all, err := decodeAll(recs)
	if err != nil {
		return nil, err
	}

	// индекс без даты хранится как нулевое время и попадает в открытый снизу диапазон
	due := make([]entity.Entity, 0, len(all))
	for _, e := range all {
		if e.DueAt != nil && e.DueAt.Before(to) {
			due = append(due, e)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].DueAt.Before(*due[j].DueAt)
	})
	return due, nil
}

func (r *Repository) Get(ctx context.Context, family entity.Family, id int64) (entity.Entity, error) {
	c, err := r.collection(ctx, family)
	if err != nil {
		return entity.Entity{}, err
	}
	rec, err := c.Get(ctx, strconv.FormatInt(id, 10))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return entity.Entity{}, entity.ErrNotFound
		}
		return entity.Entity{}, fmt.Errorf("get entity: %w", err)
	}
	return decode(rec)
}

// Create идентификатор назначает хранилище
func (r *Repository) Create(ctx context.Context, e *entity.Entity) error {
	c, err := r.collection(ctx, e.Family)
	if err != nil {
		return err
	}
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entity: %w", err)
	}
	rec, err := c.Put(ctx, storage.Record{Index: index(e), Value: value})
	if err != nil {
		return fmt.Errorf("create entity: %w", err)
	}
	if e.ID, err = strconv.ParseInt(rec.Key, 10, 64); err != nil {
		return fmt.Errorf("%w: bad key %q", storage.ErrStorage, rec.Key)
	}

	// сохраненное значение должно содержать назначенный id
	return r.put(ctx, c, e)
}

func (r *Repository) Update(ctx context.Context, e *entity.Entity) error {
	c, err := r.collection(ctx, e.Family)
	if err != nil {
		return err
	}
	if _, err := c.Get(ctx, strconv.FormatInt(e.ID, 10)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return entity.ErrNotFound
		}
		return fmt.Errorf("get entity: %w", err)
	}
	return r.put(ctx, c, e)
}

func (r *Repository) put(ctx context.Context, c storage.Collection, e *entity.Entity) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entity: %w", err)
	}
	if _, err := c.Put(ctx, storage.Record{Key: strconv.FormatInt(e.ID, 10), Index: index(e), Value: value}); err != nil {
		return fmt.Errorf("save entity: %w", err)
	}
	r.log.Debug("entity stored", "family", e.Family, "id", e.ID)
	return nil
}

func (r *Repository) Delete(ctx context.Context, family entity.Family, id int64) error {
	c, err := r.collection(ctx, family)
	if err != nil {
		return err
	}
	if err := c.Delete(ctx, strconv.FormatInt(id, 10)); err != nil {
		return fmt.Errorf("delete entity: %w", err)
	}
	return nil
}

func (r *Repository) FindReplay(ctx context.Context, key string) (entity.Replay, bool, error) {
	c, err := r.store.Collection(ctx, idempotencyEntries)
	if err != nil {
		return entity.Replay{}, false, err
	}
	rec, err := c.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return entity.Replay{}, false, nil
	}
	if err != nil {
		return entity.Replay{}, false, fmt.Errorf("get idempotency key: %w", err)
	}

	var stored struct {
		Status   int             `json:"status"`
		Response json.RawMessage `json:"response"`
	}
	if err := json.Unmarshal(rec.Value, &stored); err != nil {
		return entity.Replay{}, false, fmt.Errorf("decode idempotency key: %w", err)
	}
	return entity.Replay{Key: key, Status: stored.Status, Response: stored.Response}, true, nil
}

func (r *Repository) SaveReplay(ctx context.Context, rp entity.Replay) error {
	c, err := r.store.Collection(ctx, idempotencyEntries)
	if err != nil {
		return err
	}
	value, err := json.Marshal(struct {
		Status   int             `json:"status"`
		Response json.RawMessage `json:"response"`
	}{rp.Status, rp.Response})
	if err != nil {
		return fmt.Errorf("encode idempotency key: %w", err)
	}
	if _, err := c.Put(ctx, storage.Record{Key: rp.Key, Index: time.Now(), Value: value}); err != nil {
		return fmt.Errorf("save idempotency key: %w", err)
	}
	return nil
}

func index(e *entity.Entity) time.Time {
	if e.DueAt == nil {
		return time.Time{}
	}
	return *e.DueAt
}

func decodeAll(recs []storage.Record) ([]entity.Entity, error) {
	out := make([]entity.Entity, 0, len(recs))
	for _, rec := range recs {
		e, err := decode(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func decode(rec storage.Record) (entity.Entity, error) {
	var e entity.Entity
	if err := json.Unmarshal(rec.Value, &e); err != nil {
		return entity.Entity{}, fmt.Errorf("decode entity %s: %w", rec.Key, err)
	}
	return e, nil
}
