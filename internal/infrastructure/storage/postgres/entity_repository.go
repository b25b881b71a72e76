package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"fieldsync/internal/domain/entity"
)

type EntityRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewEntityRepository(pool *pgxpool.Pool, log *slog.Logger) *EntityRepository {
	return &EntityRepository{
		pool: pool,
		log:  log.With("component", "entity_repository"),
	}
}

const entityColumns = `id, family, data, due_at, created_at, updated_at`

func (r *EntityRepository) List(ctx context.Context, family entity.Family) ([]entity.Entity, error) {
	const query = `
		SELECT ` + entityColumns + `
		FROM entities
		WHERE family = $1
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, string(family))
	if err != nil {
		r.log.Error("failed to list entities", "family", family, "error", err)
		return nil, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()

	return r.scanEntities(rows)
}

func (r *EntityRepository) ListDue(ctx context.Context, family entity.Family, from, to time.Time) ([]entity.Entity, error) {
	const query = `
		SELECT ` + entityColumns + `
		FROM entities
		WHERE family = $1 AND due_at >= $2 AND due_at < $3
		ORDER BY due_at, id`

	rows, err := r.pool.Query(ctx, query, string(family), from, to)
	if err != nil {
		r.log.Error("failed to list due entities", "family", family, "error", err)
		return nil, fmt.Errorf("list due entities: %w", err)
	}
	defer rows.Close()

	return r.scanEntities(rows)
}

func (r *EntityRepository) Get(ctx context.Context, family entity.Family, id int64) (entity.Entity, error) {
	const query = `
		SELECT ` + entityColumns + `
		FROM entities
		WHERE family = $1 AND id = $2`

	e, err := r.scanEntity(r.pool.QueryRow(ctx, query, string(family), id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.Entity{}, entity.ErrNotFound
		}
		r.log.Error("failed to get entity", "family", family, "id", id, "error", err)
		return entity.Entity{}, fmt.Errorf("get entity: %w", err)
	}
	return e, nil
}

func (r *EntityRepository) Create(ctx context.Context, e *entity.Entity) error {
	const query = `
		INSERT INTO entities (family, data, due_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err := r.pool.QueryRow(ctx, query, string(e.Family), []byte(e.Data), e.DueAt, e.CreatedAt, e.UpdatedAt).Scan(&e.ID)
	if err != nil {
		r.log.Error("failed to create entity", "family", e.Family, "error", err)
		return fmt.Errorf("create entity: %w", err)
	}
	return nil
}

func (r *EntityRepository) Update(ctx context.Context, e *entity.Entity) error {
	const query = `
		UPDATE entities
		SET data = $1, due_at = $2, updated_at = $3
		WHERE family = $4 AND id = $5`

	tag, err := r.pool.Exec(ctx, query, []byte(e.Data), e.DueAt, e.UpdatedAt, string(e.Family), e.ID)
	if err != nil {
		r.log.Error("failed to update entity", "family", e.Family, "id", e.ID, "error", err)
		return fmt.Errorf("update entity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (r *EntityRepository) Delete(ctx context.Context, family entity.Family, id int64) error {
	const query = `DELETE FROM entities WHERE family = $1 AND id = $2`

	tag, err := r.pool.Exec(ctx, query, string(family), id)
	if err != nil {
		r.log.Error("failed to delete entity", "family", family, "id", id, "error", err)
		return fmt.Errorf("delete entity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (r *EntityRepository) FindReplay(ctx context.Context, key string) (entity.Replay, bool, error) {
	const query = `SELECT status, response FROM idempotency_keys WHERE key = $1`

	rp := entity.Replay{Key: key}
	var response []byte
	err := r.pool.QueryRow(ctx, query, key).Scan(&rp.Status, &response)
	if errors.Is(err, pgx.ErrNoRows) {
		return entity.Replay{}, false, nil
	}
	if err != nil {
		return entity.Replay{}, false, fmt.Errorf("find idempotency key: %w", err)
	}
	rp.Response = response
	return rp, true, nil
}

func (r *EntityRepository) SaveReplay(ctx context.Context, rp entity.Replay) error {
	const query = `
		INSERT INTO idempotency_keys (key, status, response)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO NOTHING`

	if _, err := r.pool.Exec(ctx, query, rp.Key, rp.Status, []byte(rp.Response)); err != nil {
		return fmt.Errorf("save idempotency key: %w", err)
	}
	return nil
}

func (r *EntityRepository) scanEntities(rows pgx.Rows) ([]entity.Entity, error) {
	out := make([]entity.Entity, 0)
	for rows.Next() {
		e, err := r.scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entities: %w", err)
	}
	return out, nil
}

func (r *EntityRepository) scanEntity(row pgx.Row) (entity.Entity, error) {
	var (
		e      entity.Entity
		family string
		data   []byte
	)
	if err := row.Scan(&e.ID, &family, &data, &e.DueAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return entity.Entity{}, err
	}
	e.Family = entity.Family(family)
	e.Data = data
	return e, nil
}
