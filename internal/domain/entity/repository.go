package entity

import (
	"context"
	"time"
)

// Repository хранилище сущностей и ключей идемпотентности
type Repository interface {
	List(ctx context.Context, family Family) ([]Entity, error)
	// ListDue сущности с датой в полуинтервале [from, to), по возрастанию даты
	ListDue(ctx context.Context, family Family, from, to time.Time) ([]Entity, error)
	Get(ctx context.Context, family Family, id int64) (Entity, error)
	Create(ctx context.Context, e *Entity) error
	Update(ctx context.Context, e *Entity) error
	Delete(ctx context.Context, family Family, id int64) error

	FindReplay(ctx context.Context, key string) (Replay, bool, error)
	SaveReplay(ctx context.Context, r Replay) error
}
