package entity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	gosync "sync"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/exp/slog"
)

// Servicer операции над сущностями, которые использует HTTP слой
type Servicer interface {
	List(ctx context.Context, family string) ([]Entity, error)
	View(ctx context.Context, family, view string, days int) ([]Entity, error)
	Find(ctx context.Context, family string, id int64) (Entity, error)
	Create(ctx context.Context, family, key string, data json.RawMessage) (Result, error)
	Replace(ctx context.Context, family string, id int64, key string, data json.RawMessage) (Result, error)
	Patch(ctx context.Context, family string, id int64, key string, data json.RawMessage) (Result, error)
	Delete(ctx context.Context, family string, id int64, key string) (Result, error)
}

// Service бизнес-логика сущностей. Записи с ключом идемпотентности
// выполняются не больше одного раза.
type Service struct {
	repo Repository
	log  *slog.Logger
	now  func() time.Time

	// mu сериализует записи, чтобы проверка ключа и операция были атомарны
	mu gosync.Mutex
}

func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With("component", "entity_service"),
		now:  time.Now,
	}
}

// WithClock подменяет источник времени
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) List(ctx context.Context, family string) ([]Entity, error) {
	f, err := ParseFamily(family)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, f)
}

// View выборка по дате сущности:
// today текущие сутки, upcoming ближайшие days суток, follow-ups все
// просроченные и сегодняшние.
func (s *Service) View(ctx context.Context, family, view string, days int) ([]Entity, error) {
	f, err := ParseFamily(family)
	if err != nil {
		return nil, err
	}
	v, ok := ParseView(view)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownView, view)
	}

	now := s.now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	endOfDay := startOfDay.AddDate(0, 0, 1)

	switch v {
	case ViewToday:
		return s.repo.ListDue(ctx, f, startOfDay, endOfDay)
	case ViewUpcoming:
		if days <= 0 {
			days = DefaultUpcomingDays
		}
		return s.repo.ListDue(ctx, f, now, now.AddDate(0, 0, days))
	default:
		return s.repo.ListDue(ctx, f, time.Time{}, endOfDay)
	}
}

func (s *Service) Find(ctx context.Context, family string, id int64) (Entity, error) {
	f, err := ParseFamily(family)
	if err != nil {
		return Entity{}, err
	}
	return s.repo.Get(ctx, f, id)
}

func (s *Service) Create(ctx context.Context, family, key string, data json.RawMessage) (Result, error) {
	f, err := ParseFamily(family)
	if err != nil {
		return Result{}, err
	}
	due, err := dueAt(f, data)
	if err != nil {
		return Result{}, err
	}

	return s.idempotent(ctx, key, http.StatusCreated, func() (Entity, error) {
		now := s.now().UTC()
		e := Entity{
			Family:    f,
			Data:      data,
			DueAt:     due,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.Create(ctx, &e); err != nil {
			return Entity{}, err
		}
		s.log.Info("entity created", "family", f, "id", e.ID)
		return e, nil
	})
}

// Replace заменяет данные сущности целиком
func (s *Service) Replace(ctx context.Context, family string, id int64, key string, data json.RawMessage) (Result, error) {
	return s.update(ctx, family, id, key, func(json.RawMessage) (json.RawMessage, error) {
		return data, nil
	})
}

// Patch объединяет поля верхнего уровня; null удаляет поле
func (s *Service) Patch(ctx context.Context, family string, id int64, key string, data json.RawMessage) (Result, error) {
	return s.update(ctx, family, id, key, func(current json.RawMessage) (json.RawMessage, error) {
		return mergePatch(current, data)
	})
}

func (s *Service) update(ctx context.Context, family string, id int64, key string, apply func(json.RawMessage) (json.RawMessage, error)) (Result, error) {
	f, err := ParseFamily(family)
	if err != nil {
		return Result{}, err
	}

	return s.idempotent(ctx, key, http.StatusOK, func() (Entity, error) {
		e, err := s.repo.Get(ctx, f, id)
		if err != nil {
			return Entity{}, err
		}
		data, err := apply(e.Data)
		if err != nil {
			return Entity{}, err
		}
		due, err := dueAt(f, data)
		if err != nil {
			return Entity{}, err
		}
		e.Data, e.DueAt, e.UpdatedAt = data, due, s.now().UTC()
		if err := s.repo.Update(ctx, &e); err != nil {
			return Entity{}, err
		}
		s.log.Info("entity updated", "family", f, "id", id)
		return e, nil
	})
}

func (s *Service) Delete(ctx context.Context, family string, id int64, key string) (Result, error) {
	f, err := ParseFamily(family)
	if err != nil {
		return Result{}, err
	}

	return s.idempotent(ctx, key, http.StatusOK, func() (Entity, error) {
		e, err := s.repo.Get(ctx, f, id)
		if err != nil {
			return Entity{}, err
		}
		if err := s.repo.Delete(ctx, f, id); err != nil {
			return Entity{}, err
		}
		s.log.Info("entity deleted", "family", f, "id", id)
		return e, nil
	})
}

func (s *Service) idempotent(ctx context.Context, key string, status int, op func() (Entity, error)) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key != "" {
		r, ok, err := s.repo.FindReplay(ctx, key)
		if err != nil {
			return Result{}, fmt.Errorf("find idempotency key: %w", err)
		}
		if ok {
			var e Entity
			if err := json.Unmarshal(r.Response, &e); err != nil {
				return Result{}, fmt.Errorf("decode stored response: %w", err)
			}
			s.log.Info("idempotent replay", "key", key, "status", r.Status, "id", e.ID)
			return Result{Entity: e, Replayed: true}, nil
		}
	}

	e, err := op()
	if err != nil {
		return Result{}, err
	}

	if key != "" {
		body, err := json.Marshal(e)
		if err != nil {
			return Result{}, fmt.Errorf("encode response: %w", err)
		}
		if err := s.repo.SaveReplay(ctx, Replay{Key: key, Status: status, Response: body}); err != nil {
			s.log.Warn("failed to save idempotency key", "key", key, "error", err)
		}
	}
	return Result{Entity: e}, nil
}

func dueAt(f Family, data []byte) (*time.Time, error) {
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return nil, fmt.Errorf("%w: expected json object", ErrInvalidData)
	}

	v := gjson.GetBytes(data, f.DueField())
	if !v.Exists() || v.Type == gjson.Null {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidData, f.DueField(), err)
	}
	t = t.UTC()
	return &t, nil
}

func mergePatch(current, patch json.RawMessage) (json.RawMessage, error) {
	var base, changes map[string]json.RawMessage
	if err := json.Unmarshal(current, &base); err != nil {
		return nil, fmt.Errorf("%w: stored data: %v", ErrInvalidData, err)
	}
	if err := json.Unmarshal(patch, &changes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if base == nil {
		base = make(map[string]json.RawMessage, len(changes))
	}
	for k, v := range changes {
		if string(v) == "null" {
			delete(base, k)
			continue
		}
		base[k] = v
	}
	out, err := json.Marshal(base)
	if err != nil {
		return nil, fmt.Errorf("encode merged data: %w", err)
	}
	return out, nil
}
