package mutation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
	"golang.org/x/net/http/httpguts"

	"fieldsync/internal/infrastructure/storage"
)

// Queue очередь неподтвержденных записей поверх локального хранилища.
// Порядок выдачи совпадает с порядком постановки.
type Queue struct {
	pending storage.Collection
	dead    storage.Collection
	log     *slog.Logger
	now     func() time.Time

	// сериализует чтение-изменение-запись в MarkRetried
	mu sync.Mutex
}

// NewQueue открывает коллекции очереди в хранилище.
func NewQueue(ctx context.Context, store storage.Store, log *slog.Logger) (*Queue, error) {
	pending, err := store.Collection(ctx, PendingCollection)
	if err != nil {
		return nil, fmt.Errorf("open pending collection: %w", err)
	}
	dead, err := store.Collection(ctx, DeadLetterCollection)
	if err != nil {
		return nil, fmt.Errorf("open dead letter collection: %w", err)
	}

	return &Queue{
		pending: pending,
		dead:    dead,
		log:     log.With("component", "mutation_queue"),
		now:     time.Now,
	}, nil
}

// WithClock подменяет источник времени.
func (q *Queue) WithClock(now func() time.Time) *Queue {
	q.now = now
	return q
}

// Enqueue ставит запись в очередь и возвращает назначенный хранилищем идентификатор.
// Если вызывающий не передал Idempotency-Key, он генерируется здесь и
// сохраняется вместе с записью, так что все повторы несут один ключ.
func (q *Queue) Enqueue(ctx context.Context, endpoint, method string, headers map[string]string, payload []byte) (Mutation, error) {
	endpoint = strings.TrimSpace(endpoint)
	method = strings.ToUpper(strings.TrimSpace(method))
	if endpoint == "" || method == "" {
		return Mutation{}, fmt.Errorf("%w: endpoint and method are required", ErrInvalidMutation)
	}
	if !httpguts.ValidHeaderFieldName(method) {
		// метод это token, как и имя заголовка
		return Mutation{}, fmt.Errorf("%w: bad method %q", ErrInvalidMutation, method)
	}

	m := Mutation{
		Endpoint:   endpoint,
		Method:     method,
		Headers:    make(map[string]string, len(headers)+1),
		Payload:    append([]byte(nil), payload...),
		EnqueuedAt: q.now(),
	}
	for k, v := range headers {
		m.Headers[k] = v
	}
	if _, ok := m.Header(IdempotencyHeader); !ok {
		m.Headers[IdempotencyHeader] = uuid.NewString()
	}

	value, err := json.Marshal(m)
	if err != nil {
		return Mutation{}, fmt.Errorf("encode mutation: %w", err)
	}
	rec, err := q.pending.Put(ctx, storage.Record{Index: m.EnqueuedAt, Value: value})
	if err != nil {
		return Mutation{}, fmt.Errorf("enqueue mutation: %w", err)
	}
	if m.ID, err = parseID(rec.Key); err != nil {
		return Mutation{}, err
	}

	q.log.Debug("mutation enqueued", "id", m.ID, "method", m.Method, "endpoint", m.Endpoint)
	return m, nil
}

// ListAll возвращает все записи очереди, старые первыми.
func (q *Queue) ListAll(ctx context.Context) ([]Mutation, error) {
	recs, err := q.pending.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list mutations: %w", err)
	}
	return decodeAll(recs)
}

// ListEnqueuedBetween возвращает записи, поставленные в очередь в интервале [from, to].
func (q *Queue) ListEnqueuedBetween(ctx context.Context, from, to time.Time) ([]Mutation, error) {
	recs, err := q.pending.GetAllByIndexRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list mutations by range: %w", err)
	}
	return decodeAll(recs)
}

// Get возвращает запись по идентификатору.
func (q *Queue) Get(ctx context.Context, id int64) (Mutation, error) {
	rec, err := q.pending.Get(ctx, formatID(id))
	if errors.Is(err, storage.ErrNotFound) {
		return Mutation{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return Mutation{}, fmt.Errorf("get mutation %d: %w", id, err)
	}
	return decode(rec)
}

// Remove удаляет запись из очереди.
func (q *Queue) Remove(ctx context.Context, id int64) error {
	if err := q.pending.Delete(ctx, formatID(id)); err != nil {
		return fmt.Errorf("remove mutation %d: %w", id, err)
	}
	return nil
}

// MarkRetried увеличивает счетчик повторов на месте, не меняя позицию записи.
func (q *Queue) MarkRetried(ctx context.Context, id int64) (Mutation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	m, err := q.Get(ctx, id)
	if err != nil {
		return Mutation{}, err
	}
	m.RetryCount++

	value, err := json.Marshal(m)
	if err != nil {
		return Mutation{}, fmt.Errorf("encode mutation: %w", err)
	}
	if _, err := q.pending.Put(ctx, storage.Record{Key: formatID(id), Index: m.EnqueuedAt, Value: value}); err != nil {
		return Mutation{}, fmt.Errorf("mark mutation %d retried: %w", id, err)
	}
	return m, nil
}

// Count количество записей в очереди.
func (q *Queue) Count(ctx context.Context) (int, error) {
	n, err := q.pending.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count mutations: %w", err)
	}
	return n, nil
}

// Bury переносит запись в dead letters и удаляет ее из очереди.
// Сначала пишется dead letter, затем удаляется запись: сбой между шагами
// оставляет дубликат, а не потерю.
func (q *Queue) Bury(ctx context.Context, m Mutation, reason Reason, status int, cause error) (DeadLetter, error) {
	dl := DeadLetter{
		Mutation:    m,
		Reason:      reason,
		StatusCode:  status,
		DiscardedAt: q.now(),
	}
	if cause != nil {
		dl.Error = cause.Error()
	}

	value, err := json.Marshal(dl)
	if err != nil {
		return DeadLetter{}, fmt.Errorf("encode dead letter: %w", err)
	}
	rec, err := q.dead.Put(ctx, storage.Record{Index: dl.DiscardedAt, Value: value})
	if err != nil {
		return DeadLetter{}, fmt.Errorf("store dead letter: %w", err)
	}
	if dl.ID, err = parseID(rec.Key); err != nil {
		return DeadLetter{}, err
	}
	if err := q.Remove(ctx, m.ID); err != nil {
		return DeadLetter{}, err
	}

	q.log.Warn("mutation discarded",
		"id", m.ID,
		"endpoint", m.Endpoint,
		"reason", reason,
		"status", status,
		"retries", m.RetryCount,
	)
	return dl, nil
}

// ListDeadLetters возвращает отброшенные записи в порядке отбрасывания.
func (q *Queue) ListDeadLetters(ctx context.Context) ([]DeadLetter, error) {
	recs, err := q.dead.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}

	out := make([]DeadLetter, 0, len(recs))
	for _, rec := range recs {
		var dl DeadLetter
		if err := json.Unmarshal(rec.Value, &dl); err != nil {
			return nil, fmt.Errorf("decode dead letter %s: %w", rec.Key, err)
		}
		if dl.ID, err = parseID(rec.Key); err != nil {
			return nil, err
		}
		out = append(out, dl)
	}
	return out, nil
}

// ClearDeadLetters очищает dead letters.
func (q *Queue) ClearDeadLetters(ctx context.Context) error {
	if err := q.dead.Clear(ctx); err != nil {
		return fmt.Errorf("clear dead letters: %w", err)
	}
	return nil
}

func decodeAll(recs []storage.Record) ([]Mutation, error) {
	out := make([]Mutation, 0, len(recs))
	for _, rec := range recs {
		m, err := decode(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func decode(rec storage.Record) (Mutation, error) {
	var m Mutation
	if err := json.Unmarshal(rec.Value, &m); err != nil {
		return Mutation{}, fmt.Errorf("decode mutation %s: %w", rec.Key, err)
	}
	id, err := parseID(rec.Key)
	if err != nil {
		return Mutation{}, err
	}
	m.ID = id
	return m, nil
}

func parseID(key string) (int64, error) {
	id, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad key %q", storage.ErrStorage, key)
	}
	return id, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
