package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Record единица хранения в коллекции локального хранилища.
// Key уникален в пределах коллекции, Index используется для выборок по диапазону.
type Record struct {
	Key   string
	Index time.Time
	Value []byte
}

// Collection доступ к одной коллекции хранилища. Каждый вызов атомарен.
type Collection interface {
	Name() string
	Get(ctx context.Context, key string) (Record, error)
	// GetAll возвращает записи в порядке вставки.
	GetAll(ctx context.Context) ([]Record, error)
	// GetAllByIndexRange возвращает записи с from <= Index <= to в порядке вставки.
	GetAllByIndexRange(ctx context.Context, from, to time.Time) ([]Record, error)
	// Put вставляет или перезаписывает запись. Пустой Key означает
	// автоматически назначенный монотонно растущий ключ.
	Put(ctx context.Context, rec Record) (Record, error)
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}

// Store локальное хранилище из нескольких именованных коллекций.
type Store interface {
	// Collection возвращает коллекцию, создавая ее при первом обращении.
	Collection(ctx context.Context, name string) (Collection, error)
	Close() error
}

// PutAll записывает каждую запись отдельной операцией. Неудачная запись
// не отменяет остальные; ошибки объединяются.
func PutAll(ctx context.Context, c Collection, recs []Record) error {
	var errs []error
	for _, rec := range recs {
		if _, err := c.Put(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("put %s/%s: %w", c.Name(), rec.Key, err))
		}
	}
	return errors.Join(errs...)
}

// ValidateName проверяет имя коллекции.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty collection name", ErrStorage)
	}
	return nil
}
