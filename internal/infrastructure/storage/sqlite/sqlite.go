// Package sqlite локальное хранилище коллекций поверх SQLite.
//
// Все коллекции живут в одной таблице records. Порядок вставки задает
// автоинкрементный seq; перезапись записи по ключу seq не меняет.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"fieldsync/internal/infrastructure/migration"
	"fieldsync/internal/infrastructure/storage"
)

type Store struct {
	db   *sql.DB
	path string

	mu    sync.Mutex
	known map[string]*Collection
}

// Open открывает или создает базу по пути path и применяет миграции.
// Повторный вызов для того же файла безопасен.
func Open(path string) (*Store, error) {
	if err := migration.NewMigration(migration.SQLite, migration.SQLiteURL(path), nil).Up(); err != nil {
		return nil, fmt.Errorf("%w: migrate %s: %w", storage.ErrStorage, path, err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", storage.ErrStorage, path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping %s: %w", storage.ErrStorage, path, err)
	}

	// SQLite допускает одного писателя
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Store{db: db, path: path, known: make(map[string]*Collection)}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Collection(ctx context.Context, name string) (storage.Collection, error) {
	if err := storage.ValidateName(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.known[name]; ok {
		return c, nil
	}

	const query = `INSERT OR IGNORE INTO collections (name, created_at) VALUES (?, ?)`
	if _, err := s.db.ExecContext(ctx, query, name, time.Now().UnixNano()); err != nil {
		return nil, wrap("register collection "+name, err)
	}
	c := &Collection{db: s.db, name: name}
	s.known[name] = c
	return c, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

type Collection struct {
	db   *sql.DB
	name string
}

func (c *Collection) Name() string { return c.name }

func (c *Collection) Get(ctx context.Context, key string) (storage.Record, error) {
	const query = `SELECT key, idx, value FROM records WHERE collection = ? AND key = ?`

	rec, err := scanRecord(c.db.QueryRowContext(ctx, query, c.name, key))
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Record{}, fmt.Errorf("%s/%s: %w", c.name, key, storage.ErrNotFound)
	}
	if err != nil {
		return storage.Record{}, wrap("get "+c.name, err)
	}
	return rec, nil
}

func (c *Collection) GetAll(ctx context.Context) ([]storage.Record, error) {
	const query = `SELECT key, idx, value FROM records WHERE collection = ? ORDER BY seq`

	rows, err := c.db.QueryContext(ctx, query, c.name)
	if err != nil {
		return nil, wrap("get all "+c.name, err)
	}
	return collect(rows, c.name)
}

func (c *Collection) GetAllByIndexRange(ctx context.Context, from, to time.Time) ([]storage.Record, error) {
	const query = `
		SELECT key, idx, value FROM records
		WHERE collection = ? AND idx BETWEEN ? AND ?
		ORDER BY seq`

	rows, err := c.db.QueryContext(ctx, query, c.name, toIdx(from), toIdx(to))
	if err != nil {
		return nil, wrap("range "+c.name, err)
	}
	return collect(rows, c.name)
}

func (c *Collection) Put(ctx context.Context, rec storage.Record) (storage.Record, error) {
	if rec.Key != "" {
		const query = `
			INSERT INTO records (collection, key, idx, value) VALUES (?, ?, ?, ?)
			ON CONFLICT (collection, key) DO UPDATE SET idx = excluded.idx, value = excluded.value`

		if _, err := c.db.ExecContext(ctx, query, c.name, rec.Key, toIdx(rec.Index), rec.Value); err != nil {
			return storage.Record{}, wrap("put "+c.name, err)
		}
		return rec, nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.Record{}, wrap("begin put "+c.name, err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`INSERT INTO records (collection, key, idx, value) VALUES (?, NULL, ?, ?)`,
		c.name, toIdx(rec.Index), rec.Value)
	if err != nil {
		return storage.Record{}, wrap("insert "+c.name, err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return storage.Record{}, wrap("insert id "+c.name, err)
	}
	rec.Key = strconv.FormatInt(seq, 10)
	if _, err := tx.ExecContext(ctx, `UPDATE records SET key = ? WHERE seq = ?`, rec.Key, seq); err != nil {
		return storage.Record{}, wrap("assign key "+c.name, err)
	}
	if err := tx.Commit(); err != nil {
		return storage.Record{}, wrap("commit put "+c.name, err)
	}
	return rec, nil
}

func (c *Collection) Delete(ctx context.Context, key string) error {
	const query = `DELETE FROM records WHERE collection = ? AND key = ?`
	if _, err := c.db.ExecContext(ctx, query, c.name, key); err != nil {
		return wrap("delete "+c.name, err)
	}
	return nil
}

func (c *Collection) Clear(ctx context.Context) error {
	const query = `DELETE FROM records WHERE collection = ?`
	if _, err := c.db.ExecContext(ctx, query, c.name); err != nil {
		return wrap("clear "+c.name, err)
	}
	return nil
}

func (c *Collection) Count(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM records WHERE collection = ?`
	var n int
	if err := c.db.QueryRowContext(ctx, query, c.name).Scan(&n); err != nil {
		return 0, wrap("count "+c.name, err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (storage.Record, error) {
	var (
		rec storage.Record
		idx int64
	)
	if err := row.Scan(&rec.Key, &idx, &rec.Value); err != nil {
		return storage.Record{}, err
	}
	rec.Index = fromIdx(idx)
	return rec, nil
}

// Нулевое время хранится как 0.
func toIdx(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromIdx(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(0, v).UTC()
}

func collect(rows *sql.Rows, name string) ([]storage.Record, error) {
	defer rows.Close()

	var out []storage.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, wrap("scan "+name, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("rows "+name, err)
	}
	return out, nil
}

func wrap(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", storage.ErrStorage, op, err)
}
