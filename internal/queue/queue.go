// Package queue — долговременная очередь недоставленных webhook-payload'ов
// поверх SQLite. Одна append-only таблица: автоинкрементный id задаёт порядок
// переотправки (FIFO), payload хранится сырым JSON-текстом, created_at —
// диагностическое поле. Никаких других инвариантов у хранилища нет.
package queue

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"telegram-chanreader/internal/infra/storage"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS queue (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	payload TEXT NOT NULL,
	created_at TEXT NOT NULL
);
`

// Store инкапсулирует подключение к файлу очереди.
// Потокобезопасность обеспечивает database/sql; доступ из поллера и
// ресендера идёт через независимые операции без общего состояния.
type Store struct {
	db *sql.DB
}

// Entry — одна строка очереди. Payload отдаётся байтами как записан:
// round-trip через хранилище обязан быть побайтово стабильным.
type Entry struct {
	ID        int64
	Payload   []byte
	CreatedAt string
}

// Open открывает (при необходимости создаёт) файл очереди и накатывает схему.
func Open(path string) (*Store, error) {
	if err := storage.EnsureDir(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open queue db: %w", err)
	}
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping queue db: %w", err)
	}
	if _, err = db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init queue schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close закрывает подключение к базе.
func (s *Store) Close() error {
	return s.db.Close()
}

// Enqueue добавляет payload в хвост очереди.
func (s *Store) Enqueue(ctx context.Context, payload []byte) error {
	createdAt := time.Now().UTC().Format(time.RFC3339)
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO queue (payload, created_at) VALUES (?, ?)`,
		string(payload), createdAt,
	); err != nil {
		return fmt.Errorf("enqueue payload: %w", err)
	}
	return nil
}

// List возвращает все записи в порядке вставки (возрастание id).
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, payload, created_at FROM queue ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var payload string
		if err = rows.Scan(&e.ID, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan queue row: %w", err)
		}
		e.Payload = []byte(payload)
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queue rows: %w", err)
	}
	return entries, nil
}

// Delete удаляет запись по id. Удаление несуществующей строки не ошибка.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM queue WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete queue entry %d: %w", id, err)
	}
	return nil
}

// Len возвращает текущий размер очереди.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count queue: %w", err)
	}
	return n, nil
}
