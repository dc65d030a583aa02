package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const (
	selectDocument = `SELECT body FROM state_document WHERE id = 1`
	upsertDocument = `INSERT INTO state_document (id, body, updated_at) VALUES (1, ?, ?)
ON CONFLICT(id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`
)

// SQLiteStore keeps the document in a single row of a SQLite database.
type SQLiteStore struct {
	db            *sql.DB
	schemaVersion uint
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := migrateStateSchema(dbPath)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, schemaVersion: version}, nil
}

// SchemaVersion is the migration version the database was opened at.
func (s *SQLiteStore) SchemaVersion() uint {
	return s.schemaVersion
}

func (s *SQLiteStore) Load(ctx context.Context) ([]byte, error) {
	var body string
	err := s.db.QueryRowContext(ctx, selectDocument).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("select state document: %w", err)
	}
	return []byte(body), nil
}

func (s *SQLiteStore) Save(ctx context.Context, data []byte) error {
	if _, err := s.db.ExecContext(ctx, upsertDocument, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert state document: %w", err)
	}
	slog.DebugContext(ctx, "State saved to SQLite", "bytes", len(data))
	return nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
