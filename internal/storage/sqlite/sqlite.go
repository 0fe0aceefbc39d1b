// Package sqlite provides a SQLite-backed implementation of the storage.RecordStore interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/splitplus/internal/storage"
)

// Ensure SQLiteStore implements storage.RecordStore
var _ storage.RecordStore = (*SQLiteStore)(nil)

// SQLiteStore implements storage.RecordStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer; serialize through one connection
	// instead of surfacing SQLITE_BUSY to callers.
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get retrieves a record by collection and ID.
func (s *SQLiteStore) Get(ctx context.Context, c storage.Collection, id string) (*storage.Record, error) {
	rec := &storage.Record{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, group_id, created_at, data FROM records WHERE collection = ? AND id = ?",
		string(c), id,
	).Scan(&rec.ID, &rec.GroupID, &rec.CreatedAt, &rec.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %s: %w", c, id, storage.ErrRecordNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return rec, nil
}

// List returns matching records ordered by created_at descending.
func (s *SQLiteStore) List(ctx context.Context, c storage.Collection, filter storage.Filter) ([]*storage.Record, error) {
	query := "SELECT id, group_id, created_at, data FROM records WHERE collection = ?"
	args := []any{string(c)}
	if filter.GroupID != "" {
		query += " AND group_id = ?"
		args = append(args, filter.GroupID)
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []*storage.Record
	for rows.Next() {
		rec := &storage.Record{}
		if err := rows.Scan(&rec.ID, &rec.GroupID, &rec.CreatedAt, &rec.Data); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}

	return records, nil
}

// Put inserts the record or replaces the existing one with the same ID.
func (s *SQLiteStore) Put(ctx context.Context, c storage.Collection, rec *storage.Record) error {
	if rec.ID == "" {
		return errors.New("record ID is required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (collection, id, group_id, created_at, data) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (collection, id) DO UPDATE SET
		     group_id = excluded.group_id,
		     created_at = excluded.created_at,
		     data = excluded.data`,
		string(c), rec.ID, rec.GroupID, rec.CreatedAt, rec.Data,
	)
	if err != nil {
		return fmt.Errorf("failed to put record: %w", err)
	}
	return nil
}

// Delete removes a record by ID.
func (s *SQLiteStore) Delete(ctx context.Context, c storage.Collection, id string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM records WHERE collection = ? AND id = ?",
		string(c), id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

// DeleteWhere removes every record in the collection matching filter.
func (s *SQLiteStore) DeleteWhere(ctx context.Context, c storage.Collection, filter storage.Filter) error {
	query := "DELETE FROM records WHERE collection = ?"
	args := []any{string(c)}
	if filter.GroupID != "" {
		query += " AND group_id = ?"
		args = append(args, filter.GroupID)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete records: %w", err)
	}
	return nil
}
