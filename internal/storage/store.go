// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"
)

// ErrRecordNotFound is returned by Get when no record has the given ID.
var ErrRecordNotFound = errors.New("record not found")

// Collection names a set of records of one kind.
type Collection string

const (
	Users    Collection = "users"
	Groups   Collection = "groups"
	Expenses Collection = "expenses"
)

// Record is a stored document. Data is opaque to the store; GroupID and
// CreatedAt are kept alongside it so records can be filtered and ordered
// without decoding.
type Record struct {
	ID        string
	GroupID   string
	CreatedAt int64
	Data      []byte
}

// Filter narrows List results. The zero Filter matches every record.
type Filter struct {
	GroupID string
}

// RecordStore defines the interface for record storage operations.
// This abstraction allows swapping storage backends (SQLite, in-memory, etc.)
// without changing the repositories built on top of it.
type RecordStore interface {
	// Get retrieves a record by ID.
	// Returns ErrRecordNotFound if there is no such record.
	Get(ctx context.Context, c Collection, id string) (*Record, error)

	// List returns the records of a collection matching filter, newest first.
	List(ctx context.Context, c Collection, filter Filter) ([]*Record, error)

	// Put inserts or fully replaces the record with the same ID.
	Put(ctx context.Context, c Collection, rec *Record) error

	// Delete removes a record by ID. Deleting a missing record is not an error.
	Delete(ctx context.Context, c Collection, id string) error

	// DeleteWhere removes every record matching filter.
	DeleteWhere(ctx context.Context, c Collection, filter Filter) error

	// Close releases any resources held by the store.
	Close() error
}
