// Package repository maps domain models onto storage.RecordStore collections.
package repository

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mmynk/splitplus/internal/storage"
)

// ErrNotFound is returned when the requested entity does not exist.
var ErrNotFound = errors.New("not found")

func encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return data, nil
}

func decode(rec *storage.Record, v any) error {
	if err := json.Unmarshal(rec.Data, v); err != nil {
		return fmt.Errorf("failed to decode record %s: %w", rec.ID, err)
	}
	return nil
}

// notFound translates the store's missing-record error into ErrNotFound.
func notFound(kind, id string, err error) error {
	if errors.Is(err, storage.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
