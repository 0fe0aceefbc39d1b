// Package storagetest holds behaviour tests shared by every storage.RecordStore
// implementation.
package storagetest

import (
	"context"
	"errors"
	"testing"

	"github.com/mmynk/splitplus/internal/storage"
)

// Run exercises store against the RecordStore contract. The store must be empty.
func Run(t *testing.T, store storage.RecordStore) {
	t.Helper()
	ctx := context.Background()

	put := func(t *testing.T, c storage.Collection, rec *storage.Record) {
		t.Helper()
		if err := store.Put(ctx, c, rec); err != nil {
			t.Fatalf("Put(%s) failed: %v", rec.ID, err)
		}
	}

	t.Run("Get returns what Put stored", func(t *testing.T) {
		put(t, storage.Expenses, &storage.Record{ID: "e1", GroupID: "g1", CreatedAt: 100, Data: []byte(`{"a":1}`)})

		rec, err := store.Get(ctx, storage.Expenses, "e1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if rec.GroupID != "g1" || rec.CreatedAt != 100 || string(rec.Data) != `{"a":1}` {
			t.Errorf("unexpected record: %+v", rec)
		}
	})

	t.Run("Get returns ErrRecordNotFound for missing record", func(t *testing.T) {
		_, err := store.Get(ctx, storage.Expenses, "missing")
		if !errors.Is(err, storage.ErrRecordNotFound) {
			t.Errorf("expected ErrRecordNotFound, got %v", err)
		}
	})

	t.Run("collections are separate", func(t *testing.T) {
		_, err := store.Get(ctx, storage.Groups, "e1")
		if !errors.Is(err, storage.ErrRecordNotFound) {
			t.Errorf("expected ErrRecordNotFound across collections, got %v", err)
		}
	})

	t.Run("Put replaces existing record", func(t *testing.T) {
		put(t, storage.Expenses, &storage.Record{ID: "e1", GroupID: "g1", CreatedAt: 100, Data: []byte(`{"a":2}`)})

		rec, err := store.Get(ctx, storage.Expenses, "e1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(rec.Data) != `{"a":2}` {
			t.Errorf("Data = %s, want replaced document", rec.Data)
		}
	})

	t.Run("Put without ID fails", func(t *testing.T) {
		if err := store.Put(ctx, storage.Expenses, &storage.Record{Data: []byte(`{}`)}); err == nil {
			t.Error("expected error for empty ID")
		}
	})

	t.Run("List filters by group newest first", func(t *testing.T) {
		put(t, storage.Expenses, &storage.Record{ID: "e2", GroupID: "g1", CreatedAt: 300, Data: []byte(`{}`)})
		put(t, storage.Expenses, &storage.Record{ID: "e3", GroupID: "g1", CreatedAt: 200, Data: []byte(`{}`)})
		put(t, storage.Expenses, &storage.Record{ID: "e4", GroupID: "g2", CreatedAt: 400, Data: []byte(`{}`)})

		recs, err := store.List(ctx, storage.Expenses, storage.Filter{GroupID: "g1"})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		want := []string{"e2", "e3", "e1"}
		if len(recs) != len(want) {
			t.Fatalf("got %d records, want %d", len(recs), len(want))
		}
		for i, id := range want {
			if recs[i].ID != id {
				t.Errorf("record %d = %s, want %s", i, recs[i].ID, id)
			}
		}

		all, err := store.List(ctx, storage.Expenses, storage.Filter{})
		if err != nil {
			t.Fatalf("List all failed: %v", err)
		}
		if len(all) != 4 {
			t.Errorf("got %d records, want 4", len(all))
		}
	})

	t.Run("Delete is idempotent", func(t *testing.T) {
		if err := store.Delete(ctx, storage.Expenses, "e3"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if err := store.Delete(ctx, storage.Expenses, "e3"); err != nil {
			t.Fatalf("second Delete failed: %v", err)
		}
		if _, err := store.Get(ctx, storage.Expenses, "e3"); !errors.Is(err, storage.ErrRecordNotFound) {
			t.Errorf("expected deleted record to be gone, got %v", err)
		}
	})

	t.Run("DeleteWhere removes only the group", func(t *testing.T) {
		if err := store.DeleteWhere(ctx, storage.Expenses, storage.Filter{GroupID: "g1"}); err != nil {
			t.Fatalf("DeleteWhere failed: %v", err)
		}
		recs, err := store.List(ctx, storage.Expenses, storage.Filter{})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(recs) != 1 || recs[0].ID != "e4" {
			t.Errorf("remaining records = %v, want only e4", recs)
		}
	})
}
