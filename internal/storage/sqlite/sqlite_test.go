package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mmynk/splitplus/internal/storage"
	"github.com/mmynk/splitplus/internal/storage/storagetest"
)

func TestSQLiteStore(t *testing.T) {
	// Create temp directory for test database
	tempDir, err := os.MkdirTemp("", "splitplus-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	store, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	storagetest.Run(t, store)
}

func TestNew_CreatesParentDirectories(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "splitplus.db")

	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("expected database file at %s: %v", dbPath, err)
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	rec := &storage.Record{ID: "g1", CreatedAt: 1, Data: []byte(`{"name":"Roommates"}`)}
	if err := store.Put(ctx, storage.Groups, rec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	store.Close()

	reopened, err := New(dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, storage.Groups, "g1")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if string(got.Data) != string(rec.Data) {
		t.Errorf("Data = %s, want %s", got.Data, rec.Data)
	}
}
