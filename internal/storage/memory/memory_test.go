package memory

import (
	"context"
	"testing"

	"github.com/mmynk/splitplus/internal/storage"
	"github.com/mmynk/splitplus/internal/storage/storagetest"
)

func TestStore(t *testing.T) {
	storagetest.Run(t, New())
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.Put(ctx, storage.Users, &storage.Record{ID: "u1", Data: []byte("abc")}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	rec, err := s.Get(ctx, storage.Users, "u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	rec.Data[0] = 'z'

	again, _ := s.Get(ctx, storage.Users, "u1")
	if string(again.Data) != "abc" {
		t.Errorf("stored data mutated through returned record: %s", again.Data)
	}
}
