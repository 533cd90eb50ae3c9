package kvstore

import (
	"context"
	"errors"
	"testing"
)

// backendConformance exercises the Store contract against any backend.
func backendConformance(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) err = %v, want ErrNotFound", err)
	}

	if err := store.Set(ctx, "session", []byte(`{"v":1}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := store.Get(ctx, "session")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `{"v":1}` {
		t.Fatalf("Get = %s, want {\"v\":1}", got)
	}

	// Overwrite replaces wholesale.
	if err := store.Set(ctx, "session", []byte(`{"v":2}`)); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	got, err = store.Get(ctx, "session")
	if err != nil {
		t.Fatalf("Get after overwrite: %v", err)
	}
	if string(got) != `{"v":2}` {
		t.Fatalf("Get after overwrite = %s", got)
	}

	if err := store.Remove(ctx, "session"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := store.Get(ctx, "session"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after remove err = %v, want ErrNotFound", err)
	}

	// Removing an absent key must not fail.
	if err := store.Remove(ctx, "session"); err != nil {
		t.Fatalf("Remove absent: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	backendConformance(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	backendConformance(t, store)
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := first.Set(ctx, "cart", []byte(`persisted`)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	second, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := second.Get(ctx, "cart")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if string(got) != "persisted" {
		t.Fatalf("Get after reopen = %s", got)
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	original := []byte("abc")
	if err := store.Set(ctx, "k", original); err != nil {
		t.Fatalf("Set: %v", err)
	}
	original[0] = 'x'

	got, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "abc" {
		t.Fatalf("stored value aliased caller slice: %s", got)
	}

	got[0] = 'y'
	again, _ := store.Get(ctx, "k")
	if string(again) != "abc" {
		t.Fatalf("returned value aliased internal slice: %s", again)
	}
}
