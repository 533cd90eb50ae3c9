package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cartaomais/appcore/internal/apperrors"
	"github.com/cartaomais/appcore/internal/kvstore"
	"github.com/cartaomais/appcore/internal/logging"
)

func newTestStore(refresh RefreshFunc) (*Store, *kvstore.Codec) {
	codec := kvstore.NewCodec(kvstore.NewMemoryStore(), logging.Discard())
	return NewStore(codec, refresh, logging.Discard()), codec
}

func TestStore_LoadAdoptsPersistedSession(t *testing.T) {
	ctx := context.Background()
	codec := kvstore.NewCodec(kvstore.NewMemoryStore(), logging.Discard())
	persisted := Session{AccessToken: "tok", TokenType: "bearer", ExpiresIn: 3600}
	if err := codec.Set(ctx, kvstore.KeySession, persisted); err != nil {
		t.Fatalf("seed: %v", err)
	}

	store := NewStore(codec, nil, logging.Discard())
	if err := store.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !store.Loaded() {
		t.Fatal("Loaded() = false after Load")
	}
	if !store.LoggedIn() || store.AccessToken() != "tok" {
		t.Fatalf("session not adopted: %+v", store.Current())
	}
}

func TestStore_LoadWithoutPersistedStaysLoggedOut(t *testing.T) {
	store, _ := newTestStore(nil)
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if store.LoggedIn() {
		t.Fatal("logged in with no persisted session")
	}
	if !store.Loaded() {
		t.Fatal("Loaded() must be true even with no data")
	}
}

func TestStore_SetPersistsAndNotifies(t *testing.T) {
	ctx := context.Background()
	store, codec := newTestStore(nil)

	var notified Session
	store.OnChange(func(s Session) { notified = s })

	next := Session{AccessToken: "new", MenuPermissions: []string{"home"}}
	if err := store.Set(ctx, next); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if notified.AccessToken != "new" {
		t.Fatalf("subscriber saw %+v", notified)
	}

	var persisted Session
	found, err := codec.Get(ctx, kvstore.KeySession, &persisted)
	if err != nil || !found {
		t.Fatalf("persisted read: found=%v err=%v", found, err)
	}
	if persisted.AccessToken != "new" {
		t.Fatalf("persisted = %+v", persisted)
	}
}

func TestStore_ClearResetsToLoggedOut(t *testing.T) {
	ctx := context.Background()
	store, codec := newTestStore(nil)
	if err := store.Set(ctx, Session{AccessToken: "tok"}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if store.LoggedIn() {
		t.Fatal("still logged in after Clear")
	}

	var persisted Session
	found, _ := codec.Get(ctx, kvstore.KeySession, &persisted)
	if found {
		t.Fatal("session blob still persisted after Clear")
	}
}

func TestStore_RefreshSuccessAdoptsNewSession(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(func(ctx context.Context, current Session) (Session, error) {
		if current.AccessToken != "old" {
			t.Fatalf("refresh saw token %q", current.AccessToken)
		}
		return Session{AccessToken: "refreshed"}, nil
	})
	if err := store.Set(ctx, Session{AccessToken: "old"}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if err := store.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if store.AccessToken() != "refreshed" {
		t.Fatalf("token = %q", store.AccessToken())
	}
}

func TestStore_RefreshFailureKeepsStaleSession(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(func(ctx context.Context, current Session) (Session, error) {
		return Session{}, apperrors.Network("refresh", nil)
	})
	if err := store.Set(ctx, Session{AccessToken: "stale"}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if err := store.Refresh(ctx); err == nil {
		t.Fatal("Refresh returned nil error")
	}
	if store.AccessToken() != "stale" {
		t.Fatalf("stale session replaced: %q", store.AccessToken())
	}
}

func TestStore_RefreshRejectionClearsSession(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(func(ctx context.Context, current Session) (Session, error) {
		return Session{}, apperrors.CannotRefreshToken(nil)
	})
	if err := store.Set(ctx, Session{AccessToken: "doomed"}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	err := store.Refresh(ctx)
	if !apperrors.IsCode(err, apperrors.CodeCannotRefreshToken) {
		t.Fatalf("err = %v", err)
	}
	if store.LoggedIn() {
		t.Fatal("session survived a rejected refresh token")
	}
}

func TestStore_RefreshWhileLoggedOutIsNoop(t *testing.T) {
	var calls int32
	store, _ := newTestStore(func(ctx context.Context, current Session) (Session, error) {
		atomic.AddInt32(&calls, 1)
		return Session{}, nil
	})

	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatal("refresh endpoint called while logged out")
	}
}

func TestStore_RefreshSingleFlight(t *testing.T) {
	ctx := context.Background()

	var calls int32
	release := make(chan struct{})
	store, _ := newTestStore(func(ctx context.Context, current Session) (Session, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return Session{AccessToken: "coalesced"}, nil
	})
	if err := store.Set(ctx, Session{AccessToken: "old"}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	const concurrent = 8
	var wg sync.WaitGroup
	errs := make([]error, concurrent)
	for i := 0; i < concurrent; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.Refresh(ctx)
		}(i)
	}

	// Give the goroutines time to pile onto the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("refresh endpoint called %d times, want 1", got)
	}
	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
	}
	if store.AccessToken() != "coalesced" {
		t.Fatalf("token = %q", store.AccessToken())
	}
}
