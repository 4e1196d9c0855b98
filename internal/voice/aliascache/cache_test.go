package aliascache_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/quangvo/agripos/internal/voice/aliascache"
	"github.com/quangvo/agripos/pkg/catalog"
)

// stubSource is a scriptable alias Source.
type stubSource struct {
	mu      sync.Mutex
	aliases []catalog.Alias
	err     error
}

func (s *stubSource) VoiceAliases(context.Context) ([]catalog.Alias, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.aliases, nil
}

func (s *stubSource) set(aliases []catalog.Alias, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aliases = aliases
	s.err = err
}

// stubStore is an in-memory SnapshotStore recording Save calls.
type stubStore struct {
	mu        sync.Mutex
	saved     []catalog.Alias
	saveCalls int
	loadErr   error
	saveErr   error
}

func (s *stubStore) Save(_ context.Context, aliases []catalog.Alias) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveCalls++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append([]catalog.Alias(nil), aliases...)
	return nil
}

func (s *stubStore) Load(context.Context) ([]catalog.Alias, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.saved, nil
}

var (
	firstBatch  = []catalog.Alias{{AliasName: "cô ca", ProductID: 7}}
	secondBatch = []catalog.Alias{
		{AliasName: "đạm phú", ProductID: 2},
		{AliasName: "rio đỏ", ProductID: 1},
	}
)

func TestSync_ReplacesEntireCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	src := &stubSource{aliases: firstBatch}
	cache := aliascache.New(src)

	if err := cache.Sync(ctx); err != nil {
		t.Fatalf("first Sync: %v", err)
	}
	if got := cache.Aliases(); len(got) != 1 || got[0].AliasName != "cô ca" {
		t.Fatalf("after first sync: %+v", got)
	}

	src.set(secondBatch, nil)
	if err := cache.Sync(ctx); err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	got := cache.Aliases()
	if len(got) != 2 {
		t.Fatalf("after second sync: got %d aliases, want 2", len(got))
	}
	// Full replacement: the first batch must be gone.
	for _, a := range got {
		if a.AliasName == "cô ca" {
			t.Errorf("stale alias %q survived the sync", a.AliasName)
		}
	}
}

func TestSync_FailureLeavesCacheUntouched(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	src := &stubSource{aliases: firstBatch}
	cache := aliascache.New(src)
	if err := cache.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	src.set(nil, errors.New("backend unreachable"))
	if err := cache.Sync(ctx); err == nil {
		t.Fatal("Sync with failing source returned nil error")
	}
	if got := cache.Aliases(); len(got) != 1 || got[0].AliasName != "cô ca" {
		t.Fatalf("cache changed after failed sync: %+v", got)
	}
}

func TestSync_PersistsSnapshot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := &stubStore{}
	cache := aliascache.New(&stubSource{aliases: firstBatch}, aliascache.WithSnapshotStore(store))

	if err := cache.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if store.saveCalls != 1 {
		t.Errorf("Save calls: got %d, want 1", store.saveCalls)
	}
	if len(store.saved) != 1 || store.saved[0].ProductID != 7 {
		t.Errorf("saved snapshot: %+v", store.saved)
	}
}

func TestSync_SnapshotSaveFailureIsTolerated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := &stubStore{saveErr: errors.New("disk full")}
	cache := aliascache.New(&stubSource{aliases: firstBatch}, aliascache.WithSnapshotStore(store))

	if err := cache.Sync(ctx); err != nil {
		t.Fatalf("Sync should tolerate snapshot failure, got: %v", err)
	}
	if got := cache.Aliases(); len(got) != 1 {
		t.Fatalf("memory cache not updated: %+v", got)
	}
}

func TestRestore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := &stubStore{saved: secondBatch}
	cache := aliascache.New(&stubSource{}, aliascache.WithSnapshotStore(store))

	if err := cache.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if got := cache.Aliases(); len(got) != 2 {
		t.Fatalf("after restore: got %d aliases, want 2", len(got))
	}
}

func TestRestore_WithoutStoreIsNoop(t *testing.T) {
	t.Parallel()

	cache := aliascache.New(&stubSource{})
	if err := cache.Restore(context.Background()); err != nil {
		t.Fatalf("Restore without store: %v", err)
	}
	if got := cache.Aliases(); len(got) != 0 {
		t.Fatalf("cache should start empty, got %+v", got)
	}
}

func TestAliases_ReturnsCopy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cache := aliascache.New(&stubSource{aliases: firstBatch})
	if err := cache.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	got := cache.Aliases()
	got[0].AliasName = "mutated"
	if again := cache.Aliases(); again[0].AliasName != "cô ca" {
		t.Errorf("caller mutation leaked into the cache: %+v", again)
	}
}
