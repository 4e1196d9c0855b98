// Package aliascache manages the device-local cache of voice aliases.
//
// The cache is an explicit object owned by the application root — never a
// package-level singleton — so tests can build isolated instances. It is
// populated only by explicit Sync calls against an injected [Source]
// (the backend HTTP client in normal deployments, a direct database
// connection in on-premise ones) and persisted to a local snapshot store so
// resolution keeps working offline and across restarts.
//
// A sync either fully replaces the cache or leaves it untouched; there is no
// partial merge. Staleness is the caller's problem — calling Sync again is
// the only invalidation path.
package aliascache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/quangvo/agripos/pkg/catalog"
)

// Source provides the authoritative alias list. *catalog.Client satisfies
// this interface.
type Source interface {
	VoiceAliases(ctx context.Context) ([]catalog.Alias, error)
}

// SnapshotStore persists the last successfully synced alias list on the
// device. Implementations must treat Save as a full replacement.
type SnapshotStore interface {
	// Save replaces the persisted snapshot with aliases.
	Save(ctx context.Context, aliases []catalog.Alias) error

	// Load returns the persisted snapshot, or an empty slice if none exists.
	Load(ctx context.Context) ([]catalog.Alias, error)
}

// Cache is the process-wide alias cache. All methods are safe for concurrent
// use. Concurrent Sync calls are last-write-wins; the contract assumes at
// most one sync in flight.
type Cache struct {
	source Source
	store  SnapshotStore // nil = memory-only

	mu      sync.RWMutex
	aliases []catalog.Alias
}

// Option configures a [Cache].
type Option func(*Cache)

// WithSnapshotStore attaches a persistence layer. Without one the cache is
// memory-only and starts empty on every run.
func WithSnapshotStore(s SnapshotStore) Option {
	return func(c *Cache) {
		c.store = s
	}
}

// New creates a Cache backed by source. The cache starts empty; call
// [Cache.Restore] to load the last persisted snapshot and [Cache.Sync] to
// pull fresh data.
func New(source Source, opts ...Option) *Cache {
	c := &Cache{source: source}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Restore loads the last persisted snapshot into memory. A missing or empty
// snapshot is not an error. Without a snapshot store Restore is a no-op.
func (c *Cache) Restore(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	aliases, err := c.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("aliascache: restore snapshot: %w", err)
	}
	c.mu.Lock()
	c.aliases = aliases
	c.mu.Unlock()
	slog.Debug("alias cache restored", "count", len(aliases))
	return nil
}

// Sync fetches the authoritative alias list and, on success, overwrites the
// entire cache and snapshot. On failure the existing cache is left untouched
// and the error is returned for the caller to log; voice commands keep
// working with the last good data.
func (c *Cache) Sync(ctx context.Context) error {
	aliases, err := c.source.VoiceAliases(ctx)
	if err != nil {
		return fmt.Errorf("aliascache: sync: %w", err)
	}

	c.mu.Lock()
	c.aliases = aliases
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Save(ctx, aliases); err != nil {
			// The in-memory cache is already current; a failed snapshot
			// only costs offline startup freshness.
			slog.Warn("alias cache snapshot save failed", "err", err)
		}
	}
	slog.Info("alias cache synced", "count", len(aliases))
	return nil
}

// Aliases returns a copy of the current cache. Empty until the first
// successful Restore or Sync.
func (c *Cache) Aliases() []catalog.Alias {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]catalog.Alias, len(c.aliases))
	copy(out, c.aliases)
	return out
}
