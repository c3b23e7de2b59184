package fuzzy

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	shellserver "github.com/Paranoid-AF/shellserver"
)

const refreshKey = "refresh"

// Source supplies the full paths the cache is built from.
// *protocol.Client implements it.
type Source interface {
	FuzzySource() ([]string, error)
}

// Cache holds the candidate directories for fuzzy jumps.
//
// The entry list is an immutable snapshot replaced as a whole on every
// refresh, so readers see either the old or the new list and never a mix.
// At most one refresh runs at a time; triggers arriving while one is in
// flight join it instead of starting another.
type Cache struct {
	source  Source
	entries atomic.Pointer[[]Entry]
	group   singleflight.Group

	mu        sync.Mutex // guards closed and wg.Add against Close
	closed    bool
	wg        sync.WaitGroup
	refreshes atomic.Int64
}

// NewCache creates an empty cache fed by source.
func NewCache(source Source) *Cache {
	c := &Cache{source: source}
	empty := []Entry{}
	c.entries.Store(&empty)
	return c
}

// Snapshot returns the current entries. The returned slice is a copy.
func (c *Cache) Snapshot() []Entry {
	return slices.Clone(*c.entries.Load())
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return len(*c.entries.Load())
}

// Refreshes returns how many refreshes completed successfully.
func (c *Cache) Refreshes() int64 {
	return c.refreshes.Load()
}

// Replace swaps in entries built from paths.
func (c *Cache) Replace(paths []string) {
	entries := make([]Entry, len(paths))
	for i, p := range paths {
		entries[i] = NewEntry(p)
	}
	c.entries.Store(&entries)
}

// Refresh fetches the source list and replaces the cache contents.
// If a refresh is already running, Refresh waits for it instead.
func (c *Cache) Refresh(ctx context.Context) error {
	ch := c.group.DoChan(refreshKey, c.load)
	select {
	case r := <-ch:
		return r.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Trigger starts a background refresh and returns immediately.
// It does nothing once the cache is closed.
func (c *Cache) Trigger() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()

	ch := c.group.DoChan(refreshKey, c.load)
	go func() {
		defer c.wg.Done()
		if r := <-ch; r.Err != nil && !r.Shared {
			slog.Warn("completion cache refresh failed", "error", r.Err)
		}
	}()
}

// Wait blocks until every background refresh started by Trigger has finished.
func (c *Cache) Wait() {
	c.wg.Wait()
}

// Close stops accepting background refreshes. Once it returns, Wait covers
// every refresh Trigger will ever start.
func (c *Cache) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *Cache) load() (any, error) {
	paths, err := c.source.FuzzySource()
	if err != nil {
		return nil, fmt.Errorf("refresh completion cache: %w", err)
	}
	c.Replace(paths)
	c.refreshes.Add(1)
	slog.Debug("completion cache refreshed", "entries", len(paths))
	return nil, nil
}

// Select ranks the current snapshot against query and returns the entries
// tied at the best score.
func (c *Cache) Select(query string) ([]Entry, error) {
	return Select(query, *c.entries.Load())
}

// Best returns the highest ranked entry for query.
func (c *Cache) Best(query string) (Entry, error) {
	entries := *c.entries.Load()
	if len(entries) == 0 {
		return Entry{}, fmt.Errorf("rank %q: %w", query, shellserver.ErrEmptyCache)
	}
	return Rank(query, entries)[0], nil
}
