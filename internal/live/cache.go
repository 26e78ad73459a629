// Package live implements the live channel pipeline: playlist refresh,
// guide ingestion, and the two-tier channel cache.
package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/misttv/misttv/internal/models"
	"github.com/misttv/misttv/internal/repository"
	"github.com/misttv/misttv/pkg/xmltv"
)

// Cache is the process-wide channel cache, keyed by live source key.
//
// It is an explicit service object constructed once at startup and injected
// wherever channel data is read or written; there is no package-level state.
// Entries live for the process lifetime - the entry count equals the number
// of configured live sources, not request volume, so no TTL or size bound is
// needed.
//
// Every read re-checks the durable store for a channel-edit overlay, which
// makes reads eventually consistent with saved edits without any cache
// invalidation protocol.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry

	kv     repository.KVRepository
	logger *slog.Logger
}

// cacheEntry holds one source's data plus a generation counter.
//
// The per-entry mutex serializes the overlay read-modify-write on a key so
// two concurrent reads or a read racing a refresh cannot produce a torn
// entry. The generation lets a detached guide completion detect that its
// refresh has been superseded or the source deleted.
type cacheEntry struct {
	mu   sync.Mutex
	gen  uint64
	data *models.LiveChannels
}

// NewCache creates a channel cache backed by the given durable store.
func NewCache(kv repository.KVRepository, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		entries: make(map[string]*cacheEntry),
		kv:      kv,
		logger:  logger,
	}
}

// Get returns the cached entry for key, or nil when none exists.
//
// On a hit it unconditionally re-checks the durable store for a channel-edit
// overlay; when one exists and decodes, the entry's channels are substituted
// and the channel count recomputed over non-disabled entries. EpgURL and
// Epgs are preserved. Overlay lookup failures degrade to the unmodified
// cached entry.
func (c *Cache) Get(ctx context.Context, key string) *models.LiveChannels {
	e := c.lookup(key)
	if e == nil {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.data == nil {
		return nil
	}

	value, ok, err := c.kv.Get(ctx, models.LiveChannelsKey(key))
	if err != nil {
		c.logger.Warn("channel overlay lookup failed, serving cached channels",
			slog.String("source", key),
			slog.String("error", err.Error()),
		)
	} else if ok {
		var edited []models.Channel
		if err := json.Unmarshal([]byte(value), &edited); err != nil {
			c.logger.Warn("channel overlay is not valid JSON, ignoring",
				slog.String("source", key),
				slog.String("error", err.Error()),
			)
		} else {
			e.data.Channels = edited
			e.data.ChannelNumber = models.CountEnabled(edited)
		}
	}

	return snapshot(e.data)
}

// Put replaces the entry for key wholesale and returns the new generation.
func (c *Cache) Put(key string, data *models.LiveChannels) uint64 {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &cacheEntry{}
		c.entries[key] = e
	}
	c.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.gen++
	e.data = data
	return e.gen
}

// SetGuide attaches guide data to the entry for key, but only when the entry
// still belongs to generation gen. Returns false when the completion was
// stale (the entry was refreshed again or deleted in the meantime).
func (c *Cache) SetGuide(key string, gen uint64, guide xmltv.Guide) bool {
	e := c.lookup(key)
	if e == nil {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gen != gen || e.data == nil {
		return false
	}
	e.data.Epgs = guide
	return true
}

// ChannelCount returns the cached channel count for key.
// Used by the stale-on-error path; the overlay is not consulted.
func (c *Cache) ChannelCount(key string) (int, bool) {
	e := c.lookup(key)
	if e == nil {
		return 0, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.data == nil {
		return 0, false
	}
	return e.data.ChannelNumber, true
}

// Delete evicts the entry for key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear evicts all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
}

// Keys returns the keys of all cached entries.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	return keys
}

func (c *Cache) lookup(key string) *cacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[key]
}

// snapshot returns a copy of the entry so callers never share the cache's
// mutable struct. The slices and guide map are shared read-only.
func snapshot(data *models.LiveChannels) *models.LiveChannels {
	cp := *data
	return &cp
}
