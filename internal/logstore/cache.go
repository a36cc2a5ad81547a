package logstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/liftlog/internal/codec"
	"github.com/roach88/liftlog/internal/record"
	"github.com/roach88/liftlog/internal/vault"
)

// Cache is the single read path for parsed log records.
//
// An entry is served while it is younger than the TTL and holds at most
// MaxSize records. A load that produces more than MaxSize records is
// returned but not retained, so every read of an oversized log re-parses.
//
// Concurrent misses share one load. Clear bumps a generation counter so a
// load that started before the clear cannot install its result afterwards.
type Cache struct {
	vault   vault.Vault
	path    string
	clock   Clock
	ttl     time.Duration
	maxSize int
	logger  *slog.Logger

	mu    sync.Mutex
	entry *cacheEntry
	gen   uint64

	group singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
	loads  atomic.Int64
}

type cacheEntry struct {
	records    []record.LogRecord
	capturedAt time.Time
}

// CacheStats counts cache activity since construction.
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Loads  int64 `json:"loads"`
}

// NewCache returns an empty cache over the log file at path.
func NewCache(v vault.Vault, path string, clock Clock, ttl time.Duration, maxSize int, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		vault:   v,
		path:    path,
		clock:   clock,
		ttl:     ttl,
		maxSize: maxSize,
		logger:  logger,
	}
}

// Records returns every well-formed record in the log file.
//
// On a hit the cached slice itself is returned; callers must not modify it.
// A missing file reads as an empty log and is not cached.
func (c *Cache) Records(ctx context.Context) ([]record.LogRecord, error) {
	c.mu.Lock()
	if c.validLocked() {
		recs := c.entry.records
		c.mu.Unlock()
		c.hits.Add(1)
		return recs, nil
	}
	c.entry = nil
	gen := c.gen
	c.mu.Unlock()

	c.misses.Add(1)
	// One caller cancelling must not fail the others sharing this load.
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(strconv.FormatUint(gen, 10), func() (any, error) {
		return c.load(loadCtx, gen)
	})
	if err != nil {
		return nil, err
	}
	return v.([]record.LogRecord), nil
}

func (c *Cache) load(ctx context.Context, gen uint64) ([]record.LogRecord, error) {
	text, err := c.vault.Read(ctx, c.path)
	if errors.Is(err, vault.ErrNotFound) {
		c.logger.Debug("log file not found, reading as empty", "path", c.path)
		return []record.LogRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", c.path, err)
	}
	c.loads.Add(1)

	skipped := 0
	recs := codec.ParseDocument(text).Records(func(row int, err error) {
		skipped++
		// +2: header line and 1-based numbering
		c.logger.Debug("skipping malformed row", "path", c.path, "row", row+2, "error", err)
	})

	c.mu.Lock()
	stored := c.gen == gen && len(recs) <= c.maxSize
	if stored {
		c.entry = &cacheEntry{records: recs, capturedAt: c.clock.Now()}
	}
	c.mu.Unlock()

	c.logger.Debug("log loaded",
		"path", c.path,
		"records", len(recs),
		"skipped", skipped,
		"cached", stored,
	)
	return recs, nil
}

// Clear drops the cached entry. The next read re-parses the file.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry = nil
	c.gen++
}

// Valid reports whether the next read would be served from memory.
func (c *Cache) Valid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validLocked()
}

func (c *Cache) validLocked() bool {
	if c.entry == nil {
		return false
	}
	return c.clock.Now().Sub(c.entry.capturedAt) < c.ttl && len(c.entry.records) <= c.maxSize
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Loads:  c.loads.Load(),
	}
}
