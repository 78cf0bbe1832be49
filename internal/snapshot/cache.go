// Package snapshot holds immutable per-source snapshots with a lazily
// checked time-to-live.
package snapshot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/godilite/helpdesk-kpi/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const defaultTTL = 10 * time.Minute

// Snapshot is one successful load of a source.
type Snapshot[T any] struct {
	ID        string
	Value     T
	FetchedAt time.Time
}

type entry[T any] struct {
	last    Snapshot[T]
	hasLast bool
	err     error
	at      time.Time
}

// LoadFunc produces a fresh value for a key.
type LoadFunc[T any] func(ctx context.Context) (T, error)

// Cache maps a source configuration hash to its latest snapshot.
type Cache[T any] struct {
	mu      sync.Mutex
	entries map[string]entry[T]
	sf      singleflight.Group
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

func New[T any](ttl time.Duration, logger *zap.Logger) *Cache[T] {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache[T]{
		entries: make(map[string]entry[T]),
		ttl:     ttl,
		now:     time.Now,
		logger:  logger.Named("snapshot"),
	}
}

// Key hashes a source URL and its request headers into a cache key.
func Key(url string, headers map[string]string) string {
	names := make([]string, 0, len(headers))
	for k := range headers {
		names = append(names, k)
	}
	sort.Strings(names)

	h := sha256.New()
	fmt.Fprintf(h, "%s\n", url)
	for _, k := range names {
		fmt.Fprintf(h, "%s=%s\n", k, headers[k])
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache[T]) fresh(key string) (entry[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.at) >= c.ttl {
		return e, false
	}
	return e, true
}

// Get returns the cached snapshot for key while it is within the TTL and
// loads a new one otherwise. Concurrent misses share a single load.
// A failed load is remembered for the TTL and returned to every caller in
// that window; it never replaces the last good snapshot of the entry.
func (c *Cache[T]) Get(ctx context.Context, key string, load LoadFunc[T]) (Snapshot[T], error) {
	if e, ok := c.fresh(key); ok {
		if e.err != nil {
			metrics.SnapshotCacheTotal.WithLabelValues("negative").Inc()
			return Snapshot[T]{}, e.err
		}
		metrics.SnapshotCacheTotal.WithLabelValues("hit").Inc()
		return e.last, nil
	}
	metrics.SnapshotCacheTotal.WithLabelValues("miss").Inc()

	v, err, _ := c.sf.Do(key, func() (any, error) {
		if e, ok := c.fresh(key); ok {
			return e.last, e.err
		}

		value, err := load(ctx)
		if err != nil && ctx.Err() != nil {
			// caller went away; not a source failure
			return Snapshot[T]{}, err
		}
		now := c.now()

		c.mu.Lock()
		defer c.mu.Unlock()

		e := c.entries[key]
		e.at = now
		if err != nil {
			e.err = err
			c.entries[key] = e
			c.logger.Warn("load failed; keeping previous snapshot",
				zap.String("key", short(key)),
				zap.Bool("has_previous", e.hasLast),
				zap.Error(err))
			return Snapshot[T]{}, err
		}

		snap := Snapshot[T]{ID: uuid.NewString(), Value: value, FetchedAt: now}
		c.entries[key] = entry[T]{last: snap, hasLast: true, at: now}
		c.logger.Debug("snapshot stored", zap.String("key", short(key)), zap.String("id", snap.ID))
		return snap, nil
	})
	if err != nil {
		return Snapshot[T]{}, err
	}
	return v.(Snapshot[T]), nil
}

// Last returns the most recent good snapshot for key regardless of age.
func (c *Cache[T]) Last(key string) (Snapshot[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !e.hasLast {
		return Snapshot[T]{}, false
	}
	return e.last, true
}

// Invalidate forces the next Get for key to reload.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.at = time.Time{}
		c.entries[key] = e
	}
}

func short(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
