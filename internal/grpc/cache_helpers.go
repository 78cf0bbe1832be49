package grpc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/godilite/helpdesk-kpi/internal/kpi"
	"github.com/godilite/helpdesk-kpi/pkg/cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type FetchFunc[T any] func(ctx context.Context) (T, error)

const (
	defaultFetchTimeout = 45 * time.Second
	defaultSetTimeout   = 5 * time.Second
)

// cachedView wraps a view with its store time so hits can decide whether a
// refresh-ahead is due.
type cachedView[T any] struct {
	Value    T         `json:"value"`
	StoredAt time.Time `json:"stored_at"`
}

// addTTLJitter adds up to ±10% random jitter to TTL to avoid mass expiration.
func addTTLJitter(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return ttl
	}
	spread := int64(ttl / 5)
	if spread <= 0 {
		return ttl
	}
	return ttl + time.Duration(rand.Int63n(spread)-spread/2)
}

// viewKey identifies a view for one effective filter.
func viewKey(prefix CacheKeyType, f kpi.Filter, limit int) string {
	analysts := append([]string(nil), f.Analysts...)
	sort.Strings(analysts)

	var start, end string
	if !f.Start.IsZero() {
		start = f.Start.Format(kpi.DayLayout)
	}
	if !f.End.IsZero() {
		end = f.End.Format(kpi.DayLayout)
	}

	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s|%d", start, end, strings.Join(analysts, "\x1f"), f.TimeBase, f.Aggregate, limit)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(h.Sum(nil))[:16])
}

func storeView[T any](c Cacher, key string, ttl time.Duration, logger *zap.Logger, v T) {
	setCtx, cancel := context.WithTimeout(context.Background(), defaultSetTimeout)
	defer cancel()

	ttlWithJitter := addTTLJitter(ttl)
	if err := c.Set(setCtx, key, cachedView[T]{Value: v, StoredAt: time.Now()}, ttlWithJitter); err != nil {
		logger.Warn("failed to set cache", zap.String("key", key), zap.Error(err))
		return
	}
	logger.Debug("cache populated", zap.String("key", key), zap.Duration("ttl", ttlWithJitter))
}

func triggerBackgroundRefresh[T any](
	c Cacher,
	sf *singleflight.Group,
	key string,
	ttl time.Duration,
	logger *zap.Logger,
	fn FetchFunc[T],
) {
	go func() {
		_, _, _ = sf.Do(key+":refresh", func() (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), defaultFetchTimeout)
			defer cancel()

			value, err := fn(ctx)
			if err != nil {
				logger.Warn("background refresh failed", zap.String("key", key), zap.Error(err))
				return nil, err
			}
			storeView(c, key, ttl, logger, value)
			return value, nil
		})
	}()
}

// FindAndCache implements read-through caching with singleflight. A hit older
// than half the TTL is served as is and refreshed in the background. Errors
// are never cached.
func FindAndCache[T any](
	ctx context.Context,
	c Cacher,
	sf *singleflight.Group,
	key string,
	ttl time.Duration,
	logger *zap.Logger,
	fn FetchFunc[T],
) (T, error) {
	var zero T
	if logger == nil {
		logger = zap.NewNop()
	}

	var cached cachedView[T]
	err := c.Get(ctx, key, &cached)
	switch {
	case err == nil:
		logger.Debug("cache hit", zap.String("key", key))
		if time.Since(cached.StoredAt) > ttl/2 {
			triggerBackgroundRefresh(c, sf, key, ttl, logger, fn)
		}
		return cached.Value, nil

	case errors.Is(err, cache.ErrMiss):
		logger.Debug("cache miss", zap.String("key", key))

	default:
		logger.Warn("cache get error (treating as miss)", zap.String("key", key), zap.Error(err))
	}

	v, err, shared := sf.Do(key, func() (any, error) {
		value, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		go storeView(c, key, ttl, logger, value)
		return value, nil
	})
	if err != nil {
		return zero, err
	}

	value, ok := v.(T)
	if !ok {
		logger.Error("singleflight type mismatch", zap.String("key", key))
		return zero, fmt.Errorf("type mismatch for key %q", key)
	}

	if shared {
		logger.Debug("singleflight shared result", zap.String("key", key))
	}

	return value, nil
}
