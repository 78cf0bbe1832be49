package mocks

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/godilite/helpdesk-kpi/pkg/cache"
)

// TrackingCache is an in-process view cache that counts its calls.
type TrackingCache struct {
	*cache.Memory
	GetCalls atomic.Int32
	SetCalls atomic.Int32
}

func NewTrackingCache() *TrackingCache {
	return &TrackingCache{Memory: cache.NewMemory()}
}

func (c *TrackingCache) Get(ctx context.Context, key string, dest any) error {
	c.GetCalls.Add(1)
	return c.Memory.Get(ctx, key, dest)
}

func (c *TrackingCache) Set(ctx context.Context, key string, value any, exp time.Duration) error {
	c.SetCalls.Add(1)
	return c.Memory.Set(ctx, key, value, exp)
}
