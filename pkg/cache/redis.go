package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

const (
	defaultPrefix      = "helpdesk-kpi:"
	defaultDialTimeout = 3 * time.Second
)

// Redis stores rendered views as JSON under a namespaced key.
type Redis struct {
	client *redis.Client
	prefix string
}

type Options struct {
	Address     string
	URL         string
	Password    string
	DB          int
	Prefix      string
	DialTimeout time.Duration
}

type Option func(*Options)

// WithAddress accepts host:port or a redis:// or rediss:// URL.
func WithAddress(addr string) Option {
	return func(o *Options) {
		if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
			o.URL = addr
			return
		}
		o.Address = addr
	}
}

func WithPassword(pass string) Option {
	return func(o *Options) {
		o.Password = pass
	}
}

func WithDB(db int) Option {
	return func(o *Options) {
		o.DB = db
	}
}

// WithPrefix namespaces every key, so several deployments can share a DB.
func WithPrefix(prefix string) Option {
	return func(o *Options) {
		o.Prefix = prefix
	}
}

func WithDialTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.DialTimeout = d
		}
	}
}

func (o *Options) redisOptions() (*redis.Options, error) {
	if o.URL != "" {
		ro, err := redis.ParseURL(o.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		if o.Password != "" {
			ro.Password = o.Password
		}
		ro.DialTimeout = o.DialTimeout
		return ro, nil
	}
	return &redis.Options{
		Addr:        o.Address,
		Password:    o.Password,
		DB:          o.DB,
		DialTimeout: o.DialTimeout,
	}, nil
}

// NewRedis connects and pings once; an unreachable server is an error.
func NewRedis(ctx context.Context, opts ...Option) (*Redis, error) {
	options := &Options{
		Address:     "localhost:6379",
		Prefix:      defaultPrefix,
		DialTimeout: defaultDialTimeout,
	}
	for _, opt := range opts {
		opt(options)
	}

	ro, err := options.redisOptions()
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(ro)

	pingCtx, cancel := context.WithTimeout(ctx, options.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", ro.Addr, err)
	}

	return &Redis{client: client, prefix: options.Prefix}, nil
}

func (c *Redis) Get(ctx context.Context, key string, dest any) error {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return fmt.Errorf("decode cached %s: %w", key, err)
	}
	return nil
}

func (c *Redis) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.client.Set(ctx, c.prefix+key, data, expiration).Err()
}

func (c *Redis) Close() error {
	return c.client.Close()
}
