package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces blacklist keys.
const DefaultPrefix = "security:blacklist:"

type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Blacklist stores revoked jtis as keys that expire together with the token.
type Blacklist struct {
	rdb    goredis.UniversalClient
	prefix string
}

// NewClient builds a go-redis client from config.
func NewClient(cfg Config) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
}

// NewBlacklist wraps an existing client. An empty prefix uses DefaultPrefix.
func NewBlacklist(rdb goredis.UniversalClient, prefix string) *Blacklist {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Blacklist{rdb: rdb, prefix: prefix}
}

func (b *Blacklist) key(jti string) string { return b.prefix + jti }

// IsMember reports whether the jti has been revoked.
func (b *Blacklist) IsMember(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, errors.New("redis: empty jti")
	}
	n, err := b.rdb.Exists(ctx, b.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("redis: exists: %w", err)
	}
	return n == 1, nil
}

// Add revokes the jti for ttl, rounded up to at least one second. An existing
// entry keeps its original expiry.
func (b *Blacklist) Add(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return errors.New("redis: empty jti")
	}
	ttl = max(ttl, time.Second)

	if err := b.rdb.SetNX(ctx, b.key(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis: setnx: %w", err)
	}
	return nil
}

func (b *Blacklist) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}
