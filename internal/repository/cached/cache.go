package cached

import (
	"context"
	"time"
)

// Cache - хранилище JSON значений с TTL (реализуется redis.Client).
// nil Cache означает, что кэш выключен и все чтения идут в БД.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	DelByPattern(ctx context.Context, pattern string) error
}
