package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"devlink/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// Aside implements the cache-aside pattern. It fills dest from Redis if the
// key is present, otherwise calls fetch (which must populate dest) and writes
// the result back with the given TTL. Cache failures degrade to the fetch
// path, they never fail the caller.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	if client != nil {
		raw, err := client.Get(ctx, key).Bytes()
		if err == nil {
			if unmarshalErr := json.Unmarshal(raw, dest); unmarshalErr == nil {
				return nil
			}
			// Corrupt entry, drop it and fall through to fetch
			client.Del(ctx, key)
		} else if !errors.Is(err, redis.Nil) {
			middleware.Logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		}
	}

	if err := fetch(); err != nil {
		return err
	}

	if client != nil {
		if raw, err := json.Marshal(dest); err == nil {
			client.Set(ctx, key, raw, ttl)
		}
	}
	return nil
}
