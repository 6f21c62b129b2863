package cache

import (
	"context"

	"github.com/matzehuels/provgraph/pkg/config"
	"github.com/matzehuels/provgraph/pkg/errors"
)

// Open constructs the backend selected by cfg. An empty file directory
// resolves to [DefaultDir].
func Open(ctx context.Context, cfg config.Cache) (Cache, error) {
	switch cfg.Backend {
	case config.CacheBackendNone:
		return NewNullCache(), nil
	case config.CacheBackendRedis:
		c, err := NewRedisCache(ctx, cfg.RedisAddr, "provgraph:")
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeNetwork, err, "connect to redis at %s", cfg.RedisAddr)
		}
		return c, nil
	case config.CacheBackendFile, "":
		dir := cfg.Dir
		if dir == "" {
			dir = DefaultDir()
		}
		return NewFileCache(dir)
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", cfg.Backend)
	}
}
