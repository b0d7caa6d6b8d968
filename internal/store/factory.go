package store

import (
	"context"
	"fmt"

	"github.com/bassista/go_devbytes/internal/config"
)

// NewStoreFromConfig builds the store selected by cfg.Type.
// An empty type selects the bolt store.
func NewStoreFromConfig(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Type {
	case config.StoreTypeMemory:
		return NewMemoryStore(nil)
	case config.StoreTypeBolt, "":
		return NewBoltStore(cfg.Path)
	case config.StoreTypeJSON:
		return NewJSONStore(cfg.Path)
	case config.StoreTypeRedis:
		return NewRedisStore(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
	default:
		return nil, fmt.Errorf("unknown store type: %s (supported: %s, %s, %s, %s)",
			cfg.Type, config.StoreTypeMemory, config.StoreTypeBolt, config.StoreTypeJSON, config.StoreTypeRedis)
	}
}
