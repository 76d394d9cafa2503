package state

import (
	"fmt"

	"toribot/pkg/config"
	"toribot/pkg/logger"
)

// NewStore builds the store selected by the state configuration section.
func NewStore(log *logger.Logger, cfg config.StateConfig) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(log, cfg.FilePath)
	case "redis":
		return NewRedisStore(log, &RedisStoreConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
	default:
		return nil, fmt.Errorf("unknown state backend: %s", cfg.Backend)
	}
}
